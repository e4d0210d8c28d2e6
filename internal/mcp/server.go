// Package mcp exposes the pipeline to AI agents over the Model Context
// Protocol: ask a question, fetch a stored session, and browse the concept
// catalog.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/talk2data/talk2data/internal/graph"
	"github.com/talk2data/talk2data/internal/orchestrator"
)

// MCPServer wraps the mcp-go server with the pipeline tools and resources.
type MCPServer struct {
	pipeline *orchestrator.Orchestrator
	graph    *graph.Store
	logger   *slog.Logger
	server   *server.MCPServer
}

// NewMCPServer creates a server pre-loaded with all tools and resources,
// ready to serve over stdio or HTTP.
func NewMCPServer(pipeline *orchestrator.Orchestrator, graphStore *graph.Store, version string, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		pipeline: pipeline,
		graph:    graphStore,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"Talk2Data",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go server, useful for testing.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio serves over stdio, the subprocess integration path for MCP
// clients.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP serves Streamable HTTP on addr for remote MCP clients.
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}
}

func boolPtr(b bool) *bool { return &b }
