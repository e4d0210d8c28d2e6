package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// registerResources adds read-only resources clients can load into context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			"talk2data://sessions",
			"Question Sessions",
			mcp.WithResourceDescription(
				"All live question sessions: id, question, pipeline stage, and outcome.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleSessionsResource,
	)

	srv.AddResource(
		mcp.NewResource(
			"talk2data://concepts",
			"Business Concept Catalog",
			mcp.WithResourceDescription(
				"The business concepts of the semantic graph and how many tables each maps to.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleConceptsResource,
	)
}

func (s *MCPServer) handleSessionsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	sessions := s.pipeline.Sessions().List()
	entries := make([]map[string]any, len(sessions))
	for i, sess := range sessions {
		entries[i] = map[string]any{
			"session_id": sess.ID,
			"question":   sess.Question,
			"stage":      sess.Stage,
			"success":    sess.Succeeded(),
			"created_at": sess.CreatedAt,
		}
	}

	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal sessions: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

func (s *MCPServer) handleConceptsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	concepts, err := s.graph.ListConcepts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}

	b, err := json.MarshalIndent(concepts, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal concepts: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
