package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	tmcp "github.com/talk2data/talk2data/internal/mcp"
)

func newMCPCmd(version string) *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol server that lets AI agents ask analytics
questions as tools. Supports stdio (default) and HTTP transports.`,
		Example: `  talk2data mcp                              # stdio mode
  talk2data mcp --transport http --port 3001  # HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port, version)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(transport string, port int, version string) error {
	// Logs must stay off stdout in stdio mode; the protocol owns it.
	logger := newLogger(false)

	deps, err := buildPipeline(logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	srv := tmcp.NewMCPServer(deps.pipeline, deps.graph, version, logger)

	switch transport {
	case "stdio":
		return srv.ServeStdio()
	case "http":
		return srv.ServeHTTP(fmt.Sprintf(":%d", port))
	default:
		return fmt.Errorf("unknown transport %q (want stdio or http)", transport)
	}
}
