package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/talk2data/talk2data/internal/model"
)

// registerTools adds the pipeline tools to the server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	srv.AddTool(
		mcp.NewTool("talk2data_ask",
			mcp.WithDescription(
				"Answer an analytics question in natural language. Retrieves relevant "+
					"table metadata, generates grounded SQL, executes it against the "+
					"warehouse, and returns the results with a summary and a chart "+
					"recommendation. Set execute=false to get the SQL without running it.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("question",
				mcp.Required(),
				mcp.Description("The analytics question, in plain language"),
			),
			mcp.WithBoolean("execute",
				mcp.Description("Run the generated SQL against the warehouse (default true)"),
			),
			mcp.WithBoolean("include_summary",
				mcp.Description("Include a natural-language summary of the results (default true)"),
			),
			mcp.WithBoolean("include_visualization",
				mcp.Description("Include a chart recommendation (default true)"),
			),
		),
		s.handleAsk,
	)

	srv.AddTool(
		mcp.NewTool("talk2data_get_session",
			mcp.WithDescription(
				"Fetch the stored result of a previous question by session id: the "+
					"retrieved metadata, generated SQL, result rows, summary, and "+
					"visualization, plus the failed stage and reason if the run stopped early.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("session_id",
				mcp.Required(),
				mcp.Description("Session id returned by talk2data_ask"),
			),
		),
		s.handleGetSession,
	)

	srv.AddTool(
		mcp.NewTool("talk2data_list_concepts",
			mcp.WithDescription(
				"List the business concepts in the semantic graph with their "+
					"descriptions and table counts. Use this to learn what kinds of "+
					"questions the deployment can answer.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListConcepts,
	)
}

func (s *MCPServer) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return toolError("missing required parameter %q", "question")
	}

	flags := model.DefaultFlags()
	flags.Execute = request.GetBool("execute", true)
	flags.IncludeSummary = request.GetBool("include_summary", true)
	flags.IncludeVisualization = request.GetBool("include_visualization", true)
	if !flags.Execute {
		flags.IncludeSummary = false
		flags.IncludeVisualization = false
	}

	sess := s.pipeline.Ask(ctx, question, flags)
	return successJSON(sessionResult(sess))
}

func (s *MCPServer) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return toolError("missing required parameter %q", "session_id")
	}

	sess, err := s.pipeline.Sessions().Get(id)
	if err != nil {
		return toolError("session %q not found", id)
	}
	return successJSON(sessionResult(sess))
}

func (s *MCPServer) handleListConcepts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	concepts, err := s.graph.ListConcepts(ctx)
	if err != nil {
		return toolError("failed to list concepts: %v", err)
	}
	return successJSON(map[string]any{
		"total":    len(concepts),
		"concepts": concepts,
	})
}

// sessionResult flattens a session for tool output. The same shape as the
// HTTP complete response, minus the envelope.
func sessionResult(sess *model.Session) map[string]any {
	out := map[string]any{
		"session_id": sess.ID,
		"question":   sess.Question,
		"status":     sess.Stage,
		"success":    sess.Succeeded(),
	}
	if sess.Statement != nil {
		out["sql"] = sess.Statement.SQL
	}
	if sess.Bundle != nil {
		out["tables"] = sess.Bundle.TableNames()
	}
	if sess.RowSet != nil {
		out["rows"] = sess.RowSet.Rows
		out["row_count"] = sess.RowSet.RowCount()
		out["truncated"] = sess.RowSet.Truncated
	}
	if sess.Summary != "" {
		out["summary"] = sess.Summary
	}
	if sess.Visualization != nil {
		out["visualization"] = sess.Visualization
	}
	if sess.Err != nil {
		out["error"] = map[string]string{
			"stage":  string(sess.Err.Stage),
			"reason": sess.Err.Reason,
		}
	}
	return out
}

// successJSON marshals data and returns it as a tool result.
func successJSON(data any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error visible to the model so it can
// self-correct; it does not terminate the MCP session.
func toolError(format string, args ...any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}
