// Package handler implements the HTTP API: question submission and session
// retrieval. Handlers translate between the wire shapes and the pipeline;
// they hold no pipeline state of their own.
package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/talk2data/talk2data/internal/model"
	"github.com/talk2data/talk2data/internal/orchestrator"
)

// QueryHandler serves question submission.
type QueryHandler struct {
	pipeline *orchestrator.Orchestrator
}

// NewQueryHandler creates a QueryHandler.
func NewQueryHandler(pipeline *orchestrator.Orchestrator) *QueryHandler {
	return &QueryHandler{pipeline: pipeline}
}

// Submit handles POST /api/v1/query. The pipeline runs synchronously; the
// response carries the session id for stage retrieval plus the final status.
func (h *QueryHandler) Submit(w http.ResponseWriter, r *http.Request) {
	question, flags, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	sess := h.pipeline.Ask(r.Context(), question, flags)

	resp := model.QueryResponse{
		SessionID: sess.ID,
		Question:  sess.Question,
		Status:    sess.Stage,
	}
	if sess.Err != nil {
		resp.Message = sess.Err.Reason
	}
	writeJSON(w, http.StatusOK, resp)
}

// Complete handles POST /api/v1/complete: run the pipeline and return the
// whole result bundle in one response.
func (h *QueryHandler) Complete(w http.ResponseWriter, r *http.Request) {
	question, flags, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	sess := h.pipeline.Ask(r.Context(), question, flags)
	writeJSON(w, http.StatusOK, completeResponse(sess))
}

// decodeQuery parses and validates the shared request body. Flag pointers
// distinguish "absent" from "false"; absent means the default full pipeline.
func decodeQuery(w http.ResponseWriter, r *http.Request) (string, model.Flags, bool) {
	var req model.QueryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return "", model.Flags{}, false
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return "", model.Flags{}, false
	}

	flags := model.DefaultFlags()
	if req.Execute != nil {
		flags.Execute = *req.Execute
	}
	if req.IncludeSummary != nil {
		flags.IncludeSummary = *req.IncludeSummary
	}
	if req.IncludeVisualization != nil {
		flags.IncludeVisualization = *req.IncludeVisualization
	}
	if !flags.Execute {
		// Nothing downstream of execution can run on a dry run.
		flags.IncludeSummary = false
		flags.IncludeVisualization = false
	}
	return question, flags, true
}

// completeResponse flattens a session into the one-shot response shape.
func completeResponse(sess *model.Session) model.CompleteResponse {
	resp := model.CompleteResponse{
		SessionID:     sess.ID,
		Question:      sess.Question,
		Status:        sess.Stage,
		Metadata:      sess.Bundle,
		Summary:       sess.Summary,
		Visualization: sess.Visualization,
		Success:       sess.Succeeded(),
		Error:         sess.Err,
		Executed:      sess.RowSet != nil,
		Timestamp:     sess.UpdatedAt.Format(time.RFC3339),
	}
	if sess.Bundle != nil {
		resp.TablesCount = len(sess.Bundle.Tables)
	}
	if sess.Statement != nil {
		resp.SQL = sess.Statement.SQL
	}
	if sess.RowSet != nil {
		resp.Data = sess.RowSet.Rows
		resp.RowCount = sess.RowSet.RowCount()
		resp.Truncated = sess.RowSet.Truncated
	}
	return resp
}
