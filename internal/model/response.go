package model

// QueryRequest is the request body for submitting a question.
type QueryRequest struct {
	Question             string `json:"question"`
	Execute              *bool  `json:"execute,omitempty"`
	IncludeSummary       *bool  `json:"include_summary,omitempty"`
	IncludeVisualization *bool  `json:"include_visualization,omitempty"`
}

// QueryResponse acknowledges a submitted question with the session id to use
// for stage retrieval.
type QueryResponse struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Status    Stage  `json:"status"`
	Message   string `json:"message,omitempty"`
}

// CompleteResponse is the full result bundle for a pipeline run: everything
// each completed stage produced, plus error detail for the failed stage if
// the run stopped early.
type CompleteResponse struct {
	SessionID     string         `json:"session_id"`
	Question      string         `json:"question"`
	Status        Stage          `json:"status"`
	Metadata      *Bundle        `json:"metadata,omitempty"`
	TablesCount   int            `json:"tables_count"`
	SQL           string         `json:"sql,omitempty"`
	Data          []Row          `json:"data,omitempty"`
	RowCount      int            `json:"row_count"`
	Truncated     bool           `json:"truncated,omitempty"`
	Summary       string         `json:"summary,omitempty"`
	Visualization *Visualization `json:"visualization,omitempty"`
	Success       bool           `json:"success"`
	Error         *StageError    `json:"error,omitempty"`
	Executed      bool           `json:"executed"`
	Timestamp     string         `json:"timestamp"`
}

// SessionSummary is one entry in the session listing.
type SessionSummary struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Stage     Stage  `json:"stage"`
	Success   bool   `json:"success"`
	CreatedAt string `json:"created_at"`
}

// ListSessionsResponse wraps the session listing.
type ListSessionsResponse struct {
	Total    int              `json:"total"`
	Sessions []SessionSummary `json:"sessions"`
}

// StageResponse carries one stage's stored result.
type StageResponse struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Stage     Stage  `json:"stage"`
	Result    any    `json:"result,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}
