package model

import "time"

// Stage identifies a pipeline step, doubling as the session's state machine
// position. Stages advance strictly forward; summarize and visualize are
// optional and may complete in either order.
type Stage string

const (
	StageCreated           Stage = "created"
	StageMetadataRetrieved Stage = "metadata_retrieved"
	StageSQLGenerated      Stage = "sql_generated"
	StageExecuted          Stage = "executed"
	StageSummarized        Stage = "summarized"
	StageVisualized        Stage = "visualized"
	StageCompleted         Stage = "completed"
	StageFailed            Stage = "failed"
)

// Flags controls which optional pipeline stages a caller wants.
type Flags struct {
	Execute              bool `json:"execute"`
	IncludeSummary       bool `json:"include_summary"`
	IncludeVisualization bool `json:"include_visualization"`
}

// DefaultFlags enables the full pipeline.
func DefaultFlags() Flags {
	return Flags{Execute: true, IncludeSummary: true, IncludeVisualization: true}
}

// StageError records which stage failed and why. Failures are data on the
// session record; they never escape the pipeline boundary as panics.
// Statement carries the rejected SQL when generation validation failed.
type StageError struct {
	Stage     Stage  `json:"stage"`
	Reason    string `json:"reason"`
	Statement string `json:"statement,omitempty"`
}

func (e *StageError) Error() string {
	return string(e.Stage) + ": " + e.Reason
}

// Session is the orchestrator's per-question mutable record. One result slot
// per stage; slots are overwritten whole on recomputation, never partially.
// Stage components never retain session state.
type Session struct {
	ID        string    `json:"session_id"`
	Question  string    `json:"question"`
	Stage     Stage     `json:"stage"`
	Flags     Flags     `json:"flags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Bundle        *Bundle        `json:"metadata,omitempty"`
	Statement     *Statement     `json:"statement,omitempty"`
	RowSet        *RowSet        `json:"row_set,omitempty"`
	Summary       string         `json:"summary,omitempty"`
	Visualization *Visualization `json:"visualization,omitempty"`

	Err *StageError `json:"error,omitempty"`
}

// Terminal reports whether the session can make no further progress.
func (s *Session) Terminal() bool {
	return s.Stage == StageCompleted || s.Stage == StageFailed
}

// Succeeded reports whether every requested stage completed.
func (s *Session) Succeeded() bool {
	return s.Stage == StageCompleted && s.Err == nil
}
