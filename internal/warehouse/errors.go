package warehouse

// ExecutionError is a failed warehouse query. The engine's own message is
// preserved verbatim so it can be surfaced to the caller and, on a retry
// path, fed back into generation.
type ExecutionError struct {
	Engine string
	Msg    string
	Err    error
}

func (e *ExecutionError) Error() string {
	return "warehouse execution failed (" + e.Engine + "): " + e.Msg
}

func (e *ExecutionError) Unwrap() error { return e.Err }
