// Package llm provides access to completion models. Callers talk to a single
// Client interface; behind it sit either a direct provider transport or a
// shared model gateway, plus a retry wrapper for transient failures.
package llm

import (
	"context"
	"fmt"
)

// Request is a single completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Client generates a completion for a request.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to the Client interface.
type Func func(ctx context.Context, req Request) (string, error)

// Generate implements Client.
func (f Func) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// ErrorKind classifies a model backend failure.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindRateLimited ErrorKind = "rate_limited"
	KindAuth        ErrorKind = "auth"
	KindInvalid     ErrorKind = "invalid"
	KindBackend     ErrorKind = "backend"
)

// Error is a classified model backend failure. Kind drives retry policy;
// only timeouts and rate limits are retried.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("model backend %s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("model backend %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth retrying.
func (e *Error) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindRateLimited
}
