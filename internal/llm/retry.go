package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 500 * time.Millisecond
)

// RetryingClient wraps a Client and retries transient failures with
// exponential backoff. Auth and invalid-request failures return immediately.
type RetryingClient struct {
	inner    Client
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// WithRetry wraps inner with the default retry policy.
func WithRetry(inner Client, logger *slog.Logger) *RetryingClient {
	return &RetryingClient{
		inner:    inner,
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		logger:   logger,
	}
}

// Generate implements Client.
func (c *RetryingClient) Generate(ctx context.Context, req Request) (string, error) {
	delay := c.backoff
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		out, err := c.inner.Generate(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err

		var be *Error
		if !errors.As(err, &be) || !be.Retryable() {
			return "", err
		}
		if attempt == c.attempts {
			break
		}

		c.logger.Warn("model call failed, retrying",
			"attempt", attempt, "kind", string(be.Kind), "backoff", delay)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return "", lastErr
}

var _ Client = (*RetryingClient)(nil)
