package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenAIClientGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"SELECT 1"}}]}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewOpenAIClient("test-key", srv.URL, "test-model", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	out, err := c.Generate(context.Background(), Request{Prompt: "hello"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "SELECT 1" {
		t.Errorf("out = %q", out)
	}
}

func TestOpenAIClientStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		kind   ErrorKind
	}{
		{http.StatusUnauthorized, KindAuth},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusGatewayTimeout, KindTimeout},
		{http.StatusBadRequest, KindInvalid},
		{http.StatusInternalServerError, KindBackend},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		c, err := NewOpenAIClient("k", srv.URL, "", time.Second)
		if err != nil {
			t.Fatalf("new client: %v", err)
		}
		_, err = c.Generate(context.Background(), Request{Prompt: "x"})
		var be *Error
		if !errors.As(err, &be) {
			t.Fatalf("status %d: error type %T", tc.status, err)
		}
		if be.Kind != tc.kind {
			t.Errorf("status %d: kind = %s, want %s", tc.status, be.Kind, tc.kind)
		}
		srv.Close()
	}
}

func TestGatewayClientGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "gw-key" {
			t.Errorf("api key = %q", got)
		}
		w.Write([]byte(`{"text":"a summary"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewGatewayClient(srv.URL, "gw-key", "", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	out, err := c.Generate(context.Background(), Request{Prompt: "summarize"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "a summary" {
		t.Errorf("out = %q", out)
	}
}

func TestRetryRetriesTransient(t *testing.T) {
	calls := 0
	inner := Func(func(ctx context.Context, req Request) (string, error) {
		calls++
		if calls < 3 {
			return "", &Error{Kind: KindRateLimited, Msg: "slow down"}
		}
		return "ok", nil
	})

	c := WithRetry(inner, discardLogger())
	c.backoff = time.Millisecond
	out, err := c.Generate(context.Background(), Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "ok" || calls != 3 {
		t.Errorf("out = %q, calls = %d", out, calls)
	}
}

func TestRetryDoesNotRetryAuth(t *testing.T) {
	calls := 0
	inner := Func(func(ctx context.Context, req Request) (string, error) {
		calls++
		return "", &Error{Kind: KindAuth, Msg: "bad key"}
	})

	c := WithRetry(inner, discardLogger())
	c.backoff = time.Millisecond
	_, err := c.Generate(context.Background(), Request{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	inner := Func(func(ctx context.Context, req Request) (string, error) {
		calls++
		return "", &Error{Kind: KindTimeout}
	})

	c := WithRetry(inner, discardLogger())
	c.backoff = time.Millisecond
	_, err := c.Generate(context.Background(), Request{Prompt: "x"})
	var be *Error
	if !errors.As(err, &be) || be.Kind != KindTimeout {
		t.Fatalf("err = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
