package summary

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/talk2data/talk2data/internal/llm"
	"github.com/talk2data/talk2data/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rowSet(n int) *model.RowSet {
	rows := make([]model.Row, n)
	for i := range rows {
		rows[i] = model.Row{"agent_id": "a1", "calls": int64(i)}
	}
	return model.BuildRowSet([]string{"agent_id", "calls"}, rows, 0)
}

func TestSummarizeUsesModel(t *testing.T) {
	var gotPrompt string
	client := llm.Func(func(ctx context.Context, req llm.Request) (string, error) {
		gotPrompt = req.Prompt
		return "Agent a1 handled most calls.", nil
	})

	s := NewSummarizer(client, testLogger())
	out := s.Summarize(context.Background(), "calls per agent", rowSet(3))
	if out != "Agent a1 handled most calls." {
		t.Errorf("out = %q", out)
	}
	if !strings.Contains(gotPrompt, "returned 3 rows") {
		t.Errorf("prompt = %q", gotPrompt)
	}
	if !strings.Contains(gotPrompt, `"agent_id"`) {
		t.Error("prompt missing data preview")
	}
}

func TestSummarizePreviewCapped(t *testing.T) {
	var gotPrompt string
	client := llm.Func(func(ctx context.Context, req llm.Request) (string, error) {
		gotPrompt = req.Prompt
		return "ok", nil
	})

	s := NewSummarizer(client, testLogger())
	s.Summarize(context.Background(), "q", rowSet(25))
	if !strings.Contains(gotPrompt, "the first 10 are shown") {
		t.Errorf("prompt = %q", gotPrompt)
	}
	// Row index 10 and beyond must not appear in the preview.
	if strings.Contains(gotPrompt, `"calls": 15`) {
		t.Error("preview not capped")
	}
}

func TestSummarizeZeroRowsSkipsModel(t *testing.T) {
	called := false
	client := llm.Func(func(ctx context.Context, req llm.Request) (string, error) {
		called = true
		return "", nil
	})

	s := NewSummarizer(client, testLogger())
	out := s.Summarize(context.Background(), "calls on mars", rowSet(0))
	if called {
		t.Error("model should not be called for zero rows")
	}
	if !strings.Contains(out, "zero rows") {
		t.Errorf("out = %q", out)
	}
}

func TestSummarizeFallsBackOnModelError(t *testing.T) {
	client := llm.Func(func(ctx context.Context, req llm.Request) (string, error) {
		return "", &llm.Error{Kind: llm.KindBackend, Msg: "down"}
	})

	s := NewSummarizer(client, testLogger())
	out := s.Summarize(context.Background(), "q", rowSet(4))
	if !strings.Contains(out, "returned 4 rows") {
		t.Errorf("out = %q", out)
	}
	if !strings.Contains(out, "agent_id") {
		t.Errorf("out = %q", out)
	}
}
