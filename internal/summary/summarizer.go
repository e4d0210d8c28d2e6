// Package summary turns query results into a short natural-language answer.
// Zero-row results get a deterministic narrative without a model call, and a
// model failure degrades to a plain counts-based fallback rather than
// failing the session.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talk2data/talk2data/internal/llm"
	"github.com/talk2data/talk2data/internal/model"
)

const (
	// previewRows bounds how much of the result the model sees.
	previewRows = 10

	summaryMaxTokens = 300
)

const systemPrompt = `You are a data analyst. Write a short, factual summary of the query result for a business reader. Two or three sentences. Mention concrete numbers from the data. Do not speculate beyond the rows shown and do not mention SQL.`

// Summarizer produces result narratives.
type Summarizer struct {
	client llm.Client
	logger *slog.Logger
}

// NewSummarizer creates a Summarizer.
func NewSummarizer(client llm.Client, logger *slog.Logger) *Summarizer {
	return &Summarizer{client: client, logger: logger}
}

// Summarize returns a narrative for the result set. It never returns an
// error for model failures; those fall back to a deterministic summary.
func (s *Summarizer) Summarize(ctx context.Context, question string, rs *model.RowSet) string {
	if rs.Empty() {
		return emptySummary(question)
	}

	prompt, err := buildPrompt(question, rs)
	if err != nil {
		s.logger.Warn("summary prompt construction failed", "error", err)
		return fallbackSummary(rs)
	}

	out, err := s.client.Generate(ctx, llm.Request{
		System:    systemPrompt,
		Prompt:    prompt,
		MaxTokens: summaryMaxTokens,
	})
	if err != nil {
		s.logger.Warn("summary generation failed, using fallback", "error", err)
		return fallbackSummary(rs)
	}
	return strings.TrimSpace(out)
}

func buildPrompt(question string, rs *model.RowSet) (string, error) {
	preview := rs.Rows
	if len(preview) > previewRows {
		preview = preview[:previewRows]
	}
	data, err := json.MarshalIndent(preview, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal preview: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	fmt.Fprintf(&b, "The query returned %d rows", rs.RowCount())
	if rs.Truncated {
		b.WriteString(" (result was truncated at the row limit)")
	}
	if len(preview) < rs.RowCount() {
		fmt.Fprintf(&b, "; the first %d are shown", len(preview))
	}
	b.WriteString(".\n\nData:\n")
	b.Write(data)
	return b.String(), nil
}

// emptySummary is the fixed narrative for zero-row results. An empty result
// is an answer, not a failure.
func emptySummary(question string) string {
	return fmt.Sprintf("No data matched the question %q. The query ran successfully but returned zero rows; the filters may be too narrow or the period may have no activity.", question)
}

func fallbackSummary(rs *model.RowSet) string {
	cols := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		cols[i] = c.Name
	}
	text := fmt.Sprintf("The query returned %d rows with columns %s.", rs.RowCount(), strings.Join(cols, ", "))
	if rs.Truncated {
		text += " The result was truncated at the row limit."
	}
	return text
}
