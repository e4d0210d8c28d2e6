// Package sqlgen turns a question plus its metadata bundle into a validated
// SQL statement. The model only ever sees schema slices from the bundle, and
// anything it returns is checked against that bundle before execution.
package sqlgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/talk2data/talk2data/internal/llm"
	"github.com/talk2data/talk2data/internal/model"
)

// ErrPayloadTooLarge means the grounding context exceeds the prompt budget
// and the request cannot be sent. The caller should narrow the question.
var ErrPayloadTooLarge = errors.New("metadata payload too large for generation")

// GenerationError reports a failed or invalid generation. Reason is safe to
// surface to the caller; Statement holds the offending SQL when one was
// produced.
type GenerationError struct {
	Reason    string
	Statement string
	Err       error
}

func (e *GenerationError) Error() string {
	return "sql generation failed: " + e.Reason
}

func (e *GenerationError) Unwrap() error { return e.Err }

const (
	// maxPromptBytes bounds the serialized grounding context. Roughly a
	// 32k-token window at 4 bytes per token, halved for headroom.
	maxPromptBytes = 64 * 1024

	// maxStatementBytes bounds the generated statement itself. Anything
	// larger is almost certainly runaway completion, not a query.
	maxStatementBytes = 16 * 1024

	generateMaxTokens = 1024
)

// Generator produces grounded SQL statements.
type Generator struct {
	client  llm.Client
	project string
	dataset string
	logger  *slog.Logger
}

// NewGenerator creates a Generator. project and dataset address where the
// queried tables live; generated statements are qualified with them.
func NewGenerator(client llm.Client, project, dataset string, logger *slog.Logger) *Generator {
	return &Generator{client: client, project: project, dataset: dataset, logger: logger}
}

// Generate builds the grounding prompt, calls the model, and validates the
// result. Table references in the returned statement are fully qualified as
// project.dataset.table, so the statement executes as stored.
func (g *Generator) Generate(ctx context.Context, question string, bundle *model.Bundle) (*model.Statement, error) {
	if err := bundle.Validate(); err != nil {
		return nil, &GenerationError{Reason: "invalid metadata bundle", Err: err}
	}

	prompt, err := buildPrompt(question, bundle)
	if err != nil {
		return nil, &GenerationError{Reason: "prompt construction failed", Err: err}
	}
	if len(prompt) > maxPromptBytes {
		g.logger.Warn("grounding context over budget",
			"bytes", len(prompt), "tables", len(bundle.Tables), "columns", bundle.ColumnCount())
		return nil, ErrPayloadTooLarge
	}

	raw, err := g.client.Generate(ctx, llm.Request{
		System:    systemPrompt,
		Prompt:    prompt,
		MaxTokens: generateMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate sql: %w", err)
	}

	sql := ExtractSQL(raw)
	if sql == "" {
		return nil, &GenerationError{Reason: "model returned no sql"}
	}
	if err := validate(sql, bundle); err != nil {
		return nil, err
	}
	sql = Qualify(sql, bundle.TableNames(), g.project, g.dataset)

	g.logger.Debug("sql generated", "bytes", len(sql))
	return &model.Statement{SQL: sql, Bundle: bundle}, nil
}

var fenceRe = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")

// ExtractSQL pulls the statement out of a model completion. Fenced blocks
// win; otherwise the whole completion is taken as-is.
func ExtractSQL(raw string) string {
	if m := fenceRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

// validate enforces the read-only verb rule and that every referenced table
// exists in the bundle.
func validate(sql string, bundle *model.Bundle) error {
	if len(sql) > maxStatementBytes {
		return &GenerationError{Reason: fmt.Sprintf("statement exceeds %d bytes", maxStatementBytes), Statement: sql}
	}
	verb := firstWord(sql)
	if verb != "select" && verb != "with" {
		return &GenerationError{Reason: fmt.Sprintf("statement must be a query, got %q", verb), Statement: sql}
	}
	if commaListRe.MatchString(sql) {
		return &GenerationError{Reason: "comma-separated table list; tables must be joined explicitly", Statement: sql}
	}
	for _, name := range referencedTables(sql) {
		if !bundle.HasTable(name) {
			return &GenerationError{Reason: fmt.Sprintf("statement references unknown table %q", name), Statement: sql}
		}
	}
	return nil
}

func firstWord(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

var tableRefRe = regexp.MustCompile(`(?i)\b(?:from|join)\s+([A-Za-z_][A-Za-z0-9_.]*)`)

// commaListRe matches a comma directly after the first FROM table (optionally
// aliased). Comma joins would slip past both table validation and
// qualification, which only see the token right after FROM/JOIN.
var commaListRe = regexp.MustCompile(`(?i)\bfrom\s+[A-Za-z_][A-Za-z0-9_.]*(?:\s+(?:as\s+)?[A-Za-z_][A-Za-z0-9_]*)?\s*,`)

// referencedTables lists table tokens after FROM and JOIN keywords. CTE names
// defined in a WITH clause are excluded.
func referencedTables(sql string) []string {
	ctes := cteNames(sql)
	var out []string
	seen := make(map[string]bool)
	for _, m := range tableRefRe.FindAllStringSubmatch(sql, -1) {
		name := m[1]
		if ctes[strings.ToLower(name)] || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

var cteRe = regexp.MustCompile(`(?i)(?:\bwith\s+|,\s*)([A-Za-z_][A-Za-z0-9_]*)\s+as\s*\(`)

func cteNames(sql string) map[string]bool {
	names := make(map[string]bool)
	for _, m := range cteRe.FindAllStringSubmatch(sql, -1) {
		names[strings.ToLower(m[1])] = true
	}
	return names
}
