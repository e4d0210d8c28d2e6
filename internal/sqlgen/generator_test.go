package sqlgen

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/talk2data/talk2data/internal/llm"
	"github.com/talk2data/talk2data/internal/model"
)

func testBundle() *model.Bundle {
	return &model.Bundle{
		Concepts: []model.Concept{{Name: "call volume"}},
		Tables: []model.Table{
			{Name: "call_facts", Columns: []model.Column{
				{Name: "call_id", Type: "STRING"},
				{Name: "agent_id", Type: "STRING"},
				{Name: "duration_seconds", Type: "INT64"},
			}},
			{Name: "agent_dim", Columns: []model.Column{
				{Name: "agent_id", Type: "STRING"},
				{Name: "agent_name", Type: "STRING"},
			}},
		},
		Joins: []model.Join{
			{FromTable: "call_facts", ToTable: "agent_dim", OnFields: []string{"agent_id"}, Kind: "many_to_one"},
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClient(out string) llm.Client {
	return llm.Func(func(ctx context.Context, req llm.Request) (string, error) {
		return out, nil
	})
}

func TestGenerateHappyPath(t *testing.T) {
	var gotPrompt string
	client := llm.Func(func(ctx context.Context, req llm.Request) (string, error) {
		gotPrompt = req.Prompt
		return "Here you go:\n```sql\nSELECT agent_name, COUNT(*) AS calls\nFROM call_facts\nJOIN agent_dim ON call_facts.agent_id = agent_dim.agent_id\nGROUP BY agent_name\n```", nil
	})

	g := NewGenerator(client, "", "", testLogger())
	stmt, err := g.Generate(context.Background(), "calls per agent", testBundle())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(stmt.SQL, "SELECT agent_name") {
		t.Errorf("sql = %q", stmt.SQL)
	}
	if strings.Contains(stmt.SQL, "```") {
		t.Error("fences not stripped")
	}
	if !strings.Contains(gotPrompt, "call_facts.agent_id = agent_dim.agent_id") {
		t.Error("prompt missing join snippet")
	}
	if !strings.Contains(gotPrompt, `"duration_seconds"`) {
		t.Error("prompt missing schema context")
	}
}

func TestGenerateQualifiesStoredStatement(t *testing.T) {
	client := fixedClient("SELECT agent_name, COUNT(*) AS calls\nFROM call_facts\nJOIN agent_dim ON call_facts.agent_id = agent_dim.agent_id\nGROUP BY agent_name")

	g := NewGenerator(client, "data-proj", "telephony", testLogger())
	stmt, err := g.Generate(context.Background(), "calls per agent", testBundle())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	// The statement as stored must carry the full address; a bare table name
	// would not be runnable when the connection lives in another project.
	if !strings.Contains(stmt.SQL, "FROM data-proj.telephony.call_facts") {
		t.Errorf("from not qualified: %q", stmt.SQL)
	}
	if !strings.Contains(stmt.SQL, "JOIN data-proj.telephony.agent_dim") {
		t.Errorf("join not qualified: %q", stmt.SQL)
	}
	if strings.Contains(stmt.SQL, "FROM call_facts") {
		t.Errorf("bare table name survived: %q", stmt.SQL)
	}
}

func TestGenerateRejectsCommaJoin(t *testing.T) {
	sql := "SELECT COUNT(*) FROM call_facts, agent_dim WHERE call_facts.agent_id = agent_dim.agent_id"
	g := NewGenerator(fixedClient(sql), "", "", testLogger())
	_, err := g.Generate(context.Background(), "q", testBundle())
	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(ge.Reason, "comma") {
		t.Errorf("reason = %q", ge.Reason)
	}

	// Commas elsewhere are fine: select lists, IN lists, aliased tables.
	ok := []string{
		"SELECT call_id, agent_id FROM call_facts",
		"SELECT COUNT(*) FROM call_facts WHERE agent_id IN ('a1', 'a2')",
		"SELECT cf.call_id, ad.agent_name FROM call_facts cf JOIN agent_dim ad ON cf.agent_id = ad.agent_id",
	}
	for _, q := range ok {
		g := NewGenerator(fixedClient(q), "", "", testLogger())
		if _, err := g.Generate(context.Background(), "q", testBundle()); err != nil {
			t.Errorf("Generate(%q): %v", q, err)
		}
	}
}

func TestGenerateRejectsUnknownTable(t *testing.T) {
	g := NewGenerator(fixedClient("SELECT * FROM secrets"), "", "", testLogger())
	_, err := g.Generate(context.Background(), "q", testBundle())
	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(ge.Reason, "secrets") {
		t.Errorf("reason = %q", ge.Reason)
	}
}

func TestGenerateRejectsNonQuery(t *testing.T) {
	g := NewGenerator(fixedClient("DROP TABLE call_facts"), "", "", testLogger())
	_, err := g.Generate(context.Background(), "q", testBundle())
	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("err = %v", err)
	}
	if ge.Statement != "DROP TABLE call_facts" {
		t.Errorf("statement = %q, want the rejected sql", ge.Statement)
	}
}

func TestGenerateRejectsOversizedStatement(t *testing.T) {
	sql := "SELECT '" + strings.Repeat("x", maxStatementBytes) + "' FROM call_facts"
	g := NewGenerator(fixedClient(sql), "", "", testLogger())
	_, err := g.Generate(context.Background(), "q", testBundle())
	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(ge.Reason, "exceeds") {
		t.Errorf("reason = %q", ge.Reason)
	}
}

func TestGenerateAllowsCTE(t *testing.T) {
	sql := "WITH daily AS (SELECT call_id FROM call_facts) SELECT COUNT(*) FROM daily"
	g := NewGenerator(fixedClient(sql), "", "", testLogger())
	stmt, err := g.Generate(context.Background(), "q", testBundle())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if stmt.SQL != sql {
		t.Errorf("sql = %q", stmt.SQL)
	}
}

func TestGeneratePayloadTooLarge(t *testing.T) {
	bundle := testBundle()
	big := strings.Repeat("x", maxPromptBytes)
	bundle.Tables[0].Description = big

	g := NewGenerator(fixedClient("SELECT 1"), "", "", testLogger())
	_, err := g.Generate(context.Background(), "q", bundle)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("err = %v, want ErrPayloadTooLarge", err)
	}
}

func TestGenerateWrapsModelError(t *testing.T) {
	client := llm.Func(func(ctx context.Context, req llm.Request) (string, error) {
		return "", &llm.Error{Kind: llm.KindRateLimited}
	})
	g := NewGenerator(client, "", "", testLogger())
	_, err := g.Generate(context.Background(), "q", testBundle())
	var be *llm.Error
	if !errors.As(err, &be) {
		t.Fatalf("err = %v", err)
	}
}

func TestExtractSQL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"```sql\nSELECT 1\n```", "SELECT 1"},
		{"```\nSELECT 2\n```", "SELECT 2"},
		{"prose before\n```sql\nSELECT 3\n```\nprose after", "SELECT 3"},
		{"SELECT 4", "SELECT 4"},
		{"  SELECT 5  ", "SELECT 5"},
	}
	for _, tc := range cases {
		if got := ExtractSQL(tc.in); got != tc.want {
			t.Errorf("ExtractSQL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestQualify(t *testing.T) {
	tables := []string{"call_facts", "agent_dim"}
	sql := "SELECT agent_name FROM call_facts JOIN agent_dim ON call_facts.agent_id = agent_dim.agent_id"

	got := Qualify(sql, tables, "analytics-data", "telephony")
	if !strings.Contains(got, "FROM analytics-data.telephony.call_facts") {
		t.Errorf("from not qualified: %q", got)
	}
	if !strings.Contains(got, "JOIN analytics-data.telephony.agent_dim") {
		t.Errorf("join not qualified: %q", got)
	}
	// Column references keep the bare table qualifier.
	if !strings.Contains(got, "ON call_facts.agent_id = agent_dim.agent_id") {
		t.Errorf("column refs rewritten: %q", got)
	}
}

func TestQualifyNoProject(t *testing.T) {
	sql := "SELECT 1 FROM call_facts"
	if got := Qualify(sql, []string{"call_facts"}, "", ""); got != sql {
		t.Errorf("got %q", got)
	}
}

func TestQualifyLeavesQualifiedAlone(t *testing.T) {
	sql := "SELECT 1 FROM other.ds.call_facts"
	got := Qualify(sql, []string{"call_facts"}, "p", "d")
	if got != sql {
		t.Errorf("got %q", got)
	}
}
