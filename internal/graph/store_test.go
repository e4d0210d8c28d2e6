package graph

import (
	"context"
	"testing"

	"github.com/talk2data/talk2data/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("") // in-memory
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedGraph(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	tables := []model.Table{
		{
			Name: "call_facts", Type: "table", Description: "One row per customer call",
			Columns: []model.Column{
				{Name: "call_id", Type: "STRING"},
				{Name: "call_date", Type: "DATE", SemanticType: "datetime"},
				{Name: "agent_id", Type: "STRING"},
				{Name: "duration_sec", Type: "INT64", SemanticType: "numeric"},
			},
		},
		{
			Name: "agent_dim", Type: "table", Description: "Agent dimension",
			Columns: []model.Column{
				{Name: "agent_id", Type: "STRING"},
				{Name: "agent_name", Type: "STRING", SampleValues: []string{"Avery", "Jordan"}},
			},
		},
		{
			Name: "device_dim", Type: "table", Description: "Device dimension",
			Columns: []model.Column{
				{Name: "device_id", Type: "STRING"},
			},
		},
	}
	for _, tbl := range tables {
		if err := s.UpsertTable(ctx, tbl); err != nil {
			t.Fatalf("UpsertTable(%s): %v", tbl.Name, err)
		}
	}

	concepts := map[string]map[string]string{
		"Call Volume":       {"call_facts": "high", "agent_dim": "medium"},
		"Agent Performance": {"agent_dim": "high", "call_facts": "high"},
		"Device Inventory":  {"device_dim": "high"},
	}
	for name, mapping := range concepts {
		c := model.Concept{Name: name, Description: name + " concept"}
		if err := s.UpsertConcept(ctx, c, mapping); err != nil {
			t.Fatalf("UpsertConcept(%s): %v", name, err)
		}
	}

	if err := s.UpsertJoin(ctx, model.Join{
		FromTable: "call_facts", ToTable: "agent_dim", OnFields: []string{"agent_id"},
	}); err != nil {
		t.Fatalf("UpsertJoin: %v", err)
	}
}

func TestListConcepts(t *testing.T) {
	s := newTestStore(t)
	seedGraph(t, s)

	concepts, err := s.ListConcepts(context.Background())
	if err != nil {
		t.Fatalf("ListConcepts: %v", err)
	}
	if len(concepts) != 3 {
		t.Fatalf("got %d concepts, want 3", len(concepts))
	}
	for _, c := range concepts {
		if c.Name == "Call Volume" && c.TableCount != 2 {
			t.Errorf("Call Volume table count = %d, want 2", c.TableCount)
		}
	}
}

func TestTablesForConceptsOrdering(t *testing.T) {
	s := newTestStore(t)
	seedGraph(t, s)

	rows, err := s.TablesForConcepts(context.Background(), []string{"Call Volume"})
	if err != nil {
		t.Fatalf("TablesForConcepts: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	// High confidence mapping comes first.
	if rows[0].Table != "call_facts" {
		t.Errorf("first table = %q, want call_facts", rows[0].Table)
	}
}

func TestGetTable(t *testing.T) {
	s := newTestStore(t)
	seedGraph(t, s)

	tbl, err := s.GetTable(context.Background(), "agent_dim")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if len(tbl.Columns) != 2 {
		t.Fatalf("got %d columns, want 2", len(tbl.Columns))
	}
	if got := tbl.Columns[1].SampleValues; len(got) != 2 || got[0] != "Avery" {
		t.Errorf("sample values = %v, want [Avery Jordan]", got)
	}

	if _, err := s.GetTable(context.Background(), "nope"); err != ErrNotFound {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestJoinConsolidation(t *testing.T) {
	s := newTestStore(t)
	seedGraph(t, s)
	ctx := context.Background()

	// Same table pair with a second join key merges into one edge.
	if err := s.UpsertJoin(ctx, model.Join{
		FromTable: "call_facts", ToTable: "agent_dim", OnFields: []string{"center_id"},
	}); err != nil {
		t.Fatalf("UpsertJoin: %v", err)
	}

	joins, err := s.JoinsAmong(ctx, []string{"call_facts", "agent_dim"})
	if err != nil {
		t.Fatalf("JoinsAmong: %v", err)
	}
	if len(joins) != 1 {
		t.Fatalf("got %d joins, want 1 consolidated edge", len(joins))
	}
	if len(joins[0].OnFields) != 2 {
		t.Errorf("got fields %v, want 2 consolidated fields", joins[0].OnFields)
	}
}

func TestJoinsAmongExcludesOutsiders(t *testing.T) {
	s := newTestStore(t)
	seedGraph(t, s)

	joins, err := s.JoinsAmong(context.Background(), []string{"call_facts", "device_dim"})
	if err != nil {
		t.Fatalf("JoinsAmong: %v", err)
	}
	if len(joins) != 0 {
		t.Errorf("got %d joins, want 0 (agent_dim not in set)", len(joins))
	}
}

func TestEnrichColumn(t *testing.T) {
	s := newTestStore(t)
	seedGraph(t, s)
	ctx := context.Background()

	err := s.EnrichColumn(ctx, "call_facts", "duration_sec", model.Column{
		Description:  "Call length in seconds",
		SampleValues: []string{"30", "120"},
	})
	if err != nil {
		t.Fatalf("EnrichColumn: %v", err)
	}

	tbl, err := s.GetTable(ctx, "call_facts")
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	for _, c := range tbl.Columns {
		if c.Name != "duration_sec" {
			continue
		}
		if c.Description != "Call length in seconds" {
			t.Errorf("description = %q", c.Description)
		}
		// Enrichment with empty semantic type keeps the loaded value.
		if c.SemanticType != "numeric" {
			t.Errorf("semantic type = %q, want numeric", c.SemanticType)
		}
	}

	if err := s.EnrichColumn(ctx, "call_facts", "ghost", model.Column{}); err != ErrNotFound {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
