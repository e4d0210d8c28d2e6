package model

import (
	"testing"
	"time"
)

func TestBundleValidate(t *testing.T) {
	b := &Bundle{
		Tables: []Table{{Name: "calls"}, {Name: "agents"}},
		Joins:  []Join{{FromTable: "calls", ToTable: "agents", OnFields: []string{"agent_id"}}},
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	b.Joins = append(b.Joins, Join{FromTable: "calls", ToTable: "devices", OnFields: []string{"device_id"}})
	err := b.Validate()
	if err == nil {
		t.Fatal("expected error for dangling join")
	}
	if _, ok := err.(*DanglingJoinError); !ok {
		t.Fatalf("got %T, want *DanglingJoinError", err)
	}
}

func TestBuildRowSetTruncation(t *testing.T) {
	rows := make([]Row, 10)
	for i := range rows {
		rows[i] = Row{"n": i}
	}

	rs := BuildRowSet([]string{"n"}, rows, 4)
	if len(rs.Rows) != 4 {
		t.Errorf("got %d rows, want 4", len(rs.Rows))
	}
	if !rs.Truncated {
		t.Error("expected Truncated to be set")
	}

	rs = BuildRowSet([]string{"n"}, rows, 100)
	if rs.Truncated {
		t.Error("did not expect truncation below the cap")
	}
}

func TestInferColumnKinds(t *testing.T) {
	rows := []Row{
		{"day": "2025-07-01", "total": int64(120), "region": "northeast", "active": true, "ts": time.Now()},
		{"day": "2025-07-02", "total": int64(98), "region": "west", "active": false, "ts": time.Now()},
		{"day": "2025-07-03", "total": 101.5, "region": "west", "active": true, "ts": time.Now()},
	}
	rs := BuildRowSet([]string{"day", "total", "region", "active", "ts"}, rows, 0)

	want := map[string]ColumnKind{
		"day":    KindDatetime,
		"total":  KindNumeric,
		"region": KindCategorical,
		"active": KindBoolean,
		"ts":     KindDatetime,
	}
	for name, kind := range want {
		meta, ok := rs.Column(name)
		if !ok {
			t.Fatalf("column %q missing", name)
		}
		if meta.Kind != kind {
			t.Errorf("column %q: got kind %q, want %q", name, meta.Kind, kind)
		}
	}
}

func TestInferKindMixedValues(t *testing.T) {
	rows := []Row{{"v": int64(1)}, {"v": "apple"}}
	rs := BuildRowSet([]string{"v"}, rows, 0)
	meta, _ := rs.Column("v")
	if meta.Kind != KindOther {
		t.Errorf("got %q, want %q for mixed column", meta.Kind, KindOther)
	}
}

func TestInferKindAllNull(t *testing.T) {
	rows := []Row{{"v": nil}, {"v": nil}}
	rs := BuildRowSet([]string{"v"}, rows, 0)
	meta, _ := rs.Column("v")
	if meta.Kind != KindOther {
		t.Errorf("got %q, want %q for all-null column", meta.Kind, KindOther)
	}
}

func TestDistinctValues(t *testing.T) {
	rows := []Row{{"region": "west"}, {"region": "west"}, {"region": "east"}}
	rs := BuildRowSet([]string{"region"}, rows, 0)
	if got := rs.DistinctValues("region"); got != 2 {
		t.Errorf("got %d distinct values, want 2", got)
	}
}
