package model

// Concept is a named business-semantic entity in the graph store. Concepts
// sit above the physical schema and link to one or more tables.
type Concept struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Score       float64 `json:"score,omitempty"`
	TableCount  int     `json:"table_count,omitempty"`
}

// Column describes a single column of a warehouse table, enriched with the
// business context stored in the semantic graph.
type Column struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	SemanticType string   `json:"semantic_type,omitempty"`
	Description  string   `json:"description,omitempty"`
	SampleValues []string `json:"sample_values,omitempty"`
}

// Table describes a warehouse table or view and its columns.
type Table struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // "table" or "view"
	Description string   `json:"description,omitempty"`
	Columns     []Column `json:"columns"`
}

// Join describes a valid join relationship between two tables. OnFields holds
// every join key known for the table pair; joins for the same pair are
// consolidated into one entry.
type Join struct {
	FromTable string   `json:"from_table"`
	ToTable   string   `json:"to_table"`
	OnFields  []string `json:"on_fields"`
	Kind      string   `json:"kind"` // cardinality hint, e.g. "many_to_one"
}

// Bundle is the bounded metadata subgraph retrieved for one question:
// matched concepts, their candidate tables with columns, and the join
// relationships connecting those tables.
//
// Invariant: every table referenced by a Join appears in Tables.
type Bundle struct {
	Concepts []Concept `json:"concepts"`
	Tables   []Table   `json:"tables"`
	Joins    []Join    `json:"joins"`
}

// HasTable reports whether the bundle contains a table with the given name.
func (b *Bundle) HasTable(name string) bool {
	for _, t := range b.Tables {
		if t.Name == name {
			return true
		}
	}
	return false
}

// TableNames returns the names of all tables in the bundle.
func (b *Bundle) TableNames() []string {
	names := make([]string, len(b.Tables))
	for i, t := range b.Tables {
		names[i] = t.Name
	}
	return names
}

// ColumnCount returns the total number of columns across all tables.
func (b *Bundle) ColumnCount() int {
	n := 0
	for _, t := range b.Tables {
		n += len(t.Columns)
	}
	return n
}

// Validate checks the bundle's structural invariant: no join may reference a
// table that is absent from the table set.
func (b *Bundle) Validate() error {
	for _, j := range b.Joins {
		if !b.HasTable(j.FromTable) {
			return &DanglingJoinError{Table: j.FromTable}
		}
		if !b.HasTable(j.ToTable) {
			return &DanglingJoinError{Table: j.ToTable}
		}
	}
	return nil
}

// DanglingJoinError reports a join edge whose endpoint is missing from the
// bundle's table set.
type DanglingJoinError struct {
	Table string
}

func (e *DanglingJoinError) Error() string {
	return "join references table not in bundle: " + e.Table
}

// Statement is a generated query-language statement together with the
// metadata bundle it was grounded in.
type Statement struct {
	SQL    string  `json:"sql"`
	Bundle *Bundle `json:"-"`
}
