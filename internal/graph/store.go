// Package graph implements the semantic graph store backing metadata
// retrieval: business concepts, the tables they relate to, column-level
// business context, and the join relationships between tables.
//
// The graph is consumed pre-populated (see internal/ontology for the loader);
// this package only answers concept-match and traversal queries against it.
package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talk2data/talk2data/internal/model"
)

// Store holds the semantic graph in SQLite.
type Store struct {
	db *sqlx.DB
}

// NewStore opens (or creates) the graph database. Pass empty string for
// in-memory.
func NewStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "graph.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open graph database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate graph database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Reset removes every node and edge from the graph. The loader calls this
// before a full reload.
func (s *Store) Reset(ctx context.Context) error {
	for _, table := range []string{"joins", "concept_tables", "columns", "concepts", "tables"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Write side (used by the ontology loader)
// ---------------------------------------------------------------------------

// UpsertTable inserts or replaces a table node and its columns.
func (s *Store) UpsertTable(ctx context.Context, t model.Table) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tables (name, type, description) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET type = excluded.type, description = excluded.description`,
		t.Name, t.Type, t.Description); err != nil {
		return fmt.Errorf("upsert table %q: %w", t.Name, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM columns WHERE table_name = ?", t.Name); err != nil {
		return fmt.Errorf("clear columns for %q: %w", t.Name, err)
	}
	for i, c := range t.Columns {
		samples := strings.Join(c.SampleValues, "\x1f")
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO columns (table_name, name, position, data_type, semantic_type, description, sample_values)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.Name, c.Name, i, c.Type, c.SemanticType, c.Description, samples); err != nil {
			return fmt.Errorf("insert column %s.%s: %w", t.Name, c.Name, err)
		}
	}
	return tx.Commit()
}

// EnrichColumn merges business context into an existing column node. Empty
// fields leave the stored value untouched.
func (s *Store) EnrichColumn(ctx context.Context, table, column string, c model.Column) error {
	samples := strings.Join(c.SampleValues, "\x1f")
	res, err := s.db.ExecContext(ctx,
		`UPDATE columns SET
			semantic_type = CASE WHEN ? != '' THEN ? ELSE semantic_type END,
			description   = CASE WHEN ? != '' THEN ? ELSE description END,
			sample_values = CASE WHEN ? != '' THEN ? ELSE sample_values END
		 WHERE table_name = ? AND name = ?`,
		c.SemanticType, c.SemanticType, c.Description, c.Description, samples, samples, table, column)
	if err != nil {
		return fmt.Errorf("enrich column %s.%s: %w", table, column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("enrich column rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertConcept inserts or replaces a concept node and its table mappings.
// Confidence is "high", "medium", or "low" and orders traversal.
func (s *Store) UpsertConcept(ctx context.Context, c model.Concept, tables map[string]string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO concepts (name, description) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET description = excluded.description`,
		c.Name, c.Description); err != nil {
		return fmt.Errorf("upsert concept %q: %w", c.Name, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM concept_tables WHERE concept_name = ?", c.Name); err != nil {
		return fmt.Errorf("clear concept mappings for %q: %w", c.Name, err)
	}
	for table, confidence := range tables {
		if confidence == "" {
			confidence = "medium"
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO concept_tables (concept_name, table_name, confidence) VALUES (?, ?, ?)",
			c.Name, table, confidence); err != nil {
			return fmt.Errorf("map concept %q to table %q: %w", c.Name, table, err)
		}
	}
	return tx.Commit()
}

// UpsertJoin records a join relationship. Joins for the same table pair are
// consolidated: new fields are appended to the existing edge.
func (s *Store) UpsertJoin(ctx context.Context, j model.Join) error {
	if j.Kind == "" {
		j.Kind = "many_to_one"
	}

	var existing string
	err := s.db.GetContext(ctx, &existing,
		"SELECT on_fields FROM joins WHERE from_table = ? AND to_table = ?",
		j.FromTable, j.ToTable)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("look up join %s->%s: %w", j.FromTable, j.ToTable, err)
	}
	if err == nil {
		fields := splitFields(existing)
		for _, f := range j.OnFields {
			if !containsField(fields, f) {
				fields = append(fields, f)
			}
		}
		if _, err := s.db.ExecContext(ctx,
			"UPDATE joins SET on_fields = ?, kind = ? WHERE from_table = ? AND to_table = ?",
			strings.Join(fields, "\x1f"), j.Kind, j.FromTable, j.ToTable); err != nil {
			return fmt.Errorf("consolidate join %s->%s: %w", j.FromTable, j.ToTable, err)
		}
		return nil
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO joins (from_table, to_table, on_fields, kind) VALUES (?, ?, ?, ?)",
		j.FromTable, j.ToTable, strings.Join(j.OnFields, "\x1f"), j.Kind); err != nil {
		return fmt.Errorf("insert join %s->%s: %w", j.FromTable, j.ToTable, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Query side (used by metadata retrieval)
// ---------------------------------------------------------------------------

// ListConcepts returns every concept node with its table count.
func (s *Store) ListConcepts(ctx context.Context) ([]model.Concept, error) {
	var rows []struct {
		Name        string `db:"name"`
		Description string `db:"description"`
		TableCount  int    `db:"table_count"`
	}
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT c.name, c.description, COUNT(ct.table_name) AS table_count
		FROM concepts c
		LEFT JOIN concept_tables ct ON ct.concept_name = c.name
		GROUP BY c.name, c.description
		ORDER BY c.name`); err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}

	concepts := make([]model.Concept, len(rows))
	for i, r := range rows {
		concepts[i] = model.Concept{Name: r.Name, Description: r.Description, TableCount: r.TableCount}
	}
	return concepts, nil
}

// ConceptTable pairs a table with the confidence of its concept mapping.
type ConceptTable struct {
	Concept    string `db:"concept_name"`
	Table      string `db:"table_name"`
	Confidence string `db:"confidence"`
}

// TablesForConcepts returns the tables mapped to any of the named concepts,
// ordered by mapping confidence (high before medium before low).
func (s *Store) TablesForConcepts(ctx context.Context, concepts []string) ([]ConceptTable, error) {
	if len(concepts) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT concept_name, table_name, confidence
		FROM concept_tables
		WHERE concept_name IN (?)
		ORDER BY CASE confidence WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, concept_name`,
		concepts)
	if err != nil {
		return nil, fmt.Errorf("build concept table query: %w", err)
	}

	var rows []ConceptTable
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("tables for concepts: %w", err)
	}
	return rows, nil
}

// GetTable returns a table node with its columns, or ErrNotFound.
func (s *Store) GetTable(ctx context.Context, name string) (*model.Table, error) {
	var trow struct {
		Name        string `db:"name"`
		Type        string `db:"type"`
		Description string `db:"description"`
	}
	if err := s.db.GetContext(ctx, &trow, "SELECT name, type, description FROM tables WHERE name = ?", name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get table %q: %w", name, err)
	}

	var crows []struct {
		Name         string `db:"name"`
		DataType     string `db:"data_type"`
		SemanticType string `db:"semantic_type"`
		Description  string `db:"description"`
		SampleValues string `db:"sample_values"`
	}
	if err := s.db.SelectContext(ctx, &crows,
		"SELECT name, data_type, semantic_type, description, sample_values FROM columns WHERE table_name = ? ORDER BY position",
		name); err != nil {
		return nil, fmt.Errorf("get columns for %q: %w", name, err)
	}

	t := &model.Table{Name: trow.Name, Type: trow.Type, Description: trow.Description}
	for _, c := range crows {
		t.Columns = append(t.Columns, model.Column{
			Name:         c.Name,
			Type:         c.DataType,
			SemanticType: c.SemanticType,
			Description:  c.Description,
			SampleValues: splitFields(c.SampleValues),
		})
	}
	return t, nil
}

// JoinsAmong returns every join edge whose endpoints are both in the given
// table set.
func (s *Store) JoinsAmong(ctx context.Context, tables []string) ([]model.Join, error) {
	if len(tables) < 2 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		"SELECT from_table, to_table, on_fields, kind FROM joins WHERE from_table IN (?) AND to_table IN (?)",
		tables, tables)
	if err != nil {
		return nil, fmt.Errorf("build joins query: %w", err)
	}

	var rows []struct {
		FromTable string `db:"from_table"`
		ToTable   string `db:"to_table"`
		OnFields  string `db:"on_fields"`
		Kind      string `db:"kind"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("joins among tables: %w", err)
	}

	joins := make([]model.Join, len(rows))
	for i, r := range rows {
		joins[i] = model.Join{
			FromTable: r.FromTable,
			ToTable:   r.ToTable,
			OnFields:  splitFields(r.OnFields),
			Kind:      r.Kind,
		}
	}
	return joins, nil
}

// JoinPartners returns, for each table in the set, how many join edges connect
// it to other tables in the set. Used to rank tables by connectivity.
func (s *Store) JoinPartners(ctx context.Context, tables []string) (map[string]int, error) {
	joins, err := s.JoinsAmong(ctx, tables)
	if err != nil {
		return nil, err
	}
	degree := make(map[string]int)
	for _, j := range joins {
		degree[j.FromTable]++
		degree[j.ToTable]++
	}
	return degree, nil
}

func splitFields(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\x1f")
}

func containsField(fields []string, f string) bool {
	for _, x := range fields {
		if x == f {
			return true
		}
	}
	return false
}
