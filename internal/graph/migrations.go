package graph

import (
	"fmt"
	"strings"
)

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS tables (
			name TEXT PRIMARY KEY,
			type TEXT NOT NULL DEFAULT 'table',
			description TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS columns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_name TEXT NOT NULL REFERENCES tables(name) ON DELETE CASCADE,
			name TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			data_type TEXT NOT NULL DEFAULT '',
			semantic_type TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			sample_values TEXT NOT NULL DEFAULT '',
			UNIQUE(table_name, name)
		)`,

		`CREATE TABLE IF NOT EXISTS concepts (
			name TEXT PRIMARY KEY,
			description TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS concept_tables (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			concept_name TEXT NOT NULL REFERENCES concepts(name) ON DELETE CASCADE,
			table_name TEXT NOT NULL REFERENCES tables(name) ON DELETE CASCADE,
			confidence TEXT NOT NULL DEFAULT 'medium',
			UNIQUE(concept_name, table_name)
		)`,

		`CREATE TABLE IF NOT EXISTS joins (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			from_table TEXT NOT NULL REFERENCES tables(name) ON DELETE CASCADE,
			to_table TEXT NOT NULL REFERENCES tables(name) ON DELETE CASCADE,
			on_fields TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL DEFAULT 'many_to_one',
			UNIQUE(from_table, to_table)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_columns_table ON columns(table_name)`,
		`CREATE INDEX IF NOT EXISTS idx_concept_tables_concept ON concept_tables(concept_name)`,
		`CREATE INDEX IF NOT EXISTS idx_joins_from ON joins(from_table)`,
	}

	for i, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			stmt := strings.TrimSpace(m)
			if idx := strings.IndexByte(stmt, '\n'); idx > 0 {
				stmt = stmt[:idx]
			}
			return fmt.Errorf("migration %d (%s): %w", i, stmt, err)
		}
	}
	return nil
}
