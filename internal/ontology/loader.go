// Package ontology loads a pre-authored semantic ontology into the graph
// store in three layers: the physical schema (tables, columns, joins), the
// business context (column enrichment), and the business concepts that span
// tables. The pipeline itself never writes to the graph; loading is an
// operator action via the CLI.
package ontology

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talk2data/talk2data/internal/graph"
	"github.com/talk2data/talk2data/internal/model"
)

// Schema is the physical-layer ontology file.
type Schema struct {
	Tables []SchemaTable `yaml:"tables"`
}

// SchemaTable describes one table, its columns, and its outgoing joins.
type SchemaTable struct {
	Name        string         `yaml:"name"`
	Type        string         `yaml:"type"`
	Description string         `yaml:"description"`
	Columns     []SchemaColumn `yaml:"columns"`
	Joins       []SchemaJoin   `yaml:"joins"`
}

// SchemaColumn describes one column of the physical schema.
type SchemaColumn struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// SchemaJoin describes a join edge from the enclosing table.
type SchemaJoin struct {
	To   string   `yaml:"to"`
	On   []string `yaml:"on"`
	Kind string   `yaml:"kind"`
}

// Context is the business-context enrichment file.
type Context struct {
	Columns []ContextColumn `yaml:"columns"`
}

// ContextColumn enriches one table column with business meaning.
type ContextColumn struct {
	Table        string   `yaml:"table"`
	Column       string   `yaml:"column"`
	SemanticType string   `yaml:"semantic_type"`
	Description  string   `yaml:"description"`
	SampleValues []string `yaml:"sample_values"`
}

// Concepts is the upper-ontology file mapping business concepts to tables.
type Concepts struct {
	Concepts []ConceptDef `yaml:"concepts"`
}

// ConceptDef declares one business concept and its table mappings.
type ConceptDef struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Tables      []ConceptMapping `yaml:"tables"`
}

// ConceptMapping links a concept to a table with a confidence level.
type ConceptMapping struct {
	Name       string `yaml:"name"`
	Confidence string `yaml:"confidence"`
}

// Loader writes ontology files into the graph store.
type Loader struct {
	store  *graph.Store
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(store *graph.Store, logger *slog.Logger) *Loader {
	return &Loader{store: store, logger: logger}
}

// Load reads the three ontology layers and writes them to the graph store.
// contextPath and conceptsPath may be empty; the schema file is required.
// When reset is true the existing graph is cleared first.
func (l *Loader) Load(ctx context.Context, schemaPath, contextPath, conceptsPath string, reset bool) error {
	if reset {
		if err := l.store.Reset(ctx); err != nil {
			return fmt.Errorf("reset graph: %w", err)
		}
		l.logger.Info("cleared existing graph")
	}

	if err := l.loadSchema(ctx, schemaPath); err != nil {
		return err
	}
	if contextPath != "" {
		if err := l.loadContext(ctx, contextPath); err != nil {
			return err
		}
	}
	if conceptsPath != "" {
		if err := l.loadConcepts(ctx, conceptsPath); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) loadSchema(ctx context.Context, path string) error {
	var schema Schema
	if err := readYAML(path, &schema); err != nil {
		return fmt.Errorf("read schema file: %w", err)
	}

	// Tables first so join foreign keys resolve.
	for _, st := range schema.Tables {
		tbl := model.Table{Name: st.Name, Type: st.Type, Description: st.Description}
		if tbl.Type == "" {
			tbl.Type = "table"
		}
		for _, c := range st.Columns {
			tbl.Columns = append(tbl.Columns, model.Column{Name: c.Name, Type: c.Type})
		}
		if err := l.store.UpsertTable(ctx, tbl); err != nil {
			return fmt.Errorf("load table %q: %w", st.Name, err)
		}
	}

	joins := 0
	for _, st := range schema.Tables {
		for _, j := range st.Joins {
			if j.To == "" || len(j.On) == 0 {
				l.logger.Warn("skipping incomplete join", "table", st.Name, "to", j.To)
				continue
			}
			err := l.store.UpsertJoin(ctx, model.Join{
				FromTable: st.Name, ToTable: j.To, OnFields: j.On, Kind: j.Kind,
			})
			if err != nil {
				return fmt.Errorf("load join %s->%s: %w", st.Name, j.To, err)
			}
			joins++
		}
	}

	l.logger.Info("loaded physical schema", "tables", len(schema.Tables), "joins", joins)
	return nil
}

func (l *Loader) loadContext(ctx context.Context, path string) error {
	var bc Context
	if err := readYAML(path, &bc); err != nil {
		return fmt.Errorf("read context file: %w", err)
	}

	enriched := 0
	for _, c := range bc.Columns {
		err := l.store.EnrichColumn(ctx, c.Table, c.Column, model.Column{
			SemanticType: c.SemanticType,
			Description:  c.Description,
			SampleValues: c.SampleValues,
		})
		if errors.Is(err, graph.ErrNotFound) {
			l.logger.Warn("context references unknown column", "table", c.Table, "column", c.Column)
			continue
		}
		if err != nil {
			return fmt.Errorf("enrich %s.%s: %w", c.Table, c.Column, err)
		}
		enriched++
	}

	l.logger.Info("loaded business context", "columns", enriched)
	return nil
}

func (l *Loader) loadConcepts(ctx context.Context, path string) error {
	var cc Concepts
	if err := readYAML(path, &cc); err != nil {
		return fmt.Errorf("read concepts file: %w", err)
	}

	for _, def := range cc.Concepts {
		mapping := make(map[string]string, len(def.Tables))
		for _, t := range def.Tables {
			mapping[t.Name] = t.Confidence
		}
		c := model.Concept{Name: def.Name, Description: def.Description}
		if err := l.store.UpsertConcept(ctx, c, mapping); err != nil {
			return fmt.Errorf("load concept %q: %w", def.Name, err)
		}
	}

	l.logger.Info("loaded concepts", "concepts", len(cc.Concepts))
	return nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}
