// Package metadata resolves a natural-language question to the slice of the
// semantic graph needed to ground SQL generation. Retrieval is concept-first:
// score concepts against the question, expand to their mapped tables, then
// pull full table detail and the joins among the selected tables.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/talk2data/talk2data/internal/graph"
	"github.com/talk2data/talk2data/internal/model"
)

// ErrNoMetadataFound means no concept scored above the threshold, so there
// is nothing to ground a query on.
var ErrNoMetadataFound = errors.New("no relevant metadata found for question")

const (
	// scoreThreshold is exclusive; a concept must score strictly above it.
	scoreThreshold = 5
	maxConcepts    = 5
	maxTables      = 10
)

// Retriever builds metadata bundles from the graph store.
type Retriever struct {
	store     *graph.Store
	scorer    Scorer
	maxTables int
	logger    *slog.Logger
}

// NewRetriever creates a Retriever. A nil scorer falls back to the keyword
// scorer.
func NewRetriever(store *graph.Store, scorer Scorer, logger *slog.Logger) *Retriever {
	if scorer == nil {
		scorer = KeywordScorer{}
	}
	return &Retriever{store: store, scorer: scorer, maxTables: maxTables, logger: logger}
}

// Retrieve returns the bundle grounding the question, or ErrNoMetadataFound.
func (r *Retriever) Retrieve(ctx context.Context, question string) (*model.Bundle, error) {
	concepts, err := r.store.ListConcepts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}

	scored := r.scoreConcepts(question, concepts)
	if len(scored) == 0 {
		return nil, ErrNoMetadataFound
	}

	names := make([]string, len(scored))
	for i, c := range scored {
		names[i] = c.Name
	}
	r.logger.Debug("concepts matched", "question", question, "concepts", names)

	tables, err := r.selectTables(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, ErrNoMetadataFound
	}

	bundle := &model.Bundle{Concepts: scored}
	for _, name := range tables {
		tbl, err := r.store.GetTable(ctx, name)
		if err != nil {
			if errors.Is(err, graph.ErrNotFound) {
				r.logger.Warn("concept maps to unknown table", "table", name)
				continue
			}
			return nil, fmt.Errorf("get table %q: %w", name, err)
		}
		bundle.Tables = append(bundle.Tables, *tbl)
	}
	if len(bundle.Tables) == 0 {
		return nil, ErrNoMetadataFound
	}

	joins, err := r.store.JoinsAmong(ctx, bundle.TableNames())
	if err != nil {
		return nil, fmt.Errorf("joins among tables: %w", err)
	}
	bundle.Joins = joins

	return bundle, nil
}

// scoreConcepts returns up to maxConcepts concepts scoring above the
// threshold, highest first. Ties break by name for determinism.
func (r *Retriever) scoreConcepts(question string, concepts []model.Concept) []model.Concept {
	var scored []model.Concept
	for _, c := range concepts {
		if s := r.scorer.Score(question, c); s > scoreThreshold {
			c.Score = s
			scored = append(scored, c)
		}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Name < scored[j].Name
	})
	if len(scored) > maxConcepts {
		scored = scored[:maxConcepts]
	}
	return scored
}

// selectTables expands concepts to tables and bounds the result. Tables of
// higher-confidence mappings and higher-scoring concepts come first; when
// over budget, better-connected tables win so join paths survive the cut.
func (r *Retriever) selectTables(ctx context.Context, concepts []string) ([]string, error) {
	mapped, err := r.store.TablesForConcepts(ctx, concepts)
	if err != nil {
		return nil, fmt.Errorf("tables for concepts: %w", err)
	}

	conceptRank := make(map[string]int, len(concepts))
	for i, name := range concepts {
		conceptRank[name] = i
	}
	sort.SliceStable(mapped, func(i, j int) bool {
		ci, cj := confidenceRank(mapped[i].Confidence), confidenceRank(mapped[j].Confidence)
		if ci != cj {
			return ci < cj
		}
		return conceptRank[mapped[i].Concept] < conceptRank[mapped[j].Concept]
	})

	seen := make(map[string]bool)
	var tables []string
	for _, m := range mapped {
		if !seen[m.Table] {
			seen[m.Table] = true
			tables = append(tables, m.Table)
		}
	}
	if len(tables) <= r.maxTables {
		return tables, nil
	}

	degrees, err := r.store.JoinPartners(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("join partners: %w", err)
	}
	// Stable sort keeps the confidence ordering among equally connected
	// tables.
	sort.SliceStable(tables, func(i, j int) bool {
		return degrees[tables[i]] > degrees[tables[j]]
	})
	dropped := tables[r.maxTables:]
	r.logger.Debug("table budget exceeded", "kept", r.maxTables, "dropped", dropped)
	return tables[:r.maxTables], nil
}

func confidenceRank(c string) int {
	switch c {
	case "high":
		return 0
	case "medium":
		return 1
	default:
		return 2
	}
}
