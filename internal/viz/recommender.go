// Package viz recommends a chart for a query result. Selection is a fixed
// decision table over the inferred column kinds; an optional model pass only
// rephrases the reason, never overrides the chart. Results that cannot be
// charted fall back to a plain table, which is always a valid answer.
package viz

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talk2data/talk2data/internal/llm"
	"github.com/talk2data/talk2data/internal/model"
)

const (
	// pieMaxSlices is the largest category count a pie stays readable at.
	pieMaxSlices = 5
	// barMaxCategories bounds bar charts; past this a table reads better.
	barMaxCategories = 20

	reasonMaxTokens = 120
)

// Recommender selects a visualization for a row set.
type Recommender struct {
	client llm.Client
	logger *slog.Logger
}

// NewRecommender creates a Recommender. client may be nil; selection is
// rule-based and the model only polishes the explanation.
func NewRecommender(client llm.Client, logger *slog.Logger) *Recommender {
	return &Recommender{client: client, logger: logger}
}

// Recommend returns a visualization for the result. It never fails; any
// result can at least be shown as a table.
func (r *Recommender) Recommend(ctx context.Context, question string, rs *model.RowSet) *model.Visualization {
	v := selectChart(rs)
	r.logger.Debug("chart selected", "chart", string(v.Chart), "reason", v.Reason)

	if r.client != nil && v.Chart != model.ChartTable {
		if reason, err := r.polishReason(ctx, question, v); err == nil && reason != "" {
			v.Reason = reason
		}
	}
	return v
}

// selectChart is the decision table. Column kinds are inspected in order:
// a time axis wins, then categorical breakdowns, then numeric pairs.
func selectChart(rs *model.RowSet) *model.Visualization {
	if rs.Empty() {
		return tableViz("there is no data to chart")
	}

	timeCol := firstOfKind(rs, model.KindDatetime)
	numCols := allOfKind(rs, model.KindNumeric)
	catCol := firstOfKind(rs, model.KindCategorical)

	switch {
	case timeCol != "" && len(numCols) > 0:
		v := &model.Visualization{
			Chart:   model.ChartLine,
			Reason:  "a time column with numeric values shows a trend best as a line chart",
			Mapping: model.FieldMapping{X: timeCol, Y: numCols[0]},
		}
		if catCol != "" && rs.DistinctValues(catCol) <= barMaxCategories {
			v.Mapping.Series = catCol
		}
		return v

	case catCol != "" && len(numCols) == 1:
		distinct := rs.DistinctValues(catCol)
		if distinct > barMaxCategories {
			return tableViz(fmt.Sprintf("%d categories is too many for a readable chart", distinct))
		}
		if distinct <= pieMaxSlices && rs.RowCount() == distinct {
			return &model.Visualization{
				Chart:   model.ChartPie,
				Reason:  "a few categories with one measure read well as shares of a whole",
				Mapping: model.FieldMapping{X: catCol, Y: numCols[0]},
			}
		}
		return &model.Visualization{
			Chart:   model.ChartBar,
			Reason:  "one measure across categories compares best as a bar chart",
			Mapping: model.FieldMapping{X: catCol, Y: numCols[0]},
		}

	case len(numCols) >= 2 && catCol == "" && timeCol == "":
		return &model.Visualization{
			Chart:   model.ChartScatter,
			Reason:  "two numeric columns suggest looking at their relationship",
			Mapping: model.FieldMapping{X: numCols[0], Y: numCols[1]},
		}
	}

	return tableViz("the column mix does not fit a standard chart")
}

func tableViz(reason string) *model.Visualization {
	return &model.Visualization{Chart: model.ChartTable, Reason: reason}
}

func firstOfKind(rs *model.RowSet, kind model.ColumnKind) string {
	for _, c := range rs.Columns {
		if c.Kind == kind {
			return c.Name
		}
	}
	return ""
}

func allOfKind(rs *model.RowSet, kind model.ColumnKind) []string {
	var out []string
	for _, c := range rs.Columns {
		if c.Kind == kind {
			out = append(out, c.Name)
		}
	}
	return out
}

func (r *Recommender) polishReason(ctx context.Context, question string, v *model.Visualization) (string, error) {
	prompt := fmt.Sprintf(
		"Question: %s\nChart: %s with x=%s, y=%s.\nIn one sentence, explain to a business reader why this chart fits. Do not suggest a different chart.",
		question, v.Chart, v.Mapping.X, v.Mapping.Y)
	out, err := r.client.Generate(ctx, llm.Request{Prompt: prompt, MaxTokens: reasonMaxTokens})
	if err != nil {
		r.logger.Debug("reason polish failed, keeping rule text", "error", err)
		return "", err
	}
	return strings.TrimSpace(out), nil
}
