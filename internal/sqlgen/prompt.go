package sqlgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/talk2data/talk2data/internal/model"
)

const systemPrompt = `You are an expert SQL analyst. Generate a single SQL query that answers the user's question using only the tables, columns, and join relationships provided. Rules:
- Use only tables and columns listed in the schema context.
- Use only the join relationships listed; never invent joins.
- Reference tables by bare name; do not add project or dataset prefixes.
- Prefer explicit column lists over SELECT *.
- Return only the SQL, inside a fenced code block.`

// promptTable is the schema shape serialized into the grounding context.
type promptTable struct {
	Name        string         `json:"name"`
	Type        string         `json:"type,omitempty"`
	Description string         `json:"description,omitempty"`
	Columns     []promptColumn `json:"columns"`
}

type promptColumn struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	SemanticType string   `json:"semantic_type,omitempty"`
	Description  string   `json:"description,omitempty"`
	Samples      []string `json:"samples,omitempty"`
}

// buildPrompt renders the user prompt: the question, the schema context as
// JSON, and the allowed joins as ready-to-use SQL snippets.
func buildPrompt(question string, bundle *model.Bundle) (string, error) {
	tables := make([]promptTable, len(bundle.Tables))
	for i, t := range bundle.Tables {
		pt := promptTable{Name: t.Name, Type: t.Type, Description: t.Description}
		for _, c := range t.Columns {
			pt.Columns = append(pt.Columns, promptColumn{
				Name:         c.Name,
				Type:         c.Type,
				SemanticType: c.SemanticType,
				Description:  c.Description,
				Samples:      c.SampleValues,
			})
		}
		tables[i] = pt
	}

	schema, err := json.MarshalIndent(tables, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal schema context: %w", err)
	}

	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nSchema context:\n")
	b.Write(schema)

	if len(bundle.Joins) > 0 {
		b.WriteString("\n\nAllowed joins:\n")
		for _, j := range bundle.Joins {
			b.WriteString(joinSnippet(j))
			b.WriteByte('\n')
		}
	} else {
		b.WriteString("\n\nNo join relationships are available; use a single table.\n")
	}

	return b.String(), nil
}

// joinSnippet renders a join edge as the SQL fragment the model should use.
func joinSnippet(j model.Join) string {
	conds := make([]string, len(j.OnFields))
	for i, f := range j.OnFields {
		conds[i] = fmt.Sprintf("%s.%s = %s.%s", j.FromTable, f, j.ToTable, f)
	}
	snippet := fmt.Sprintf("JOIN %s ON %s", j.ToTable, strings.Join(conds, " AND "))
	if j.Kind != "" {
		snippet += "  -- " + j.Kind
	}
	return snippet
}
