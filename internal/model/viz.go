package model

// ChartKind is the closed set of chart types the recommender can select.
type ChartKind string

const (
	ChartLine    ChartKind = "line"
	ChartBar     ChartKind = "bar"
	ChartPie     ChartKind = "pie"
	ChartScatter ChartKind = "scatter"
	ChartTable   ChartKind = "table"
)

// FieldMapping assigns result columns to chart axes. Every referenced column
// must be present in the RowSet the recommendation was derived from.
type FieldMapping struct {
	X      string `json:"x,omitempty"`
	Y      string `json:"y,omitempty"`
	Series string `json:"series,omitempty"`
}

// Visualization is a chart recommendation for a result set.
type Visualization struct {
	Chart   ChartKind    `json:"chart"`
	Reason  string       `json:"reason"`
	Mapping FieldMapping `json:"mapping"`
}
