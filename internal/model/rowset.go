package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// ColumnKind is the semantic shape of a result column, inferred from observed
// values. It drives visualization selection only; it is never written back to
// the warehouse as schema truth.
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindCategorical ColumnKind = "categorical"
	KindDatetime    ColumnKind = "datetime"
	KindBoolean     ColumnKind = "boolean"
	KindOther       ColumnKind = "other"
)

// ColumnMeta pairs a result column name with its inferred kind.
type ColumnMeta struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

// Row is a single result row mapping column name to a typed scalar.
type Row map[string]any

// RowSet is an ordered, bounded query result. Truncated is set when the
// executor cut the result off at the configured row cap.
type RowSet struct {
	Columns   []ColumnMeta `json:"columns"`
	Rows      []Row        `json:"rows"`
	Truncated bool         `json:"truncated"`
}

// RowCount returns the number of rows in the set.
func (rs *RowSet) RowCount() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// Empty reports whether the set holds zero rows. An empty set is a valid
// success result, not an error.
func (rs *RowSet) Empty() bool {
	return rs.RowCount() == 0
}

// Column returns the metadata for the named column, if present.
func (rs *RowSet) Column(name string) (ColumnMeta, bool) {
	for _, c := range rs.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnMeta{}, false
}

// DistinctValues returns the number of distinct values observed in a column.
func (rs *RowSet) DistinctValues(name string) int {
	seen := make(map[string]struct{})
	for _, row := range rs.Rows {
		v, ok := row[name]
		if !ok {
			continue
		}
		seen[stringify(v)] = struct{}{}
	}
	return len(seen)
}

// BuildRowSet constructs a RowSet from raw rows in column order, capping the
// result at maxRows (truncation, not failure) and inferring each column's
// semantic kind from the observed values.
func BuildRowSet(columns []string, rows []Row, maxRows int) *RowSet {
	truncated := false
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
		truncated = true
	}

	metas := make([]ColumnMeta, len(columns))
	for i, name := range columns {
		metas[i] = ColumnMeta{Name: name, Kind: inferKind(name, rows)}
	}
	return &RowSet{Columns: metas, Rows: rows, Truncated: truncated}
}

// inferKind classifies a column by scanning its non-null values. All observed
// values must agree on a kind; mixed columns fall back to KindOther. A column
// with no non-null values is KindOther.
func inferKind(name string, rows []Row) ColumnKind {
	kind := ColumnKind("")
	for _, row := range rows {
		v, ok := row[name]
		if !ok || v == nil {
			continue
		}
		k := kindOf(v)
		if kind == "" {
			kind = k
		} else if kind != k {
			return KindOther
		}
	}
	if kind == "" {
		return KindOther
	}
	return kind
}

func kindOf(v any) ColumnKind {
	switch x := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return KindNumeric
	case bool:
		return KindBoolean
	case time.Time:
		return KindDatetime
	case string:
		if looksLikeDatetime(x) {
			return KindDatetime
		}
		if _, err := strconv.ParseFloat(x, 64); err == nil {
			return KindNumeric
		}
		return KindCategorical
	default:
		return KindOther
	}
}

// looksLikeDatetime recognizes the date/time string shapes warehouses
// commonly return for DATE, DATETIME, and TIMESTAMP columns.
func looksLikeDatetime(s string) bool {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
		"2006-01",
	} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}
