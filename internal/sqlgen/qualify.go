package sqlgen

import (
	"regexp"
)

// Qualify rewrites bare table references in FROM and JOIN position to fully
// qualified project.dataset.table form. The model is prompted to produce
// bare names and validation checks them against the bundle; qualification
// runs last, so the stored statement addresses the data project directly and
// executes as-is even when the warehouse connection lives in a different
// project. Only the FROM/JOIN position is rewritten: a qualified table still
// resolves under its bare name, so column references like table.column stay
// valid.
func Qualify(sql string, tables []string, project, dataset string) string {
	if project == "" || dataset == "" {
		return sql
	}
	prefix := project + "." + dataset + "."
	for _, name := range tables {
		re := regexp.MustCompile(`(?i)\b(from|join)(\s+)(` + regexp.QuoteMeta(name) + `)\b([^.]|$)`)
		sql = re.ReplaceAllString(sql, "${1}${2}"+prefix+"${3}${4}")
	}
	return sql
}
