package sqlite

import "strings"

// SanitizeFTS renders a user term as a single quoted FTS5 string so that
// query punctuation (quotes, AND/OR/NEAR keywords, stray asterisks) cannot
// change the match semantics. Embedded double quotes are doubled per FTS5
// string rules. Every MATCH in this package goes through it.
func SanitizeFTS(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}

// SanitizeFTSPrefix renders a term as a quoted FTS5 prefix phrase for
// autocomplete queries, e.g. `"quantum comp"*`.
func SanitizeFTSPrefix(term string) string {
	return SanitizeFTS(term) + "*"
}
