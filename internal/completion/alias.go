package completion

import "github.com/woxQAQ/sql-ls/internal/sqlparse"

// ResolveAlias returns the table named by the qualifier of the reference at
// index: the significant token before the dot, whether the cursor token is
// the dot itself or follows it. The last FROM element in document order whose
// alias matches wins. An element without an alias is addressable by its own
// table name. Unknown qualifiers report false.
func ResolveAlias(doc *sqlparse.Document, index int) (string, bool) {
	tok, ok := doc.Token(index)
	if !ok {
		return "", false
	}

	var qualifierIdx int
	prevIdx := doc.PrevSignificant(index)
	switch prev, _ := doc.Token(prevIdx); {
	case tok.Text == ".":
		qualifierIdx = prevIdx
	case prev.Text == ".":
		qualifierIdx = doc.PrevSignificant(prevIdx)
	default:
		return "", false
	}
	qualifier, ok := doc.Token(qualifierIdx)
	if !ok {
		return "", false
	}
	name := sqlparse.Unquote(qualifier.Text)

	table, found := "", false
	for _, elem := range doc.FromElements() {
		var tableName string
		if ref, ok := elem.Child(sqlparse.KindTableReference); ok {
			if ids := doc.Identifiers(ref); len(ids) > 0 {
				tableName = ids[len(ids)-1]
			}
		}

		alias := tableName
		if an, ok := elem.Child(sqlparse.KindTableAlias); ok {
			ids := doc.Identifiers(an)
			if len(ids) == 0 {
				continue
			}
			alias = ids[len(ids)-1]
		}
		if alias == "" || alias != name {
			continue
		}
		// A matching subquery alias has no table to offer.
		table, found = tableName, tableName != ""
	}
	return table, found
}
