// Package render formats tabular results as plain text for the editor.
package render

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Table renders rows as an aligned text table with one column per entry in
// columns, in that order. Missing keys render as empty cells and nil values
// as NULL.
func Table(columns []string, rows []map[string]any) string {
	if len(rows) == 0 {
		return "(0 rows)"
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i, col := range columns {
			v, ok := row[col]
			switch {
			case !ok:
				r[i] = ""
			case v == nil:
				r[i] = "NULL"
			default:
				r[i] = Value(v)
			}
		}
		t.AppendRow(r)
	}

	return t.Render()
}

// Value converts a driver value to display text.
func Value(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
