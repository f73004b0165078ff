package database

import (
	"fmt"
	"strings"

	"github.com/woxQAQ/sql-ls/internal/render"
)

// Render formats a result for display in the editor.
func Render(res *Result) string {
	if res == nil || len(res.Columns) == 0 {
		return "OK"
	}
	var sb strings.Builder
	sb.WriteString(render.Table(res.Columns, res.Rows))
	if res.Truncated {
		fmt.Fprintf(&sb, "\n(showing first %d rows)", len(res.Rows))
	}
	return sb.String()
}

// RenderError formats a failed execution for display.
func RenderError(err error) string {
	return "Error: " + err.Error()
}
