package completion

import "github.com/woxQAQ/sql-ls/internal/sqlparse"

// Mode is the kind of completion appropriate at the cursor.
type Mode int

const (
	ModeBare Mode = iota // keywords only
	ModeColumn
	ModeTable
)

func (m Mode) String() string {
	switch m {
	case ModeColumn:
		return "column"
	case ModeTable:
		return "table"
	default:
		return "bare"
	}
}

var modeByParent = map[sqlparse.NodeKind]Mode{
	sqlparse.KindColumnReference: ModeColumn,
	sqlparse.KindTableReference:  ModeTable,
}

// Context is the classification of a cursor position.
type Context struct {
	Mode Mode
	// Qualified is set in column mode for "alias." references.
	Qualified bool
	// Table is the resolved table of a qualified reference, empty when the
	// alias is unknown.
	Table string
}

// Classify derives the completion context from the parent kind of the token
// at index. An index outside the document yields bare mode.
func Classify(doc *sqlparse.Document, index int) Context {
	tok, ok := doc.Token(index)
	if !ok {
		return Context{Mode: ModeBare}
	}

	ctx := Context{Mode: modeByParent[tok.Parent]}
	if ctx.Mode == ModeColumn {
		prev, _ := doc.Token(doc.PrevSignificant(index))
		ctx.Qualified = tok.Text == "." || prev.Text == "."
	}
	return ctx
}
