// Package statement isolates the SQL statement under the cursor so that only
// it is sent to the database.
package statement

import (
	"strings"
	"unicode/utf8"

	"github.com/woxQAQ/sql-ls/internal/sqlparse"
	"github.com/woxQAQ/sql-ls/pkg/protocol"
)

// Span is one top-level statement or unparsable region.
type Span struct {
	StartLine int // 1-based, inclusive
	EndLine   int // 1-based, inclusive
	// Start is the 1-based position of the first token; End is the position
	// just past the last one.
	Start, End protocol.Position
	Tokens    []sqlparse.Token
}

// Text returns the statement source without surrounding whitespace.
func (s Span) Text() string {
	var sb strings.Builder
	for _, t := range s.Tokens {
		sb.WriteString(t.Text)
	}
	return strings.TrimSpace(sb.String())
}

// Spans partitions the document into statement spans in document order.
func Spans(doc *sqlparse.Document) []Span {
	if doc == nil || doc.Root == nil {
		return nil
	}

	var spans []Span
	for _, n := range doc.Root.Children {
		if n.Kind != sqlparse.KindStatement && n.Kind != sqlparse.KindUnparsable {
			continue
		}
		if n.First < 0 || n.Last < n.First {
			continue
		}
		toks := doc.Tokens[n.First : n.Last+1]
		first, last := toks[0], toks[len(toks)-1]
		end := endOf(last)
		spans = append(spans, Span{
			StartLine: first.Line,
			EndLine:   last.Line,
			Start:     protocol.Position{Line: first.Line, Character: first.Column},
			End:       end,
			Tokens:    toks,
		})
	}
	return spans
}

// endOf returns the 1-based position just past t.
func endOf(t sqlparse.Token) protocol.Position {
	nl := strings.Count(t.Text, "\n")
	if nl == 0 {
		return protocol.Position{Line: t.Line, Character: t.Column + utf8.RuneCountInString(t.Text)}
	}
	tail := t.Text[strings.LastIndex(t.Text, "\n")+1:]
	return protocol.Position{Line: t.Line + nl, Character: utf8.RuneCountInString(tail) + 1}
}

// ForLine returns the first span whose line range contains the 1-based line.
func ForLine(spans []Span, line int) (Span, bool) {
	for _, s := range spans {
		if s.StartLine <= line && line <= s.EndLine {
			return s, true
		}
	}
	return Span{}, false
}

// Enclosing returns the statement under the 0-based cursor position. Several
// statements on one line resolve to the one containing the cursor column; a
// cursor between statements falls back to the first span on its line.
func Enclosing(doc *sqlparse.Document, pos protocol.Position) (Span, bool) {
	spans := Spans(doc)
	cur := protocol.Position{Line: pos.Line + 1, Character: pos.Character + 1}
	for _, s := range spans {
		if !before(cur, s.Start) && !before(s.End, cur) {
			return s, true
		}
	}
	return ForLine(spans, cur.Line)
}

func before(a, b protocol.Position) bool {
	return a.Line < b.Line || (a.Line == b.Line && a.Character < b.Character)
}
