package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woxQAQ/sql-ls/internal/sqlparse"
	"github.com/woxQAQ/sql-ls/pkg/protocol"
)

func parse(t *testing.T, text string) *sqlparse.Document {
	t.Helper()
	doc, err := sqlparse.NewNativeParser().Parse(text)
	require.NoError(t, err)
	return doc
}

func TestSpans_MultiLine(t *testing.T) {
	doc := parse(t, "select id\nfrom users;\n\nfrobnicate;\nselect 2\n")
	spans := Spans(doc)
	require.Len(t, spans, 3)

	assert.Equal(t, 1, spans[0].StartLine)
	assert.Equal(t, 2, spans[0].EndLine)
	assert.Equal(t, "select id\nfrom users;", spans[0].Text())

	assert.Equal(t, 4, spans[1].StartLine)
	assert.Equal(t, "frobnicate;", spans[1].Text())

	assert.Equal(t, 5, spans[2].StartLine)
	assert.Equal(t, "select 2", spans[2].Text())
}

func TestSpans_Empty(t *testing.T) {
	assert.Empty(t, Spans(parse(t, "")))
	assert.Empty(t, Spans(parse(t, "  \n -- only a comment\n")))
	assert.Nil(t, Spans(nil))
}

func TestForLine(t *testing.T) {
	spans := Spans(parse(t, "select 1;\nselect\n  2;\n\nselect 3;"))

	s, ok := ForLine(spans, 3)
	require.True(t, ok)
	assert.Equal(t, "select\n  2;", s.Text())

	_, ok = ForLine(spans, 4)
	assert.False(t, ok, "blank line between statements")

	_, ok = ForLine(spans, 10)
	assert.False(t, ok)
}

func parsers() []struct {
	name   string
	parser sqlparse.Parser
} {
	return []struct {
		name   string
		parser sqlparse.Parser
	}{
		{"native", sqlparse.NewNativeParser()},
		{"treesitter", sqlparse.NewTreeSitterParser()},
	}
}

func TestEnclosing(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"second of two on one line", "select 1; select 2;", protocol.Position{Line: 0, Character: 14}, "select 2;"},
		{"first of two on one line", "select 1; select 2;", protocol.Position{Line: 0, Character: 3}, "select 1;"},
		{"end of line", "select 1; select 2;", protocol.Position{Line: 0, Character: 19}, "select 2;"},
		{"just after terminator", "select 1; select 2;", protocol.Position{Line: 0, Character: 9}, "select 1;"},
		{"incomplete statement", "select * from users where", protocol.Position{Line: 0, Character: 25}, "select * from users where"},
		{"incomplete after complete", "select 1;\nselect * from users u join orders o on o.",
			protocol.Position{Line: 1, Character: 20}, "select * from users u join orders o on o."},
	}

	for _, p := range parsers() {
		for _, tt := range tests {
			t.Run(p.name+"/"+tt.name, func(t *testing.T) {
				doc, err := p.parser.Parse(tt.text)
				require.NoError(t, err)

				s, ok := Enclosing(doc, tt.pos)
				require.True(t, ok)
				assert.Equal(t, tt.want, s.Text())
			})
		}
	}
}

func TestEnclosing_NothingToExecute(t *testing.T) {
	doc := parse(t, "select 1;\n\nselect 2;")
	_, ok := Enclosing(doc, protocol.Position{Line: 1, Character: 0})
	assert.False(t, ok)

	_, ok = Enclosing(parse(t, ""), protocol.Position{})
	assert.False(t, ok)
}

func TestEnclosing_MultiLineComment(t *testing.T) {
	doc := parse(t, "select /* a\nlong note */ 1;")
	s, ok := Enclosing(doc, protocol.Position{Line: 1, Character: 3})
	require.True(t, ok)
	assert.Equal(t, 1, s.StartLine)
	assert.Equal(t, 2, s.EndLine)
	assert.Equal(t, protocol.Position{Line: 2, Character: 16}, s.End)
}
