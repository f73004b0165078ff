package completion

import (
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/woxQAQ/sql-ls/internal/schema"
	"github.com/woxQAQ/sql-ls/internal/sqlparse"
	"github.com/woxQAQ/sql-ls/pkg/protocol"
)

// Engine produces completions for a buffer. It holds no per-document state;
// every call parses the text afresh.
type Engine struct {
	parser sqlparse.Parser
	logger *zap.Logger
}

// NewEngine creates an engine using parser.
func NewEngine(parser sqlparse.Parser, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		parser: parser,
		logger: logger.With(zap.String("component", "completion")),
	}
}

// Complete returns ranked candidates for the cursor at pos. It never fails:
// a parse error degrades to keyword completions and a cursor on a line
// without tokens yields an empty list.
func (e *Engine) Complete(text string, pos protocol.Position, cache *schema.Cache) []Candidate {
	word := LastWord(LinePrefix(text, pos))

	doc, err := e.parser.Parse(text)
	if err != nil {
		e.logger.Debug("parse failed, falling back to keywords", zap.Error(err))
		return Aggregate(Context{Mode: ModeBare}, word, cache)
	}

	res, ok := ResolveCursor(doc.Tokens, pos)
	if !ok {
		return []Candidate{}
	}

	ctx := Classify(doc, res.Index)
	if ctx.Mode == ModeColumn && ctx.Qualified {
		ctx.Table, _ = ResolveAlias(doc, res.Index)
	}

	e.logger.Debug("completion context",
		zap.Stringer("mode", ctx.Mode),
		zap.Bool("qualified", ctx.Qualified),
		zap.String("table", ctx.Table),
		zap.String("word", word),
		zap.Stringer("token", res.Token))

	return Aggregate(ctx, word, cache)
}

// LinePrefix returns the text of the cursor's line before the cursor.
func LinePrefix(text string, pos protocol.Position) string {
	line, ok := lineAt(text, pos.Line)
	if !ok {
		return ""
	}
	runes := []rune(line)
	return string(runes[:min(max(pos.Character, 0), len(runes))])
}

// WordAt returns the word surrounding the cursor, or "" when the cursor is
// not on a word.
func WordAt(text string, pos protocol.Position) string {
	line, ok := lineAt(text, pos.Line)
	if !ok {
		return ""
	}
	runes := []rune(line)
	at := min(max(pos.Character, 0), len(runes))

	start, end := at, at
	for start > 0 && isWordRune(runes[start-1]) {
		start--
	}
	for end < len(runes) && isWordRune(runes[end]) {
		end++
	}
	return string(runes[start:end])
}

func lineAt(text string, n int) (string, bool) {
	lines := strings.Split(text, "\n")
	if n < 0 || n >= len(lines) {
		return "", false
	}
	return strings.TrimSuffix(lines[n], "\r"), true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
