// Package completion maps a cursor position in a SQL buffer to ranked
// completion candidates drawn from a schema cache.
package completion

import (
	"sort"

	"github.com/woxQAQ/sql-ls/internal/sqlparse"
	"github.com/woxQAQ/sql-ls/pkg/protocol"
)

// Resolution is the token under or just before the cursor.
type Resolution struct {
	Token sqlparse.Token
	Index int // position in the document's token sequence
}

// ResolveCursor finds the token the cursor is inside or immediately after.
// pos is 0-based; tokens must be sorted by (Line, Column). It reports false
// for an empty sequence or a line without tokens.
func ResolveCursor(tokens []sqlparse.Token, pos protocol.Position) (Resolution, bool) {
	if len(tokens) == 0 {
		return Resolution{}, false
	}
	line, char := pos.Line+1, pos.Character+1

	lo := sort.Search(len(tokens), func(i int) bool { return tokens[i].Line >= line })
	if lo == len(tokens) || tokens[lo].Line != line {
		return Resolution{}, false
	}
	hi := lo
	for hi < len(tokens) && tokens[hi].Line == line {
		hi++
	}

	// A lone token owns the whole line.
	if hi-lo == 1 {
		return Resolution{Token: tokens[lo], Index: lo}, true
	}

	i := lo + sort.Search(hi-lo, func(k int) bool { return tokens[lo+k].Column >= char })
	i = max(i-1, lo)
	return Resolution{Token: tokens[i], Index: i}, true
}
