// Package sqlparse turns SQL text into a positioned token sequence and a
// shallow parse tree. Consumers only rely on three things: every token carries
// a 1-based line/column and the kind of its parent construct, statement and
// unparsable regions are direct children of the root, and FROM-clause
// elements expose their table and alias identifiers.
package sqlparse

import "fmt"

// Parser produces a Document from raw SQL text.
type Parser interface {
	Parse(text string) (*Document, error)
}

// TokenKind is the lexical class of a token.
type TokenKind int

const (
	TokenWhitespace TokenKind = iota
	TokenNewline
	TokenComment
	TokenKeyword
	TokenIdentifier
	TokenQuotedIdentifier
	TokenString
	TokenNumber
	TokenOperator
	TokenPunctuation
)

// IsTrivia reports whether the token carries no syntax (whitespace, newlines, comments).
func (k TokenKind) IsTrivia() bool {
	return k == TokenWhitespace || k == TokenNewline || k == TokenComment
}

// NodeKind classifies a node of the parse tree.
type NodeKind int

const (
	KindFile NodeKind = iota
	KindStatement
	KindUnparsable
	KindClause
	KindFromElement
	KindTableReference
	KindTableAlias
	KindColumnReference
	KindColumnAlias
	KindFunction
	KindSubquery
	KindKeyword
	KindLiteral
	KindPunctuation
)

var nodeKindNames = map[NodeKind]string{
	KindFile:            "file",
	KindStatement:       "statement",
	KindUnparsable:      "unparsable",
	KindClause:          "clause",
	KindFromElement:     "from_element",
	KindTableReference:  "table_reference",
	KindTableAlias:      "table_alias",
	KindColumnReference: "column_reference",
	KindColumnAlias:     "column_alias",
	KindFunction:        "function",
	KindSubquery:        "subquery",
	KindKeyword:         "keyword",
	KindLiteral:         "literal",
	KindPunctuation:     "punctuation",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// Token is a leaf segment of the document.
type Token struct {
	Text   string
	Kind   TokenKind
	Line   int // 1-based
	Column int // 1-based, counted in runes
	Parent NodeKind
}

func (t Token) String() string {
	return fmt.Sprintf("%q@%d:%d(%s)", t.Text, t.Line, t.Column, t.Parent)
}

// Node is a parse tree node. Leaves point at a token by index; inner nodes
// cover the inclusive token range [First, Last].
type Node struct {
	Kind     NodeKind
	Children []*Node
	Token    int // -1 for inner nodes
	First    int
	Last     int
}

// IsLeaf reports whether the node wraps a single token.
func (n *Node) IsLeaf() bool {
	return n.Token >= 0
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Document is the result of parsing one editor buffer.
type Document struct {
	Text   string
	Tokens []Token
	Root   *Node
}

// Token returns the token at index i, or false when out of range.
func (d *Document) Token(i int) (Token, bool) {
	if d == nil || i < 0 || i >= len(d.Tokens) {
		return Token{}, false
	}
	return d.Tokens[i], true
}

// PrevSignificant returns the index of the closest non-trivia token strictly
// before i, or -1.
func (d *Document) PrevSignificant(i int) int {
	for j := i - 1; j >= 0; j-- {
		if !d.Tokens[j].Kind.IsTrivia() {
			return j
		}
	}
	return -1
}

// FromElements returns every FROM-clause element in document order.
func (d *Document) FromElements() []*Node {
	var out []*Node
	d.Root.Walk(func(n *Node) bool {
		if n.Kind == KindFromElement {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Identifiers returns the text of identifier tokens below n, unquoted.
func (d *Document) Identifiers(n *Node) []string {
	var out []string
	n.Walk(func(c *Node) bool {
		if !c.IsLeaf() {
			return true
		}
		tok := d.Tokens[c.Token]
		switch tok.Kind {
		case TokenIdentifier:
			out = append(out, tok.Text)
		case TokenQuotedIdentifier:
			out = append(out, Unquote(tok.Text))
		}
		return false
	})
	return out
}

// Child returns the first direct child of n with the given kind.
func (n *Node) Child(kind NodeKind) (*Node, bool) {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c, true
		}
	}
	return nil, false
}

// Unquote strips backticks, double quotes or brackets around an identifier.
func Unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	switch {
	case s[0] == '`' && s[len(s)-1] == '`',
		s[0] == '"' && s[len(s)-1] == '"',
		s[0] == '[' && s[len(s)-1] == ']':
		return s[1 : len(s)-1]
	}
	return s
}
