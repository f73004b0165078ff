package sqlparse

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/sql"
)

// tree-sitter node types mapped onto the shared node kinds. Types missing
// from both tables are transparent: their children join the nearest mapped
// ancestor.
var treeSitterKinds = map[string]NodeKind{
	"program":    KindFile,
	"statement":  KindStatement,
	"relation":   KindFromElement,
	"field":      KindColumnReference,
	"invocation": KindFunction,
	"subquery":   KindSubquery,
	"literal":    KindLiteral,
}

var treeSitterClauses = map[string]bool{
	"select": true, "from": true, "where": true, "join": true, "group_by": true,
	"order_by": true, "having": true, "limit": true, "insert": true, "update": true,
	"delete": true, "set": true, "returning": true,
}

// TreeSitterParser parses with the tree-sitter SQL grammar.
type TreeSitterParser struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewTreeSitterParser returns a parser backed by tree-sitter.
func NewTreeSitterParser() *TreeSitterParser {
	p := sitter.NewParser()
	p.SetLanguage(sql.GetLanguage())
	return &TreeSitterParser{parser: p}
}

// Parse converts the tree-sitter syntax tree into a Document.
func (p *TreeSitterParser) Parse(text string) (*Document, error) {
	src := []byte(text)

	p.mu.Lock()
	tree, err := p.parser.ParseCtx(context.Background(), nil, src)
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	c := &tsConverter{src: src, lines: lineStarts(src)}
	root := c.program(tree.RootNode())
	c.gap(len(src))
	AssignTrivia(c.tokens)

	if n := len(root.Children); n > 0 {
		last := root.Children[n-1]
		if lt := c.tokens[last.Last]; lt.Text != ";" {
			last.Last = len(c.tokens) - 1
		}
	}
	root.First, root.Last = 0, len(c.tokens)-1

	return &Document{Text: text, Tokens: c.tokens, Root: root}, nil
}

type tsConverter struct {
	src    []byte
	lines  []int // byte offset of each line start
	tokens []Token
	offset int // bytes already tokenized
}

func lineStarts(src []byte) []int {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// position converts a byte offset to a 1-based line and rune column.
func (c *tsConverter) position(off int) (int, int) {
	line := sort.Search(len(c.lines), func(i int) bool { return c.lines[i] > off }) - 1
	col := utf8.RuneCount(c.src[c.lines[line]:off]) + 1
	return line + 1, col
}

// gap lexes the untokenized text before end.
func (c *tsConverter) gap(end int) {
	if end <= c.offset {
		return
	}
	line, col := c.position(c.offset)
	for _, t := range Lex(string(c.src[c.offset:end])) {
		if t.Line == 1 {
			t.Column += col - 1
		}
		t.Line += line - 1
		c.tokens = append(c.tokens, t)
	}
	c.offset = end
}

// program converts the top-level statements. Children are grouped into
// chunks ending at ';'. A chunk holding an ERROR or MISSING node is rebuilt
// with the native clause rules, so a statement still being typed keeps one
// span and its FROM elements and column positions.
func (c *tsConverter) program(n *sitter.Node) *Node {
	root := newNode(KindFile)
	if n.Type() != "program" {
		c.rebuild(int(n.StartByte()), int(n.EndByte()), root)
		return root
	}

	var chunk []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "comment", "marginalia":
			if len(chunk) == 0 {
				c.convert(child, root)
				continue
			}
		}
		chunk = append(chunk, child)
		if child.Type() == ";" {
			c.chunk(chunk, root)
			chunk = nil
		}
	}
	c.chunk(chunk, root)
	return root
}

func (c *tsConverter) chunk(nodes []*sitter.Node, root *Node) {
	if len(nodes) == 0 {
		return
	}
	for _, n := range nodes {
		if n.Type() == "ERROR" || n.IsMissing() || n.HasError() {
			c.rebuild(int(nodes[0].StartByte()), int(nodes[len(nodes)-1].EndByte()), root)
			return
		}
	}

	var prev *Node
	for _, child := range nodes {
		switch child.Type() {
		case ";":
			if prev != nil {
				c.convert(child, prev)
				finalize(prev)
				prev = nil
			} else {
				c.convert(child, root)
			}
			continue
		case "comment", "marginalia":
			c.convert(child, root)
			continue
		}
		stmt := newNode(KindStatement)
		c.convert(child, stmt)
		if len(stmt.Children) == 0 {
			continue
		}
		finalize(stmt)
		root.Children = append(root.Children, stmt)
		prev = stmt
	}
}

// rebuild lexes src[start:end] and builds its statements natively.
func (c *tsConverter) rebuild(start, end int, root *Node) {
	c.gap(start)
	first := len(c.tokens)
	c.gap(end)

	b := &builder{toks: c.tokens}
	for i := first; i < len(c.tokens); i++ {
		if !c.tokens[i].Kind.IsTrivia() {
			b.sig = append(b.sig, i)
		}
	}
	for !b.done() {
		root.Children = append(root.Children, b.statement())
	}
}

// convert appends the converted form of n to container.
func (c *tsConverter) convert(n *sitter.Node, container *Node) {
	if n.ChildCount() == 0 {
		c.leaf(n, container)
		return
	}

	target := container
	typ := n.Type()
	if kind, ok := treeSitterKinds[typ]; ok && typ != "program" && typ != "statement" {
		target = newNode(kind)
	} else if treeSitterClauses[typ] {
		target = newNode(KindClause)
	} else if typ == "object_reference" && n.Parent() != nil && n.Parent().Type() == "relation" {
		target = newNode(KindTableReference)
	}

	var alias *sitter.Node
	if typ == "relation" {
		alias = n.ChildByFieldName("alias")
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if alias != nil && child.StartByte() == alias.StartByte() && child.EndByte() == alias.EndByte() {
			wrap := newNode(KindTableAlias)
			c.convert(child, wrap)
			finalize(wrap)
			target.Children = append(target.Children, wrap)
			continue
		}
		c.convert(child, target)
	}

	if target != container && len(target.Children) > 0 {
		finalize(target)
		container.Children = append(container.Children, target)
	}
}

func (c *tsConverter) leaf(n *sitter.Node, container *Node) {
	start, end := int(n.StartByte()), int(n.EndByte())
	if end <= start || start < c.offset {
		// Zero-width MISSING nodes carry no text.
		return
	}
	c.gap(start)

	text := string(c.src[start:end])
	line, col := c.position(start)
	tok := Token{Text: text, Kind: treeSitterTokenKind(n.Type(), text), Line: line, Column: col}

	target := container
	if n.Type() == "literal" {
		target = newNode(KindLiteral)
		container.Children = append(container.Children, target)
	}
	tok.Parent = target.Kind

	idx := len(c.tokens)
	c.tokens = append(c.tokens, tok)
	target.Children = append(target.Children, &Node{Token: idx, First: idx, Last: idx})
	if target != container {
		finalize(target)
	}
	c.offset = end
}

func treeSitterTokenKind(typ, text string) TokenKind {
	switch {
	case strings.HasPrefix(typ, "keyword_"):
		return TokenKeyword
	case typ == "comment" || typ == "marginalia":
		return TokenComment
	case typ == "identifier":
		if strings.HasPrefix(text, "`") || strings.HasPrefix(text, `"`) {
			return TokenQuotedIdentifier
		}
		return TokenIdentifier
	}
	if toks := Lex(text); len(toks) > 0 {
		return toks[0].Kind
	}
	return TokenOperator
}
