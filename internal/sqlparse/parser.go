package sqlparse

import "strings"

var statementStarters = map[string]bool{
	"ALTER": true, "ANALYZE": true, "CREATE": true, "DELETE": true, "DESC": true,
	"DESCRIBE": true, "DROP": true, "EXPLAIN": true, "INSERT": true, "REPLACE": true,
	"SELECT": true, "SET": true, "SHOW": true, "TABLE": true, "TRUNCATE": true,
	"UPDATE": true, "USE": true, "VALUES": true, "WITH": true,
}

// operandKeywords are reserved words that neither open a clause nor act as
// operators; in a column position they name a column or a function.
var operandKeywords = map[string]bool{
	"DEFAULT": true, "IF": true, "INDEX": true, "KEY": true, "PRIMARY": true,
	"REPLACE": true, "VIEW": true,
}

type clauseMode int

const (
	modeNone clauseMode = iota
	modeColumn
	modeTable
)

// NativeParser is the built-in Parser. It recognises statement boundaries,
// clauses, FROM-clause elements with aliases, column references and
// subqueries; anything it cannot place becomes an unparsable region.
type NativeParser struct{}

// NewNativeParser returns the built-in parser.
func NewNativeParser() *NativeParser {
	return &NativeParser{}
}

// Parse never fails; malformed input yields unparsable regions.
func (p *NativeParser) Parse(text string) (*Document, error) {
	tokens := Lex(text)
	b := &builder{toks: tokens}
	for i, t := range tokens {
		if !t.Kind.IsTrivia() {
			b.sig = append(b.sig, i)
		}
	}

	root := b.file()
	AssignTrivia(tokens)

	return &Document{Text: text, Tokens: tokens, Root: root}, nil
}

type builder struct {
	toks []Token
	sig  []int // indexes of non-trivia tokens
	p    int   // position in sig
}

func (b *builder) done() bool {
	return b.p >= len(b.sig)
}

func (b *builder) cur() (int, Token) {
	i := b.sig[b.p]
	return i, b.toks[i]
}

// peekSig returns the significant token offset positions ahead.
func (b *builder) peekSig(offset int) (int, Token, bool) {
	if b.p+offset >= len(b.sig) {
		return -1, Token{}, false
	}
	i := b.sig[b.p+offset]
	return i, b.toks[i], true
}

func (b *builder) leaf(container *Node, i int) {
	b.toks[i].Parent = container.Kind
	container.Children = append(container.Children, &Node{Token: i, First: i, Last: i})
}

// take appends the current token to container as a leaf and advances.
func (b *builder) take(container *Node) {
	i, _ := b.cur()
	b.leaf(container, i)
	b.p++
}

func newNode(kind NodeKind) *Node {
	return &Node{Kind: kind, Token: -1}
}

func (b *builder) file() *Node {
	root := newNode(KindFile)
	root.First, root.Last = 0, len(b.toks)-1

	for !b.done() {
		root.Children = append(root.Children, b.statement())
	}
	return root
}

func (b *builder) statement() *Node {
	_, first := b.cur()
	kind := KindStatement
	if !statementStarters[strings.ToUpper(first.Text)] {
		kind = KindUnparsable
	}
	stmt := newNode(kind)

	terminated := false
	if kind == KindUnparsable {
		depth := 0
		for !b.done() {
			_, t := b.cur()
			b.take(stmt)
			if t.Text == "(" {
				depth++
			} else if t.Text == ")" && depth > 0 {
				depth--
			} else if t.Text == ";" && depth == 0 {
				terminated = true
				break
			}
		}
	} else {
		terminated = b.body(stmt, false)
	}

	finalize(stmt)
	if !terminated && b.done() {
		// An open statement at the end of the buffer owns the trailing trivia.
		stmt.Last = len(b.toks) - 1
	}
	return stmt
}

// body parses clauses into parent until a terminator. In nested mode it stops
// before the closing parenthesis; otherwise it consumes a trailing ';' and
// reports whether it saw one.
func (b *builder) body(parent *Node, nested bool) bool {
	container := parent
	mode := modeNone
	into := false
	aliasNext := false
	depth := 0
	first := true

	startClause := func(m clauseMode) {
		cl := newNode(KindClause)
		parent.Children = append(parent.Children, cl)
		container = cl
		mode = m
		aliasNext = false
	}

	for !b.done() {
		i, t := b.cur()
		up := strings.ToUpper(t.Text)
		atStart := first
		first = false

		switch {
		case t.Text == ";":
			if nested {
				return false
			}
			b.take(parent)
			return true

		case t.Text == ")":
			if depth == 0 && nested {
				return false
			}
			if depth > 0 {
				depth--
			}
			b.take(container)

		case t.Text == "(":
			if _, next, ok := b.peekSig(1); ok && isQueryStart(next.Text) {
				sub := b.subquery()
				if mode == modeTable {
					elem := newNode(KindFromElement)
					elem.Children = append(elem.Children, sub)
					b.tableAlias(elem)
					setRange(elem)
					container.Children = append(container.Children, elem)
				} else {
					container.Children = append(container.Children, sub)
				}
				continue
			}
			if into {
				// INSERT INTO t (a, b): the column list follows the table.
				mode = modeColumn
				into = false
			}
			depth++
			b.take(container)

		case t.Kind == TokenKeyword && mode == modeColumn && !aliasNext && operandKeywords[up]:
			b.columnOperand(container)

		case t.Kind == TokenKeyword:
			switch up {
			case "SELECT", "WHERE", "HAVING", "SET", "RETURNING", "ON", "VALUES":
				startClause(modeColumn)
			case "FROM", "JOIN", "UPDATE", "TABLE":
				startClause(modeTable)
			case "INTO":
				startClause(modeTable)
				into = true
			case "DESCRIBE", "DESC":
				if atStart {
					startClause(modeTable)
				}
			case "GROUP", "ORDER", "LIMIT", "OFFSET", "UNION", "INTERSECT", "EXCEPT", "WINDOW":
				startClause(modeNone)
			case "BY", "USING":
				mode = modeColumn
			case "AS":
				if mode == modeColumn {
					aliasNext = true
				}
			}
			b.take(container)

		case t.Kind == TokenIdentifier || t.Kind == TokenQuotedIdentifier:
			switch {
			case mode == modeTable:
				b.fromElement(container)
			case mode == modeColumn && aliasNext:
				alias := newNode(KindColumnAlias)
				b.take(alias)
				setRange(alias)
				container.Children = append(container.Children, alias)
				aliasNext = false
			case mode == modeColumn:
				b.columnOperand(container)
			default:
				b.take(container)
			}

		case t.Kind == TokenString || t.Kind == TokenNumber:
			lit := newNode(KindLiteral)
			b.leaf(lit, i)
			b.p++
			setRange(lit)
			container.Children = append(container.Children, lit)

		default:
			b.take(container)
		}
	}
	return false
}

func isQueryStart(text string) bool {
	up := strings.ToUpper(text)
	return up == "SELECT" || up == "WITH"
}

// subquery consumes "( query )".
func (b *builder) subquery() *Node {
	sub := newNode(KindSubquery)
	b.take(sub) // (
	b.body(sub, true)
	if !b.done() {
		if _, t := b.cur(); t.Text == ")" {
			b.take(sub)
		}
	}
	setRange(sub)
	return sub
}

// fromElement consumes a dotted table name and an optional alias.
func (b *builder) fromElement(container *Node) {
	elem := newNode(KindFromElement)
	ref := newNode(KindTableReference)
	b.take(ref)
	for !b.done() {
		dot, t := b.cur()
		if t.Text != "." {
			break
		}
		b.take(ref)
		if b.done() {
			break
		}
		j, next := b.cur()
		if next.Kind == TokenIdentifier || next.Kind == TokenQuotedIdentifier ||
			(next.Kind == TokenKeyword && j == dot+1) {
			b.take(ref)
			continue
		}
		break
	}
	setRange(ref)
	elem.Children = append(elem.Children, ref)
	b.tableAlias(elem)
	setRange(elem)
	container.Children = append(container.Children, elem)
}

// tableAlias consumes "[AS] alias" after a table reference or subquery.
func (b *builder) tableAlias(elem *Node) {
	if b.done() {
		return
	}
	_, t := b.cur()
	alias := newNode(KindTableAlias)
	switch {
	case strings.EqualFold(t.Text, "AS"):
		b.take(alias)
		if !b.done() {
			if _, next := b.cur(); next.Kind == TokenIdentifier || next.Kind == TokenQuotedIdentifier {
				b.take(alias)
			}
		}
	case t.Kind == TokenIdentifier || t.Kind == TokenQuotedIdentifier:
		b.take(alias)
	default:
		return
	}
	setRange(alias)
	elem.Children = append(elem.Children, alias)
}

// columnOperand consumes a function name or a column reference.
func (b *builder) columnOperand(container *Node) {
	if _, next, ok := b.peekSig(1); ok && next.Text == "(" {
		fn := newNode(KindFunction)
		b.take(fn)
		setRange(fn)
		container.Children = append(container.Children, fn)
		return
	}
	b.columnReference(container)
}

// columnReference consumes ident(.ident)* with an optional trailing dot or star.
func (b *builder) columnReference(container *Node) {
	ref := newNode(KindColumnReference)
	b.take(ref)
	for !b.done() {
		dot, t := b.cur()
		if t.Text != "." {
			break
		}
		b.take(ref)
		if b.done() {
			break
		}
		j, next := b.cur()
		if next.Kind == TokenIdentifier || next.Kind == TokenQuotedIdentifier || next.Text == "*" ||
			(next.Kind == TokenKeyword && j == dot+1) {
			b.take(ref)
			continue
		}
		break
	}
	setRange(ref)
	container.Children = append(container.Children, ref)
}

func finalize(n *Node) {
	if n.IsLeaf() {
		return
	}
	for _, c := range n.Children {
		finalize(c)
	}
	setRange(n)
}

// setRange derives an inner node's token range from its children.
func setRange(n *Node) {
	if len(n.Children) == 0 {
		n.First, n.Last = -1, -1
		return
	}
	n.First = n.Children[0].First
	n.Last = n.Children[len(n.Children)-1].Last
}
