package sqlparse

import "strings"

var (
	tableIntroducers = map[string]bool{
		"FROM": true, "JOIN": true, "INTO": true, "UPDATE": true, "TABLE": true, "DESCRIBE": true,
	}
	columnIntroducers = map[string]bool{
		"SELECT": true, "DISTINCT": true, "WHERE": true, "ON": true, "AND": true, "OR": true,
		"NOT": true, "BY": true, "HAVING": true, "SET": true, "WHEN": true, "THEN": true,
		"ELSE": true, "CASE": true, "RETURNING": true,
	}
)

// AssignTrivia sets the parent kind of whitespace and newline tokens to the
// construct expected after the preceding significant token, so a cursor
// resting in the gap after "FROM " classifies as a table position. Comments
// take the neutral clause kind.
func AssignTrivia(tokens []Token) {
	prev := -1
	for i := range tokens {
		t := &tokens[i]
		switch t.Kind {
		case TokenWhitespace, TokenNewline:
			t.Parent = expectedAfter(tokens, prev)
		case TokenComment:
			t.Parent = KindClause
			if prev >= 0 && tokens[prev].Parent == KindUnparsable {
				t.Parent = KindUnparsable
			}
		default:
			prev = i
		}
	}
}

func expectedAfter(tokens []Token, prev int) NodeKind {
	if prev < 0 {
		return KindFile
	}
	t := tokens[prev]
	switch {
	case t.Parent == KindUnparsable:
		return KindUnparsable
	case t.Text == ";":
		return KindFile
	case t.Kind == TokenKeyword && tableIntroducers[strings.ToUpper(t.Text)]:
		return KindTableReference
	case t.Kind == TokenKeyword && columnIntroducers[strings.ToUpper(t.Text)]:
		return KindColumnReference
	case t.Text == ",":
		return listContinuation(tokens, prev)
	case t.Text == "(" || (t.Kind == TokenOperator && t.Text != "*"):
		return KindColumnReference
	}
	return KindClause
}

// listContinuation classifies the gap after a comma by the item before it.
func listContinuation(tokens []Token, comma int) NodeKind {
	for j := comma - 1; j >= 0; j-- {
		if tokens[j].Kind.IsTrivia() {
			continue
		}
		switch tokens[j].Parent {
		case KindTableReference, KindTableAlias, KindFromElement:
			return KindTableReference
		case KindColumnReference, KindColumnAlias, KindFunction, KindLiteral:
			return KindColumnReference
		}
		return KindClause
	}
	return KindClause
}
