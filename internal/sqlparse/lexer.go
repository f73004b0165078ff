package sqlparse

import (
	"strings"
	"unicode"
)

// reserved words are lexed as keywords; every other word is an identifier.
var reserved = map[string]bool{
	"ALL": true, "ALTER": true, "ANALYZE": true, "AND": true, "AS": true,
	"ASC": true, "BETWEEN": true, "BY": true, "CASE": true, "CREATE": true,
	"CROSS": true, "DEFAULT": true, "DELETE": true, "DESC": true, "DESCRIBE": true,
	"DISTINCT": true, "DROP": true, "ELSE": true, "END": true, "EXCEPT": true,
	"EXISTS": true, "EXPLAIN": true, "FALSE": true, "FETCH": true, "FOR": true,
	"FROM": true, "FULL": true, "GROUP": true, "HAVING": true, "IF": true,
	"ILIKE": true, "IN": true, "INDEX": true, "INNER": true, "INSERT": true,
	"INTERSECT": true, "INTO": true, "IS": true, "JOIN": true, "KEY": true,
	"LATERAL": true, "LEFT": true, "LIKE": true, "LIMIT": true, "NATURAL": true,
	"NOT": true, "NULL": true, "OFFSET": true, "ON": true, "OR": true,
	"ORDER": true, "OUTER": true, "OVER": true, "PARTITION": true, "PRIMARY": true,
	"RECURSIVE": true, "REGEXP": true, "REPLACE": true, "RETURNING": true, "RIGHT": true,
	"SELECT": true, "SET": true, "SHOW": true, "TABLE": true, "THEN": true,
	"TRUE": true, "TRUNCATE": true, "UNION": true, "UPDATE": true, "USE": true,
	"USING": true, "VALUES": true, "VIEW": true, "WHEN": true, "WHERE": true,
	"WINDOW": true, "WITH": true,
}

var multiCharOperators = []string{"<=>", "<>", "!=", "<=", ">=", "||", "::", ":=", "->>", "->"}

type lexer struct {
	src    []rune
	pos    int
	line   int
	column int
	tokens []Token
}

// Lex splits text into tokens, trivia included. It never fails: unterminated
// strings and comments run to the end of the input.
func Lex(text string) []Token {
	l := &lexer{src: []rune(text), line: 1, column: 1}
	for l.pos < len(l.src) {
		l.next()
	}
	return l.tokens
}

func (l *lexer) peek(offset int) rune {
	if l.pos+offset < len(l.src) {
		return l.src[l.pos+offset]
	}
	return 0
}

func (l *lexer) emit(kind TokenKind, start int) {
	text := string(l.src[start:l.pos])
	l.tokens = append(l.tokens, Token{Text: text, Kind: kind, Line: l.line, Column: l.column})
	for _, r := range l.src[start:l.pos] {
		if r == '\n' {
			l.line++
			l.column = 1
		} else {
			l.column++
		}
	}
}

func (l *lexer) next() {
	start := l.pos
	r := l.src[l.pos]

	switch {
	case r == '\n':
		l.pos++
		l.emit(TokenNewline, start)
	case r == '\r' && l.peek(1) == '\n':
		l.pos += 2
		l.emit(TokenNewline, start)
	case unicode.IsSpace(r):
		for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) && l.src[l.pos] != '\n' &&
			!(l.src[l.pos] == '\r' && l.peek(1) == '\n') {
			l.pos++
		}
		l.emit(TokenWhitespace, start)
	case r == '-' && l.peek(1) == '-', r == '#':
		for l.pos < len(l.src) && l.src[l.pos] != '\n' && l.src[l.pos] != '\r' {
			l.pos++
		}
		l.emit(TokenComment, start)
	case r == '/' && l.peek(1) == '*':
		l.pos += 2
		for l.pos < len(l.src) && !(l.src[l.pos] == '*' && l.peek(1) == '/') {
			l.pos++
		}
		l.pos = min(l.pos+2, len(l.src))
		l.emit(TokenComment, start)
	case r == '\'':
		l.quoted('\'')
		l.emit(TokenString, start)
	case r == '"' || r == '`':
		l.quoted(r)
		l.emit(TokenQuotedIdentifier, start)
	case unicode.IsDigit(r) || (r == '.' && unicode.IsDigit(l.peek(1))):
		for l.pos < len(l.src) && (unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '.' ||
			l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
			l.pos++
		}
		l.emit(TokenNumber, start)
	case isWordRune(r) || r == '@' || r == '$':
		l.pos++
		for l.pos < len(l.src) && (isWordRune(l.src[l.pos]) || l.src[l.pos] == '$') {
			l.pos++
		}
		word := string(l.src[start:l.pos])
		if reserved[strings.ToUpper(word)] {
			l.emit(TokenKeyword, start)
		} else {
			l.emit(TokenIdentifier, start)
		}
	default:
		for _, op := range multiCharOperators {
			if l.hasPrefix(op) {
				l.pos += len([]rune(op))
				l.emit(TokenOperator, start)
				return
			}
		}
		l.pos++
		if strings.ContainsRune("(),;.[]", r) {
			l.emit(TokenPunctuation, start)
		} else {
			l.emit(TokenOperator, start)
		}
	}
}

// quoted consumes a quoted run; a doubled quote or a backslash escapes.
func (l *lexer) quoted(q rune) {
	l.pos++
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\\':
			if q == '\'' {
				l.pos += 2
				continue
			}
		case q:
			if l.peek(1) == q {
				l.pos += 2
				continue
			}
			l.pos++
			return
		}
		l.pos++
	}
	l.pos = len(l.src)
}

func (l *lexer) hasPrefix(s string) bool {
	for i, r := range []rune(s) {
		if l.peek(i) != r {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
