package lexer

import "strings"

type Lexer struct {
	input []rune
	pos   int
	line  int
	col   int
}

func New(input string) *Lexer {
	return &Lexer{
		input: []rune(input),
		line:  1,
		col:   1,
	}
}

func (l *Lexer) peekAt(offset int) rune {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *Lexer) peek() rune { return l.peekAt(0) }

func (l *Lexer) advance() rune {
	ch := l.peek()
	if ch == 0 {
		return 0
	}
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

// single maps one-rune tokens.
var single = map[rune]TokenType{
	'+': PLUS, '-': MINUS, '*': STAR, '/': SLASH,
	'(': LPAREN, ')': RPAREN, '[': LBRACKET, ']': RBRACKET, '{': LBRACE, '}': RBRACE,
	',': COMMA, ':': COLON, ';': SEMICOLON, '.': DOT,
	'=': ASSIGN, '<': LT, '>': GT,
}

// withEq maps a rune to the token it forms when followed by '='.
var withEq = map[rune]TokenType{
	'=': EQ, '!': NEQ, '<': LTE, '>': GTE,
}

var escapes = map[rune]rune{'n': '\n', 't': '\t', '"': '"', '\\': '\\'}

func (l *Lexer) NextToken() Token {
	for ch := l.peek(); ch == ' ' || ch == '\t' || ch == '\r'; ch = l.peek() {
		l.advance()
	}

	line, col := l.line, l.col
	tok := func(tt TokenType, lex string) Token {
		return Token{Type: tt, Lexeme: lex, Line: line, Col: col}
	}

	ch := l.peek()
	switch {
	case ch == 0:
		return tok(EOF, "")

	case ch == '\n':
		l.advance()
		return tok(NEWLINE, "\n")

	case ch == '\'' || ch == '#':
		for l.peek() != 0 && l.peek() != '\n' {
			l.advance()
		}
		return l.NextToken()

	case isAlpha(ch) || ch == '_':
		lex := l.take(func(r rune) bool { return isAlphaNum(r) || r == '_' })
		return tok(LookupIdent(lex), lex)

	case isDigit(ch):
		return tok(NUMBER, l.number())

	case ch == '"':
		s, msg := l.str()
		if msg != "" {
			return tok(ILLEGAL, msg)
		}
		return tok(STRING, s)
	}

	l.advance()
	if tt, ok := withEq[ch]; ok && l.peek() == '=' {
		l.advance()
		return tok(tt, string(ch)+"=")
	}
	if tt, ok := single[ch]; ok {
		return tok(tt, string(ch))
	}
	return tok(ILLEGAL, string(ch))
}

func (l *Lexer) take(ok func(rune) bool) string {
	var b strings.Builder
	for ok(l.peek()) {
		b.WriteRune(l.advance())
	}
	return b.String()
}

// number reads digits with at most one fractional part. A dot not followed
// by a digit is left for attribute access.
func (l *Lexer) number() string {
	lex := l.take(isDigit)
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()
		lex += "." + l.take(isDigit)
	}
	return lex
}

// str reads a double-quoted string. On failure it returns a message for an
// ILLEGAL token.
func (l *Lexer) str() (string, string) {
	l.advance()
	var b strings.Builder
	for {
		c := l.peek()
		switch c {
		case 0, '\n':
			return "", "Unterminated string"
		case '"':
			l.advance()
			return b.String(), ""
		case '\\':
			l.advance()
			esc := l.peek()
			if esc == 0 {
				return "", "Bad escape"
			}
			l.advance()
			if r, ok := escapes[esc]; ok {
				b.WriteRune(r)
			} else {
				b.WriteRune(esc)
			}
		default:
			b.WriteRune(l.advance())
		}
	}
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAlphaNum(r rune) bool {
	return isAlpha(r) || isDigit(r)
}
