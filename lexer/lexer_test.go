package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func tokenTypes(src string) []TokenType {
	lx := New(src)
	var out []TokenType
	for {
		tok := lx.NextToken()
		out = append(out, tok.Type)
		if tok.Type == EOF {
			return out
		}
	}
}

func TestImportTokens(t *testing.T) {
	assert.Equal(t,
		[]TokenType{FROM, DOT, DOT, IDENT, DOT, IDENT, IMPORT, IDENT, AS, IDENT, EOF},
		tokenTypes("from ..a.b import c as d"))
	assert.Equal(t,
		[]TokenType{DEL, IDENT, COMMA, IDENT, NEWLINE, EOF},
		tokenTypes("del x, y\n"))
}

func TestComments(t *testing.T) {
	assert.Equal(t, []TokenType{IDENT, NEWLINE, NEWLINE, IDENT, EOF}, tokenTypes("x # trailing\n' whole line\ny"))
}

func TestStringEscapes(t *testing.T) {
	tok := New(`"a\n\"b\""`).NextToken()
	assert.Equal(t, STRING, tok.Type)
	assert.Equal(t, "a\n\"b\"", tok.Lexeme)

	tok = New(`"open`).NextToken()
	assert.Equal(t, ILLEGAL, tok.Type)
}

func TestNumbersAndPositions(t *testing.T) {
	lx := New("x = 3.25\n  y")
	toks := []Token{lx.NextToken(), lx.NextToken(), lx.NextToken(), lx.NextToken(), lx.NextToken()}
	assert.Equal(t, "3.25", toks[2].Lexeme)
	assert.Equal(t, NUMBER, toks[2].Type)
	assert.Equal(t, 2, toks[4].Line)
	assert.Equal(t, 3, toks[4].Col)
}

func TestKeywordCase(t *testing.T) {
	for _, kw := range []string{"print", "PRINT", "Print"} {
		assert.Equal(t, PRINT, LookupIdent(kw), kw)
	}
	assert.Equal(t, IMPORT, LookupIdent("import"))
	// module keywords are lowercase only
	assert.Equal(t, IDENT, LookupIdent("Import"))
	assert.Equal(t, IDENT, LookupIdent("As"))
}
