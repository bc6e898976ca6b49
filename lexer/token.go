package lexer

import (
	"fmt"
	"strings"
)

type TokenType string

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"
	NEWLINE TokenType = "NEWLINE"

	IDENT  TokenType = "IDENT"
	NUMBER TokenType = "NUMBER"
	STRING TokenType = "STRING"

	PRINT    TokenType = "PRINT"
	IF       TokenType = "IF"
	ELSE     TokenType = "ELSE"
	END      TokenType = "END"
	WHILE    TokenType = "WHILE"
	FOR      TokenType = "FOR"
	TO       TokenType = "TO"
	STEP     TokenType = "STEP"
	FUNCTION TokenType = "FUNCTION"
	RETURN   TokenType = "RETURN"
	BREAK    TokenType = "BREAK"
	CONTINUE TokenType = "CONTINUE"
	TRUE     TokenType = "TRUE"
	FALSE    TokenType = "FALSE"
	NULL     TokenType = "NULL"

	// foreach sugar
	EACH TokenType = "EACH"
	IN   TokenType = "IN"

	// modules
	IMPORT TokenType = "IMPORT"
	FROM   TokenType = "FROM"
	AS     TokenType = "AS"
	DEL    TokenType = "DEL"

	AND TokenType = "AND"
	OR  TokenType = "OR"
	NOT TokenType = "NOT"

	ASSIGN TokenType = "ASSIGN"
	PLUS   TokenType = "PLUS"
	MINUS  TokenType = "MINUS"
	STAR   TokenType = "STAR"
	SLASH  TokenType = "SLASH"

	LPAREN   TokenType = "LPAREN"
	RPAREN   TokenType = "RPAREN"
	LBRACKET TokenType = "LBRACKET"
	RBRACKET TokenType = "RBRACKET"
	LBRACE   TokenType = "LBRACE"
	RBRACE   TokenType = "RBRACE"

	COMMA     TokenType = "COMMA"
	COLON     TokenType = "COLON"
	SEMICOLON TokenType = "SEMICOLON"
	DOT       TokenType = "DOT"

	EQ  TokenType = "EQ"
	NEQ TokenType = "NEQ"
	LT  TokenType = "LT"
	GT  TokenType = "GT"
	LTE TokenType = "LTE"
	GTE TokenType = "GTE"
)

type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	Col    int
}

func (t Token) String() string {
	switch t.Type {
	case STRING:
		return fmt.Sprintf("%s(%q) @ %d:%d", t.Type, t.Lexeme, t.Line, t.Col)
	case IDENT, NUMBER:
		return fmt.Sprintf("%s(%s) @ %d:%d", t.Type, t.Lexeme, t.Line, t.Col)
	default:
		return fmt.Sprintf("%s @ %d:%d", t.Type, t.Line, t.Col)
	}
}

// keywords accept lower, UPPER and Title case.
var keywords = map[string]TokenType{
	"print":    PRINT,
	"if":       IF,
	"else":     ELSE,
	"end":      END,
	"while":    WHILE,
	"for":      FOR,
	"to":       TO,
	"step":     STEP,
	"function": FUNCTION,
	"return":   RETURN,
	"break":    BREAK,
	"continue": CONTINUE,
	"true":     TRUE,
	"false":    FALSE,
	"null":     NULL,
	"each":     EACH,
	"in":       IN,
	"and":      AND,
	"or":       OR,
	"not":      NOT,
}

// moduleKeywords are lowercase only: module and attribute names are
// case-sensitive, so "As" or "From" stay usable as identifiers.
var moduleKeywords = map[string]TokenType{
	"import": IMPORT,
	"from":   FROM,
	"as":     AS,
	"del":    DEL,
}

func LookupIdent(ident string) TokenType {
	if tt, ok := moduleKeywords[ident]; ok {
		return tt
	}
	low := strings.ToLower(ident)
	tt, ok := keywords[low]
	if !ok {
		return IDENT
	}
	if ident == low || ident == strings.ToUpper(low) || ident == strings.ToUpper(low[:1])+low[1:] {
		return tt
	}
	return IDENT
}
