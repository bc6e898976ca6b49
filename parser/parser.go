package parser

import (
	"fmt"
	"strings"

	"github.com/edwardcox/bplplus-autoimport/ast"
	"github.com/edwardcox/bplplus-autoimport/lexer"
)

type Parser struct {
	lx   *lexer.Lexer
	cur  lexer.Token
	peek lexer.Token
}

func New(lx *lexer.Lexer) *Parser {
	p := &Parser{lx: lx}
	p.cur = lx.NextToken()
	p.peek = lx.NextToken()
	return p
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.lx.NextToken()
}

func sp(tok lexer.Token) ast.Span { return ast.Span{Line: tok.Line, Col: tok.Col} }

// ParseProgram parses a whole chunk. Every statement must be terminated by a
// newline, ';' or end of input.
func (p *Parser) ParseProgram() ([]ast.Stmt, error) {
	stmts, err := p.parseBlockUntil()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.EOF {
		return nil, p.errAt(p.cur, "Unexpected token")
	}
	return stmts, nil
}

func isSep(t lexer.TokenType) bool { return t == lexer.NEWLINE || t == lexer.SEMICOLON }

func (p *Parser) skipSeps() {
	for isSep(p.cur.Type) {
		p.next()
	}
}

// expectHeaderEnd consumes the separator(s) that end a block header line.
func (p *Parser) expectHeaderEnd(msg string) error {
	if !isSep(p.cur.Type) {
		return p.errAt(p.cur, msg)
	}
	p.skipSeps()
	return nil
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.cur.Type {
	case lexer.PRINT:
		return p.parsePrint()
	case lexer.IF:
		return p.parseIf()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.FOR:
		if p.peek.Type == lexer.EACH {
			return p.parseForEach()
		}
		return p.parseFor()
	case lexer.FUNCTION:
		return p.parseFunctionDecl()
	case lexer.RETURN:
		return p.parseReturn()
	case lexer.BREAK:
		tok := p.cur
		p.next()
		return &ast.BreakStmt{S: sp(tok)}, nil
	case lexer.CONTINUE:
		tok := p.cur
		p.next()
		return &ast.ContinueStmt{S: sp(tok)}, nil
	case lexer.IMPORT:
		return p.parseImport()
	case lexer.FROM:
		return p.parseFromImport()
	case lexer.DEL:
		return p.parseDel()
	default:
		return p.parseSimple()
	}
}

func (p *Parser) parsePrint() (ast.Stmt, error) {
	printTok := p.cur
	p.next()
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.PrintStmt{S: sp(printTok), Value: expr}, nil
}

// simple = expr [ "=" expr ]
// The left side of an assignment must be a name, an index or an attribute.
func (p *Parser) parseSimple() (ast.Stmt, error) {
	startTok := p.cur
	left, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.ASSIGN {
		return &ast.ExprStmt{S: sp(startTok), Expr: left}, nil
	}
	assignTok := p.cur
	p.next()
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	switch target := left.(type) {
	case *ast.Identifier:
		return &ast.AssignStmt{S: sp(startTok), Name: target.Name, Value: val}, nil
	case *ast.IndexExpr:
		return &ast.IndexAssignStmt{S: target.S, Target: target.Left, Index: target.Index, Value: val}, nil
	case *ast.AttrExpr:
		return &ast.AttrAssignStmt{S: target.S, Target: target.Left, Name: target.Name, Value: val}, nil
	default:
		return nil, p.errAt(assignTok, "Invalid assignment target")
	}
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	retTok := p.cur
	p.next()
	if isSep(p.cur.Type) || p.cur.Type == lexer.EOF || p.cur.Type == lexer.END {
		return &ast.ReturnStmt{S: sp(retTok)}, nil
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{S: sp(retTok), Value: expr}, nil
}

// del = "del" IDENT ("," IDENT)*
func (p *Parser) parseDel() (ast.Stmt, error) {
	delTok := p.cur
	p.next()
	names := []string{}
	for {
		if p.cur.Type != lexer.IDENT {
			return nil, p.errAt(p.cur, "Expected name after 'del'")
		}
		names = append(names, p.cur.Lexeme)
		p.next()
		if p.cur.Type != lexer.COMMA {
			break
		}
		p.next()
	}
	return &ast.DelStmt{S: sp(delTok), Names: names}, nil
}

// importStmt = "import" STRING
//            | "import" dotted [ "as" IDENT ] ( "," dotted [ "as" IDENT ] )*
func (p *Parser) parseImport() (ast.Stmt, error) {
	imTok := p.cur
	p.next()
	if p.cur.Type == lexer.STRING {
		pathTok := p.cur
		p.next()
		return &ast.IncludeStmt{S: sp(imTok), Path: pathTok.Lexeme}, nil
	}

	names := []ast.ImportAlias{}
	for {
		name, err := p.parseDotted("Expected module name after 'import'")
		if err != nil {
			return nil, err
		}
		alias, err := p.parseAlias()
		if err != nil {
			return nil, err
		}
		names = append(names, ast.ImportAlias{Name: name, AsName: alias})
		if p.cur.Type != lexer.COMMA {
			break
		}
		p.next()
	}
	return &ast.ImportStmt{S: sp(imTok), Names: names}, nil
}

// fromImport = "from" "."* [ dotted ] "import" IDENT [ "as" IDENT ] ( "," ... )*
func (p *Parser) parseFromImport() (ast.Stmt, error) {
	fromTok := p.cur
	p.next()

	level := 0
	for p.cur.Type == lexer.DOT {
		level++
		p.next()
	}

	module := ""
	if p.cur.Type == lexer.IDENT {
		name, err := p.parseDotted("Expected module name after 'from'")
		if err != nil {
			return nil, err
		}
		module = name
	} else if level == 0 {
		return nil, p.errAt(p.cur, "Expected module name after 'from'")
	}

	if p.cur.Type != lexer.IMPORT {
		return nil, p.errAt(p.cur, "Expected 'import' in from-import")
	}
	p.next()

	names := []ast.ImportAlias{}
	for {
		if p.cur.Type != lexer.IDENT {
			return nil, p.errAt(p.cur, "Expected name in from-import")
		}
		name := p.cur.Lexeme
		p.next()
		alias, err := p.parseAlias()
		if err != nil {
			return nil, err
		}
		names = append(names, ast.ImportAlias{Name: name, AsName: alias})
		if p.cur.Type != lexer.COMMA {
			break
		}
		p.next()
	}
	return &ast.FromImportStmt{S: sp(fromTok), Module: module, Level: level, Names: names}, nil
}

// dotted = IDENT ( "." IDENT )*
func (p *Parser) parseDotted(msg string) (string, error) {
	if p.cur.Type != lexer.IDENT {
		return "", p.errAt(p.cur, msg)
	}
	parts := []string{p.cur.Lexeme}
	p.next()
	for p.cur.Type == lexer.DOT {
		p.next()
		if p.cur.Type != lexer.IDENT {
			return "", p.errAt(p.cur, "Expected name after '.'")
		}
		parts = append(parts, p.cur.Lexeme)
		p.next()
	}
	return strings.Join(parts, "."), nil
}

func (p *Parser) parseAlias() (string, error) {
	if p.cur.Type != lexer.AS {
		return "", nil
	}
	p.next()
	if p.cur.Type != lexer.IDENT {
		return "", p.errAt(p.cur, "Expected name after 'as'")
	}
	alias := p.cur.Lexeme
	p.next()
	return alias, nil
}

func (p *Parser) parseFunctionDecl() (ast.Stmt, error) {
	p.next()
	if p.cur.Type != lexer.IDENT {
		return nil, p.errAt(p.cur, "Expected function name after 'function'")
	}
	nameTok := p.cur
	name := nameTok.Lexeme

	p.next()
	if p.cur.Type != lexer.LPAREN {
		return nil, p.errAt(p.cur, "Expected '(' after function name")
	}

	params := []string{}
	p.next()
	if p.cur.Type != lexer.RPAREN {
		for {
			if p.cur.Type != lexer.IDENT {
				return nil, p.errAt(p.cur, "Expected parameter name")
			}
			params = append(params, p.cur.Lexeme)

			p.next()
			if p.cur.Type == lexer.COMMA {
				p.next()
				continue
			}
			if p.cur.Type == lexer.RPAREN {
				break
			}
			return nil, p.errAt(p.cur, "Expected ',' or ')' in parameter list")
		}
	}

	if p.cur.Type != lexer.RPAREN {
		return nil, p.errAt(p.cur, "Expected ')' after parameters")
	}
	p.next()

	if err := p.expectHeaderEnd("Expected NEWLINE after function header"); err != nil {
		return nil, err
	}

	body, err := p.parseBlockUntil(lexer.END)
	if err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.END {
		return nil, p.errAt(p.cur, "Expected 'end' to close function")
	}
	p.next()

	return &ast.FunctionDecl{S: sp(nameTok), Name: name, Params: params, Body: body}, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	ifTok := p.cur
	p.next()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectHeaderEnd("Expected NEWLINE after if condition"); err != nil {
		return nil, err
	}

	thenBlock, err := p.parseBlockUntil(lexer.ELSE, lexer.END)
	if err != nil {
		return nil, err
	}

	elseBlock := []ast.Stmt{}
	if p.cur.Type == lexer.ELSE {
		p.next()
		if err := p.expectHeaderEnd("Expected NEWLINE after else"); err != nil {
			return nil, err
		}
		elseBlock, err = p.parseBlockUntil(lexer.END)
		if err != nil {
			return nil, err
		}
	}

	if p.cur.Type != lexer.END {
		return nil, p.errAt(p.cur, "Expected 'end' to close if")
	}
	p.next()

	return &ast.IfStmt{S: sp(ifTok), Condition: cond, Then: thenBlock, Else: elseBlock}, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	wTok := p.cur
	p.next()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectHeaderEnd("Expected NEWLINE after while condition"); err != nil {
		return nil, err
	}

	body, err := p.parseBlockUntil(lexer.END)
	if err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.END {
		return nil, p.errAt(p.cur, "Expected 'end' to close while")
	}
	p.next()

	return &ast.WhileStmt{S: sp(wTok), Condition: cond, Body: body}, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	p.next()
	if p.cur.Type != lexer.IDENT {
		return nil, p.errAt(p.cur, "Expected loop variable after 'for'")
	}
	varNameTok := p.cur
	varName := varNameTok.Lexeme

	p.next()
	if p.cur.Type != lexer.ASSIGN {
		return nil, p.errAt(p.cur, "Expected '=' after loop variable")
	}

	p.next()
	startExpr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.TO {
		return nil, p.errAt(p.cur, "Expected 'to' in for loop")
	}

	p.next()
	endExpr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	var stepExpr ast.Expr = nil
	if p.cur.Type == lexer.STEP {
		p.next()
		stepExpr, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}

	if err := p.expectHeaderEnd("Expected NEWLINE after for header"); err != nil {
		return nil, err
	}

	body, err := p.parseBlockUntil(lexer.END)
	if err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.END {
		return nil, p.errAt(p.cur, "Expected 'end' to close for")
	}
	p.next()

	return &ast.ForStmt{S: sp(varNameTok), Var: varName, Start: startExpr, End: endExpr, Step: stepExpr, Body: body}, nil
}

// forEach = "for" "each" IDENT [ "," IDENT ] "in" expr
func (p *Parser) parseForEach() (ast.Stmt, error) {
	forTok := p.cur
	p.next() // each
	p.next()
	if p.cur.Type != lexer.IDENT {
		return nil, p.errAt(p.cur, "Expected loop variable after 'for each'")
	}
	varName := p.cur.Lexeme
	indexVar := ""

	p.next()
	if p.cur.Type == lexer.COMMA {
		p.next()
		if p.cur.Type != lexer.IDENT {
			return nil, p.errAt(p.cur, "Expected index variable after ','")
		}
		indexVar = p.cur.Lexeme
		p.next()
	}

	if p.cur.Type != lexer.IN {
		return nil, p.errAt(p.cur, "Expected 'in' in for each loop")
	}
	p.next()

	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectHeaderEnd("Expected NEWLINE after for each header"); err != nil {
		return nil, err
	}

	body, err := p.parseBlockUntil(lexer.END)
	if err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.END {
		return nil, p.errAt(p.cur, "Expected 'end' to close for each")
	}
	p.next()

	return &ast.ForEachStmt{S: sp(forTok), Var: varName, IndexVar: indexVar, Iterable: iter, Body: body}, nil
}

func (p *Parser) parseBlockUntil(terminators ...lexer.TokenType) ([]ast.Stmt, error) {
	block := []ast.Stmt{}
	p.skipSeps()
	for p.cur.Type != lexer.EOF && !p.isOneOf(p.cur.Type, terminators...) {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		block = append(block, stmt)

		if !isSep(p.cur.Type) && p.cur.Type != lexer.EOF && !p.isOneOf(p.cur.Type, terminators...) {
			return nil, p.errAt(p.cur, "Expected end of statement")
		}
		p.skipSeps()
	}
	return block, nil
}

func (p *Parser) isOneOf(t lexer.TokenType, list ...lexer.TokenType) bool {
	for _, x := range list {
		if t == x {
			return true
		}
	}
	return false
}

// expr = or
func (p *Parser) parseExpr() (ast.Expr, error) { return p.parseOr() }

// or = and ( "or" and )*
func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == lexer.OR {
		opTok := p.cur
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{S: sp(opTok), Left: left, Op: "or", Right: right}
	}
	return left, nil
}

// and = comparison ( "and" comparison )*
func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == lexer.AND {
		opTok := p.cur
		p.next()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{S: sp(opTok), Left: left, Op: "and", Right: right}
	}
	return left, nil
}

// comparison = addsub ( (==|!=|<|>|<=|>=|in) addsub )?
func (p *Parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	if isCompareTok(p.cur.Type) {
		opTok := p.cur
		op := p.cur.Lexeme
		if p.cur.Type == lexer.IN {
			op = "in"
		}
		p.next()
		right, err := p.parseAddSub()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{S: sp(opTok), Left: left, Op: op, Right: right}, nil
	}
	return left, nil
}

func isCompareTok(t lexer.TokenType) bool {
	return t == lexer.EQ || t == lexer.NEQ || t == lexer.LT || t == lexer.GT || t == lexer.LTE || t == lexer.GTE || t == lexer.IN
}

func (p *Parser) parseAddSub() (ast.Expr, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == lexer.PLUS || p.cur.Type == lexer.MINUS {
		opTok := p.cur
		op := p.cur.Lexeme
		p.next()
		right, err := p.parseMulDiv()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{S: sp(opTok), Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMulDiv() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == lexer.STAR || p.cur.Type == lexer.SLASH {
		opTok := p.cur
		op := p.cur.Lexeme
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{S: sp(opTok), Left: left, Op: op, Right: right}
	}
	return left, nil
}

// unary = ("not" | "-") unary | postfix
func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.cur.Type == lexer.MINUS {
		opTok := p.cur
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{S: sp(opTok), Op: "-", Right: right}, nil
	}
	if p.cur.Type == lexer.NOT {
		opTok := p.cur
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{S: sp(opTok), Op: "not", Right: right}, nil
	}
	return p.parsePostfix()
}

// postfix = primary ( "[" expr "]" | "." IDENT | "(" args ")" )*
func (p *Parser) parsePostfix() (ast.Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch p.cur.Type {
		case lexer.LBRACKET:
			brTok := p.cur
			p.next()

			indexExpr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			if p.cur.Type != lexer.RBRACKET {
				return nil, p.errAt(p.cur, "Expected ']' after index expression")
			}
			p.next()

			left = &ast.IndexExpr{S: sp(brTok), Left: left, Index: indexExpr}

		case lexer.DOT:
			p.next()
			if p.cur.Type != lexer.IDENT {
				return nil, p.errAt(p.cur, "Expected attribute name after '.'")
			}
			nameTok := p.cur
			p.next()
			left = &ast.AttrExpr{S: sp(nameTok), Left: left, Name: nameTok.Lexeme}

		case lexer.LPAREN:
			callTok := p.cur
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			span := left.GetSpan()
			if span.Line == 0 {
				span = sp(callTok)
			}
			left = &ast.CallExpr{S: span, Callee: left, Args: args}

		default:
			return left, nil
		}
	}
}

// args = "(" [ expr ( "," expr )* ] ")"
func (p *Parser) parseArgs() ([]ast.Expr, error) {
	args := []ast.Expr{}
	p.next()
	if p.cur.Type != lexer.RPAREN {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			if p.cur.Type == lexer.COMMA {
				p.next()
				continue
			}
			if p.cur.Type == lexer.RPAREN {
				break
			}
			return nil, p.errAt(p.cur, "Expected ',' or ')' in call arguments")
		}
	}
	if p.cur.Type != lexer.RPAREN {
		return nil, p.errAt(p.cur, "Expected ')' after call arguments")
	}
	p.next()
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	switch p.cur.Type {
	case lexer.STRING:
		tok := p.cur
		expr := &ast.StringLiteral{S: sp(tok), Value: tok.Lexeme}
		p.next()
		return expr, nil

	case lexer.NUMBER:
		tok := p.cur
		expr := &ast.NumberLiteral{S: sp(tok), Lexeme: tok.Lexeme}
		p.next()
		return expr, nil

	case lexer.TRUE:
		tok := p.cur
		p.next()
		return &ast.BoolLiteral{S: sp(tok), Value: true}, nil

	case lexer.FALSE:
		tok := p.cur
		p.next()
		return &ast.BoolLiteral{S: sp(tok), Value: false}, nil

	case lexer.NULL:
		tok := p.cur
		p.next()
		return &ast.NullLiteral{S: sp(tok)}, nil

	case lexer.IDENT:
		nameTok := p.cur
		p.next()
		return &ast.Identifier{S: sp(nameTok), Name: nameTok.Lexeme}, nil

	case lexer.LPAREN:
		p.next()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur.Type != lexer.RPAREN {
			return nil, p.errAt(p.cur, "Expected ')'")
		}
		p.next()
		return expr, nil

	case lexer.LBRACKET:
		return p.parseArrayLiteral()

	case lexer.LBRACE:
		return p.parseMapLiteral()

	default:
		return nil, p.errAt(p.cur, "Expected an expression")
	}
}

// arrayLiteral = "[" [ expr ("," expr)* ] "]"
func (p *Parser) parseArrayLiteral() (ast.Expr, error) {
	lbTok := p.cur
	p.next()

	elems := []ast.Expr{}

	if p.cur.Type == lexer.RBRACKET {
		p.next()
		return &ast.ArrayLiteralExpr{S: sp(lbTok), Elements: elems}, nil
	}

	for {
		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)

		if p.cur.Type == lexer.COMMA {
			p.next()
			continue
		}
		if p.cur.Type == lexer.RBRACKET {
			p.next()
			break
		}
		return nil, p.errAt(p.cur, "Expected ',' or ']' in array literal")
	}

	return &ast.ArrayLiteralExpr{S: sp(lbTok), Elements: elems}, nil
}

// mapLiteral = "{" [ string ":" expr ("," string ":" expr)* ] "}"
// Keys are STRING tokens (so you write: {"a": 1, "b": 2})
func (p *Parser) parseMapLiteral() (ast.Expr, error) {
	lbTok := p.cur // '{'
	p.next()

	entries := []ast.MapEntry{}

	// empty map
	if p.cur.Type == lexer.RBRACE {
		p.next()
		return &ast.MapLiteralExpr{S: sp(lbTok), Entries: entries}, nil
	}

	for {
		if p.cur.Type != lexer.STRING {
			return nil, p.errAt(p.cur, "Expected string key in map literal")
		}
		keyTok := p.cur
		key := keyTok.Lexeme
		p.next()

		if p.cur.Type != lexer.COLON {
			return nil, p.errAt(p.cur, "Expected ':' after map key")
		}
		p.next()

		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		entries = append(entries, ast.MapEntry{Key: key, Value: val})

		if p.cur.Type == lexer.COMMA {
			p.next()
			continue
		}
		if p.cur.Type == lexer.RBRACE {
			p.next()
			break
		}
		return nil, p.errAt(p.cur, "Expected ',' or '}' in map literal")
	}

	return &ast.MapLiteralExpr{S: sp(lbTok), Entries: entries}, nil
}

func (p *Parser) errAt(tok lexer.Token, msg string) error {
	if tok.Type == lexer.EOF {
		return fmt.Errorf("%s at end of file", msg)
	}
	return fmt.Errorf("%s at %d:%d (got %s)", msg, tok.Line, tok.Col, tok.Type)
}

// Parse lexes and parses src as a complete program.
func Parse(src string) ([]ast.Stmt, error) {
	return New(lexer.New(src)).ParseProgram()
}
