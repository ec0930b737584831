// Package parser implements the imp language parser.
package parser

import (
	"fmt"
	"strconv"

	"github.com/imp-lang/imp/pkg/ast"
	"github.com/imp-lang/imp/pkg/diagnostics"
	"github.com/imp-lang/imp/pkg/lexer"
)

type parser struct {
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic
}

// Parse tokenizes source and parses it into a command list, one command per
// top-level statement. Every constant and declaration in the result carries its
// type tag.
func Parse(source, filename string) (*ast.CommandList, []diagnostics.Diagnostic) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return nil, []diagnostics.Diagnostic{le.Diag}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}
	}

	p := &parser{tokens: tokens, pos: 0}
	prog := p.parseProgram()
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) peekAt(offset int) lexer.TokenType {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.TokEOF
	}
	return p.tokens[idx].Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.addError(fmt.Sprintf("expected %s, got %s", tokenName(typ), describe(tok)), &tok.Span)
		return tok, false
	}
	return p.advance(), true
}

// addError records a parse diagnostic. Errors raised at end of input are
// reported as E_INCOMPLETE so an interactive reader can ask for more lines.
func (p *parser) addError(msg string, span *ast.Span) {
	code := diagnostics.EParse
	if p.peek() == lexer.TokEOF {
		code = diagnostics.EIncomplete
	}
	p.diags = append(p.diags, diagnostics.MakeDiag(code, msg, span, ""))
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

// prevSpan is the span of the most recently consumed token.
func (p *parser) prevSpan() ast.Span {
	if p.pos == 0 {
		return p.current().Span
	}
	return p.tokens[p.pos-1].Span
}

func describe(tok lexer.Token) string {
	if tok.Type == lexer.TokEOF {
		return "end of input"
	}
	return fmt.Sprintf("'%s'", tok.Value)
}

func tokenName(t lexer.TokenType) string {
	switch t {
	case lexer.TokLBrace:
		return "'{'"
	case lexer.TokRBrace:
		return "'}'"
	case lexer.TokLParen:
		return "'('"
	case lexer.TokRParen:
		return "')'"
	case lexer.TokSemicolon:
		return "';'"
	case lexer.TokEquals:
		return "'='"
	case lexer.TokIdent:
		return "identifier"
	case lexer.TokStringLit:
		return "string"
	case lexer.TokIntLit:
		return "integer"
	case lexer.TokEOF:
		return "end of input"
	default:
		return fmt.Sprintf("token(%d)", t)
	}
}

// --- Program ---

func (p *parser) parseProgram() *ast.CommandList {
	startSpan := p.current().Span

	var cmds []*ast.Command
	for p.peek() != lexer.TokEOF {
		cmd := p.parseCommand()
		if cmd == nil {
			return nil
		}
		cmds = append(cmds, cmd)
	}

	return &ast.CommandList{
		Span:     p.spanFromTo(startSpan, p.current().Span),
		Commands: cmds,
	}
}

// --- Commands ---

func (p *parser) parseCommand() *ast.Command {
	start := p.current()

	var stmt ast.Stmt
	switch p.peek() {
	case lexer.TokSemicolon:
		p.advance()
		return &ast.Command{Span: start.Span}
	case lexer.TokLBrace:
		list := p.parseBlock()
		if list == nil {
			return nil
		}
		stmt = list
	case lexer.TokIf:
		s := p.parseIf()
		if s == nil {
			return nil
		}
		stmt = s
	case lexer.TokWhile:
		s := p.parseWhile()
		if s == nil {
			return nil
		}
		stmt = s
	case lexer.TokFor:
		s := p.parseFor()
		if s == nil {
			return nil
		}
		stmt = s
	default:
		s := p.parseSimple()
		if s == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokSemicolon); !ok {
			return nil
		}
		stmt = s
	}

	return &ast.Command{
		Span: p.spanFromTo(start.Span, p.prevSpan()),
		Stmt: stmt,
	}
}

func (p *parser) parseBlock() *ast.CommandList {
	start, ok := p.expect(lexer.TokLBrace)
	if !ok {
		return nil
	}
	cmds := []*ast.Command{}
	for p.peek() != lexer.TokRBrace && p.peek() != lexer.TokEOF {
		cmd := p.parseCommand()
		if cmd == nil {
			return nil
		}
		cmds = append(cmds, cmd)
	}
	end, ok := p.expect(lexer.TokRBrace)
	if !ok {
		return nil
	}
	return &ast.CommandList{
		Span:     p.spanFromTo(start.Span, end.Span),
		Commands: cmds,
	}
}

// parseParenCond parses "(" expr ")".
func (p *parser) parseParenCond() ast.Expr {
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}
	return cond
}

func (p *parser) parseIf() *ast.IfStmt {
	start := p.advance() // consume 'if'
	cond := p.parseParenCond()
	if cond == nil {
		return nil
	}
	then := p.parseCommand()
	if then == nil {
		return nil
	}

	var elseCmd *ast.Command
	if p.peek() == lexer.TokElse {
		p.advance() // consume 'else'
		elseCmd = p.parseCommand()
		if elseCmd == nil {
			return nil
		}
	}

	return &ast.IfStmt{
		Span: p.spanFromTo(start.Span, p.prevSpan()),
		Cond: cond,
		Then: then,
		Else: elseCmd,
	}
}

func (p *parser) parseWhile() *ast.WhileStmt {
	start := p.advance() // consume 'while'
	cond := p.parseParenCond()
	if cond == nil {
		return nil
	}
	body := p.parseCommand()
	if body == nil {
		return nil
	}
	return &ast.WhileStmt{
		Span: p.spanFromTo(start.Span, body.Span),
		Cond: cond,
		Body: body,
	}
}

func (p *parser) parseFor() *ast.ForStmt {
	start := p.advance() // consume 'for'
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}

	var init, after ast.Stmt
	var cond ast.Expr

	if p.peek() != lexer.TokSemicolon {
		if init = p.parseSimple(); init == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokSemicolon); !ok {
		return nil
	}
	if p.peek() != lexer.TokSemicolon {
		if cond = p.parseExpr(); cond == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokSemicolon); !ok {
		return nil
	}
	if p.peek() != lexer.TokRParen {
		if after = p.parseSimple(); after == nil {
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}

	body := p.parseCommand()
	if body == nil {
		return nil
	}

	return &ast.ForStmt{
		Span:  p.spanFromTo(start.Span, body.Span),
		Init:  init,
		Cond:  cond,
		After: after,
		Body:  body,
	}
}

// --- Simple statements ---

func (p *parser) parseSimple() ast.Stmt {
	switch p.peek() {
	case lexer.TokInt, lexer.TokString:
		s := p.parseDecl()
		if s == nil {
			return nil
		}
		return s
	case lexer.TokWrite:
		s := p.parseWrite()
		if s == nil {
			return nil
		}
		return s
	case lexer.TokExit:
		s := p.parseExit()
		if s == nil {
			return nil
		}
		return s
	case lexer.TokIdent:
		if p.peekAt(1) == lexer.TokEquals {
			s := p.parseAssign()
			if s == nil {
				return nil
			}
			return s
		}
	}

	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	return &ast.ExprStmt{Span: expr.NodeSpan(), Expr: expr}
}

func (p *parser) parseDecl() *ast.DeclStmt {
	typeTok := p.advance() // consume 'int' or 'string'
	typ := ast.TypeInt
	if typeTok.Type == lexer.TokString {
		typ = ast.TypeString
	}

	nameTok, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	name := &ast.Ident{Span: nameTok.Span, Name: nameTok.Value}

	decl := &ast.DeclStmt{
		Span: p.spanFromTo(typeTok.Span, nameTok.Span),
		Type: typ,
		Name: name,
	}
	if p.peek() == lexer.TokEquals {
		p.advance() // consume '='
		init := p.parseExpr()
		if init == nil {
			return nil
		}
		decl.Init = init
		decl.Span = p.spanFromTo(typeTok.Span, init.NodeSpan())
	}
	return decl
}

func (p *parser) parseAssign() *ast.AssignStmt {
	nameTok := p.advance()
	p.advance() // consume '='
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	return &ast.AssignStmt{
		Span:   p.spanFromTo(nameTok.Span, value.NodeSpan()),
		Target: &ast.Ident{Span: nameTok.Span, Name: nameTok.Value},
		Value:  value,
	}
}

func (p *parser) parseWrite() *ast.WriteStmt {
	start := p.advance() // consume 'write'
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	end, ok := p.expect(lexer.TokRParen)
	if !ok {
		return nil
	}
	return &ast.WriteStmt{
		Span:  p.spanFromTo(start.Span, end.Span),
		Value: value,
	}
}

func (p *parser) parseExit() *ast.ExitStmt {
	start := p.advance() // consume 'exit'
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	end, ok := p.expect(lexer.TokRParen)
	if !ok {
		return nil
	}
	return &ast.ExitStmt{Span: p.spanFromTo(start.Span, end.Span)}
}

// --- Expressions ---

func (p *parser) parseExpr() ast.Expr {
	return p.parseOr()
}

// binaryLevel parses a left-associative chain of the operators in ops, with
// operands produced by next.
func (p *parser) binaryLevel(next func() ast.Expr, ops map[lexer.TokenType]ast.BinaryOp) ast.Expr {
	left := next()
	if left == nil {
		return nil
	}

	for {
		op, ok := ops[p.peek()]
		if !ok {
			return left
		}
		p.advance()
		right := next()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

var (
	orOps       = map[lexer.TokenType]ast.BinaryOp{lexer.TokOrOr: ast.OpOr}
	andOps      = map[lexer.TokenType]ast.BinaryOp{lexer.TokAndAnd: ast.OpAnd}
	equalityOps = map[lexer.TokenType]ast.BinaryOp{lexer.TokEqEq: ast.OpEqEq, lexer.TokBangEq: ast.OpNeq}
	relOps      = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokLt: ast.OpLt, lexer.TokGt: ast.OpGt,
		lexer.TokLtEq: ast.OpLtEq, lexer.TokGtEq: ast.OpGtEq,
	}
	additiveOps = map[lexer.TokenType]ast.BinaryOp{lexer.TokPlus: ast.OpAdd, lexer.TokMinus: ast.OpSub}
	termOps     = map[lexer.TokenType]ast.BinaryOp{lexer.TokStar: ast.OpMul, lexer.TokSlash: ast.OpDiv}
)

func (p *parser) parseOr() ast.Expr       { return p.binaryLevel(p.parseAnd, orOps) }
func (p *parser) parseAnd() ast.Expr      { return p.binaryLevel(p.parseEquality, andOps) }
func (p *parser) parseEquality() ast.Expr { return p.binaryLevel(p.parseRelational, equalityOps) }
func (p *parser) parseRelational() ast.Expr { return p.binaryLevel(p.parseAdditive, relOps) }
func (p *parser) parseAdditive() ast.Expr   { return p.binaryLevel(p.parseTerm, additiveOps) }
func (p *parser) parseTerm() ast.Expr       { return p.binaryLevel(p.parseUnary, termOps) }

func (p *parser) parseUnary() ast.Expr {
	var op ast.UnaryOp
	switch p.peek() {
	case lexer.TokMinus:
		op = ast.OpNeg
	case lexer.TokBang:
		op = ast.OpNot
	default:
		return p.parsePrimary()
	}
	start := p.advance()
	operand := p.parseUnary()
	if operand == nil {
		return nil
	}
	return &ast.UnaryExpr{
		Span:    p.spanFromTo(start.Span, operand.NodeSpan()),
		Op:      op,
		Operand: operand,
	}
}

func (p *parser) parsePrimary() ast.Expr {
	switch p.peek() {
	case lexer.TokLParen:
		// Grouped expression
		p.advance()
		expr := p.parseExpr()
		if expr == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return expr

	case lexer.TokIntLit:
		tok := p.advance()
		val, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.addError(fmt.Sprintf("integer literal %s out of range", tok.Value), &tok.Span)
			return nil
		}
		return ast.IntConst(val, tok.Span)

	case lexer.TokStringLit:
		tok := p.advance()
		return ast.StrConst(tok.Value, tok.Span)

	case lexer.TokIdent:
		tok := p.advance()
		return &ast.Ident{Span: tok.Span, Name: tok.Value}

	case lexer.TokReadInt, lexer.TokReadWord, lexer.TokReadLine:
		return p.parseRead()

	default:
		tok := p.current()
		p.addError(fmt.Sprintf("unexpected %s", describe(tok)), &tok.Span)
		return nil
	}
}

func (p *parser) parseRead() ast.Expr {
	start := p.advance()
	kind := ast.ReadInt
	switch start.Type {
	case lexer.TokReadWord:
		kind = ast.ReadWord
	case lexer.TokReadLine:
		kind = ast.ReadLine
	}
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	end, ok := p.expect(lexer.TokRParen)
	if !ok {
		return nil
	}
	return &ast.ReadExpr{
		Span: p.spanFromTo(start.Span, end.Span),
		Read: kind,
	}
}
