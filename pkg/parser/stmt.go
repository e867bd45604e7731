package parser

import (
	"fmt"

	"github.com/raymyers/ralph-gir/pkg/cabs"
	"github.com/raymyers/ralph-gir/pkg/lexer"
)

func (p *Parser) parseBlock() cabs.Block {
	block := cabs.Block{Pos: p.pos(), Items: []cabs.Stmt{}}

	p.nextToken() // consume '{'

	for !p.curTokenIs(lexer.TokenRBrace) && !p.curTokenIs(lexer.TokenEOF) {
		before := p.curToken
		stmt := p.parseStatement()
		if stmt != nil {
			block.Items = append(block.Items, stmt)
		}
		if p.curToken == before {
			p.nextToken()
		}
	}

	p.expect(lexer.TokenRBrace)
	return block
}

func (p *Parser) parseStatement() cabs.Stmt {
	pos := p.pos()
	switch p.curToken.Type {
	case lexer.TokenLBrace:
		return p.parseBlock()
	case lexer.TokenSemicolon:
		p.nextToken()
		return cabs.Empty{Pos: pos}
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenWhile:
		return p.parseWhile()
	case lexer.TokenDo:
		return p.parseDoWhile()
	case lexer.TokenFor:
		return p.parseFor()
	case lexer.TokenSwitch:
		return p.parseSwitch()
	case lexer.TokenCase:
		p.nextToken()
		expr := p.parseConditional()
		p.expect(lexer.TokenColon)
		return cabs.Case{Pos: pos, Expr: expr, Stmt: p.parseLabeledBody()}
	case lexer.TokenDefault:
		p.nextToken()
		p.expect(lexer.TokenColon)
		return cabs.Default{Pos: pos, Stmt: p.parseLabeledBody()}
	case lexer.TokenBreak:
		p.nextToken()
		p.expect(lexer.TokenSemicolon)
		return cabs.Break{Pos: pos}
	case lexer.TokenContinue:
		p.nextToken()
		p.expect(lexer.TokenSemicolon)
		return cabs.Continue{Pos: pos}
	case lexer.TokenGoto:
		p.nextToken()
		label := p.curToken.Literal
		if !p.expect(lexer.TokenIdent) {
			p.synchronize()
			return nil
		}
		p.expect(lexer.TokenSemicolon)
		return cabs.Goto{Pos: pos, Label: label}
	case lexer.TokenReturn:
		return p.parseReturnStatement()
	case lexer.TokenTry:
		return p.parseTry()
	case lexer.TokenIdent:
		if p.peekTokenIs(lexer.TokenColon) && !p.typedefs[p.curToken.Literal] {
			name := p.curToken.Literal
			p.nextToken()
			p.nextToken()
			return cabs.Label{Pos: pos, Name: name, Stmt: p.parseLabeledBody()}
		}
	}

	if p.isTypeStart(p.curToken) {
		return p.parseDeclStmt()
	}

	expr := p.parseExpression()
	if expr == nil {
		p.synchronize()
		return nil
	}
	if !p.expect(lexer.TokenSemicolon) {
		p.synchronize()
	}
	return cabs.Computation{Pos: pos, Expr: expr}
}

// parseLabeledBody parses the statement following a label, or returns nil
// when the label closes its block.
func (p *Parser) parseLabeledBody() cabs.Stmt {
	if p.curTokenIs(lexer.TokenRBrace) || p.curTokenIs(lexer.TokenEOF) {
		return nil
	}
	return p.parseStatement()
}

func (p *Parser) parseParenExpr() cabs.Expr {
	if !p.expect(lexer.TokenLParen) {
		return nil
	}
	expr := p.parseExpression()
	p.expect(lexer.TokenRParen)
	return expr
}

// parseSubStatement parses a statement that must be present, such as a
// loop body.
func (p *Parser) parseSubStatement() cabs.Stmt {
	s := p.parseStatement()
	if s == nil {
		return cabs.Empty{Pos: p.pos()}
	}
	return s
}

func (p *Parser) parseIf() cabs.Stmt {
	pos := p.pos()
	p.nextToken() // consume 'if'
	cond := p.parseParenExpr()
	then := p.parseSubStatement()
	var els cabs.Stmt
	if p.curTokenIs(lexer.TokenElse) {
		p.nextToken()
		els = p.parseSubStatement()
	}
	return cabs.If{Pos: pos, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhile() cabs.Stmt {
	pos := p.pos()
	p.nextToken() // consume 'while'
	cond := p.parseParenExpr()
	return cabs.While{Pos: pos, Cond: cond, Body: p.parseSubStatement()}
}

func (p *Parser) parseDoWhile() cabs.Stmt {
	pos := p.pos()
	p.nextToken() // consume 'do'
	body := p.parseSubStatement()
	if !p.expect(lexer.TokenWhile) {
		p.synchronize()
		return nil
	}
	cond := p.parseParenExpr()
	p.expect(lexer.TokenSemicolon)
	return cabs.DoWhile{Pos: pos, Body: body, Cond: cond}
}

func (p *Parser) parseFor() cabs.Stmt {
	pos := p.pos()
	p.nextToken() // consume 'for'
	if !p.expect(lexer.TokenLParen) {
		p.synchronize()
		return nil
	}
	stmt := cabs.For{Pos: pos}

	switch {
	case p.curTokenIs(lexer.TokenSemicolon):
		p.nextToken()
	case p.isTypeStart(p.curToken):
		stmt.Init = p.parseDeclStmt()
	default:
		initPos := p.pos()
		stmt.Init = cabs.Computation{Pos: initPos, Expr: p.parseExpression()}
		p.expect(lexer.TokenSemicolon)
	}

	if p.curTokenIs(lexer.TokenSemicolon) {
		// an omitted controlling expression is replaced by a nonzero constant
		stmt.Cond = cabs.Constant{Text: "1"}
	} else {
		stmt.Cond = p.parseExpression()
	}
	p.expect(lexer.TokenSemicolon)

	if !p.curTokenIs(lexer.TokenRParen) {
		stmt.Step = p.parseExpression()
	}
	p.expect(lexer.TokenRParen)

	stmt.Body = p.parseSubStatement()
	return stmt
}

func (p *Parser) parseSwitch() cabs.Stmt {
	pos := p.pos()
	p.nextToken() // consume 'switch'
	expr := p.parseParenExpr()
	return cabs.Switch{Pos: pos, Expr: expr, Body: p.parseSubStatement()}
}

func (p *Parser) parseReturnStatement() cabs.Stmt {
	pos := p.pos()
	p.nextToken() // consume 'return'

	var expr cabs.Expr
	if !p.curTokenIs(lexer.TokenSemicolon) {
		expr = p.parseExpression()
	}

	if !p.expect(lexer.TokenSemicolon) {
		p.synchronize()
		return nil
	}

	return cabs.Return{Pos: pos, Expr: expr}
}

func (p *Parser) parseTry() cabs.Stmt {
	pos := p.pos()
	p.nextToken() // consume '__try'
	if !p.curTokenIs(lexer.TokenLBrace) {
		p.addError(fmt.Sprintf("expected '{' after __try, got %s", p.curToken.Type))
		p.synchronize()
		return nil
	}
	body := p.parseBlock()
	stmt := cabs.Try{Pos: pos, Body: &body}

	switch p.curToken.Type {
	case lexer.TokenExcept:
		p.nextToken()
		stmt.Filter = p.parseParenExpr()
		if !p.curTokenIs(lexer.TokenLBrace) {
			p.addError(fmt.Sprintf("expected '{' after __except, got %s", p.curToken.Type))
			return nil
		}
		handler := p.parseBlock()
		stmt.Except = &handler
	case lexer.TokenFinally:
		p.nextToken()
		if !p.curTokenIs(lexer.TokenLBrace) {
			p.addError(fmt.Sprintf("expected '{' after __finally, got %s", p.curToken.Type))
			return nil
		}
		final := p.parseBlock()
		stmt.Finally = &final
	default:
		p.addError(fmt.Sprintf("expected __except or __finally, got %s", p.curToken.Type))
		return nil
	}
	return stmt
}
