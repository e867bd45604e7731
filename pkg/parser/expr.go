package parser

import (
	"fmt"

	"github.com/raymyers/ralph-gir/pkg/cabs"
	"github.com/raymyers/ralph-gir/pkg/lexer"
)

// binaryPrec maps binary operator tokens to precedence (higher binds
// tighter) and their cabs operator.
var binaryPrec = map[lexer.TokenType]struct {
	prec int
	op   cabs.BinaryOp
}{
	lexer.TokenOr:        {1, cabs.OpOr},
	lexer.TokenAnd:       {2, cabs.OpAnd},
	lexer.TokenPipe:      {3, cabs.OpBitOr},
	lexer.TokenCaret:     {4, cabs.OpBitXor},
	lexer.TokenAmpersand: {5, cabs.OpBitAnd},
	lexer.TokenEq:        {6, cabs.OpEq},
	lexer.TokenNe:        {6, cabs.OpNe},
	lexer.TokenLt:        {7, cabs.OpLt},
	lexer.TokenLe:        {7, cabs.OpLe},
	lexer.TokenGt:        {7, cabs.OpGt},
	lexer.TokenGe:        {7, cabs.OpGe},
	lexer.TokenShl:       {8, cabs.OpShl},
	lexer.TokenShr:       {8, cabs.OpShr},
	lexer.TokenPlus:      {9, cabs.OpAdd},
	lexer.TokenMinus:     {9, cabs.OpSub},
	lexer.TokenStar:      {10, cabs.OpMul},
	lexer.TokenSlash:     {10, cabs.OpDiv},
	lexer.TokenPercent:   {10, cabs.OpMod},
}

var assignOps = map[lexer.TokenType]cabs.BinaryOp{
	lexer.TokenAssign:        cabs.OpAssign,
	lexer.TokenPlusAssign:    cabs.OpAddAssign,
	lexer.TokenMinusAssign:   cabs.OpSubAssign,
	lexer.TokenStarAssign:    cabs.OpMulAssign,
	lexer.TokenSlashAssign:   cabs.OpDivAssign,
	lexer.TokenPercentAssign: cabs.OpModAssign,
	lexer.TokenAndAssign:     cabs.OpAndAssign,
	lexer.TokenOrAssign:      cabs.OpOrAssign,
	lexer.TokenXorAssign:     cabs.OpXorAssign,
	lexer.TokenShlAssign:     cabs.OpShlAssign,
	lexer.TokenShrAssign:     cabs.OpShrAssign,
}

var unaryOps = map[lexer.TokenType]cabs.UnaryOp{
	lexer.TokenMinus:     cabs.OpNeg,
	lexer.TokenNot:       cabs.OpNot,
	lexer.TokenTilde:     cabs.OpBitNot,
	lexer.TokenPlus:      cabs.OpPlus,
	lexer.TokenAmpersand: cabs.OpAddrOf,
	lexer.TokenStar:      cabs.OpDeref,
	lexer.TokenIncrement: cabs.OpPreInc,
	lexer.TokenDecrement: cabs.OpPreDec,
}

// parseExpression parses a full expression including the comma operator.
func (p *Parser) parseExpression() cabs.Expr {
	left := p.parseAssignment()
	for left != nil && p.curTokenIs(lexer.TokenComma) {
		p.nextToken()
		right := p.parseAssignment()
		if right == nil {
			return nil
		}
		left = cabs.Binary{Op: cabs.OpComma, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAssignment() cabs.Expr {
	left := p.parseConditional()
	if left == nil {
		return nil
	}
	if op, ok := assignOps[p.curToken.Type]; ok {
		p.nextToken()
		right := p.parseAssignment()
		if right == nil {
			return nil
		}
		return cabs.Binary{Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseConditional() cabs.Expr {
	cond := p.parseBinary(1)
	if cond == nil || !p.curTokenIs(lexer.TokenQuestion) {
		return cond
	}
	p.nextToken()
	then := p.parseExpression()
	if !p.expect(lexer.TokenColon) {
		return nil
	}
	els := p.parseConditional()
	if then == nil || els == nil {
		return nil
	}
	return cabs.Conditional{Cond: cond, Then: then, Else: els}
}

// parseBinary implements precedence climbing over the left-associative
// binary operators.
func (p *Parser) parseBinary(minPrec int) cabs.Expr {
	left := p.parseCast()
	for left != nil {
		info, ok := binaryPrec[p.curToken.Type]
		if !ok || info.prec < minPrec {
			break
		}
		p.nextToken()
		right := p.parseBinary(info.prec + 1)
		if right == nil {
			return nil
		}
		left = cabs.Binary{Op: info.op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseCast() cabs.Expr {
	if p.curTokenIs(lexer.TokenLParen) && p.isTypeStart(p.peekToken) {
		p.nextToken() // consume '('
		typeName := p.parseTypeName()
		if !p.expect(lexer.TokenRParen) {
			return nil
		}
		if p.curTokenIs(lexer.TokenLBrace) {
			lit := cabs.CompoundLiteral{TypeName: typeName, Init: p.parseInitList()}
			return p.parsePostfixOps(lit)
		}
		operand := p.parseCast()
		if operand == nil {
			return nil
		}
		return cabs.Cast{TypeName: typeName, Expr: operand}
	}
	return p.parseUnary()
}

func (p *Parser) parseUnary() cabs.Expr {
	if op, ok := unaryOps[p.curToken.Type]; ok {
		p.nextToken()
		var operand cabs.Expr
		if op == cabs.OpPreInc || op == cabs.OpPreDec {
			operand = p.parseUnary()
		} else {
			operand = p.parseCast()
		}
		if operand == nil {
			return nil
		}
		return cabs.Unary{Op: op, Expr: operand}
	}
	if p.curTokenIs(lexer.TokenSizeof) {
		p.nextToken()
		if p.curTokenIs(lexer.TokenLParen) && p.isTypeStart(p.peekToken) {
			p.nextToken()
			typeName := p.parseTypeName()
			if !p.expect(lexer.TokenRParen) {
				return nil
			}
			return cabs.SizeofType{TypeName: typeName}
		}
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return cabs.SizeofExpr{Expr: operand}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() cabs.Expr {
	return p.parsePostfixOps(p.parsePrimary())
}

// parsePostfixOps applies subscripts, calls, member accesses and postfix
// increments to expr.
func (p *Parser) parsePostfixOps(expr cabs.Expr) cabs.Expr {
	for expr != nil {
		switch p.curToken.Type {
		case lexer.TokenLBracket:
			p.nextToken()
			index := p.parseExpression()
			if !p.expect(lexer.TokenRBracket) || index == nil {
				return nil
			}
			expr = cabs.Index{Array: expr, Index: index}
		case lexer.TokenLParen:
			p.nextToken()
			var args []cabs.Expr
			for !p.curTokenIs(lexer.TokenRParen) && !p.curTokenIs(lexer.TokenEOF) {
				arg := p.parseAssignment()
				if arg == nil {
					return nil
				}
				args = append(args, arg)
				if !p.curTokenIs(lexer.TokenComma) {
					break
				}
				p.nextToken()
			}
			if !p.expect(lexer.TokenRParen) {
				return nil
			}
			expr = cabs.Call{Func: expr, Args: args}
		case lexer.TokenDot, lexer.TokenArrow:
			arrow := p.curTokenIs(lexer.TokenArrow)
			p.nextToken()
			name := p.curToken.Literal
			if !p.expect(lexer.TokenIdent) {
				return nil
			}
			expr = cabs.Member{Expr: expr, Name: name, IsArrow: arrow}
		case lexer.TokenIncrement:
			p.nextToken()
			expr = cabs.Unary{Op: cabs.OpPostInc, Expr: expr}
		case lexer.TokenDecrement:
			p.nextToken()
			expr = cabs.Unary{Op: cabs.OpPostDec, Expr: expr}
		default:
			return expr
		}
	}
	return expr
}

func (p *Parser) parsePrimary() cabs.Expr {
	tok := p.curToken
	switch tok.Type {
	case lexer.TokenIdent:
		if p.peekTokenIs(lexer.TokenLParen) {
			switch tok.Literal {
			case "offsetof", "__builtin_offsetof":
				return p.parseOffsetof()
			case "_Generic":
				return p.parseGeneric()
			}
		}
		p.nextToken()
		return cabs.Variable{Name: tok.Literal}
	case lexer.TokenInt, lexer.TokenFloat_:
		p.nextToken()
		return cabs.Constant{Text: tok.Literal}
	case lexer.TokenCharLit:
		p.nextToken()
		return cabs.CharLiteral{Value: tok.Literal}
	case lexer.TokenString:
		// adjacent string literals concatenate
		value := tok.Literal
		p.nextToken()
		for p.curTokenIs(lexer.TokenString) {
			value += p.curToken.Literal
			p.nextToken()
		}
		return cabs.StringLiteral{Value: value}
	case lexer.TokenLParen:
		p.nextToken()
		inner := p.parseExpression()
		if !p.expect(lexer.TokenRParen) || inner == nil {
			return nil
		}
		return cabs.Paren{Expr: inner}
	}
	p.addError(fmt.Sprintf("expected expression, got %s", tok.Type))
	return nil
}

// parseOffsetof parses offsetof(type, member-designator).
func (p *Parser) parseOffsetof() cabs.Expr {
	p.nextToken() // offsetof
	p.nextToken() // (
	typeName := p.parseTypeName()
	if typeName == "" || !p.expect(lexer.TokenComma) {
		return nil
	}
	member := p.curToken.Literal
	if !p.expect(lexer.TokenIdent) {
		return nil
	}
	for p.curTokenIs(lexer.TokenDot) || p.curTokenIs(lexer.TokenLBracket) {
		if p.curTokenIs(lexer.TokenDot) {
			p.nextToken()
			member += "." + p.curToken.Literal
			if !p.expect(lexer.TokenIdent) {
				return nil
			}
			continue
		}
		p.nextToken()
		index := p.parseExpression()
		if !p.expect(lexer.TokenRBracket) || index == nil {
			return nil
		}
		member += "[" + cabs.ExprString(index) + "]"
	}
	if !p.expect(lexer.TokenRParen) {
		return nil
	}
	return cabs.Offsetof{TypeName: typeName, Member: member}
}

// parseGeneric parses _Generic(control, type: expr, ..., default: expr).
func (p *Parser) parseGeneric() cabs.Expr {
	p.nextToken() // _Generic
	p.nextToken() // (
	control := p.parseAssignment()
	if control == nil {
		return nil
	}
	g := cabs.Generic{Control: control}
	for p.curTokenIs(lexer.TokenComma) {
		p.nextToken()
		typeName := "default"
		if p.curTokenIs(lexer.TokenDefault) {
			p.nextToken()
		} else if typeName = p.parseTypeName(); typeName == "" {
			return nil
		}
		if !p.expect(lexer.TokenColon) {
			return nil
		}
		expr := p.parseAssignment()
		if expr == nil {
			return nil
		}
		g.Types = append(g.Types, typeName)
		g.Exprs = append(g.Exprs, expr)
	}
	if !p.expect(lexer.TokenRParen) {
		return nil
	}
	if len(g.Types) == 0 {
		p.addError("_Generic without associations")
		return nil
	}
	return g
}
