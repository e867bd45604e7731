package parser

import (
	"fmt"
	"strings"

	"github.com/raymyers/ralph-gir/pkg/cabs"
	"github.com/raymyers/ralph-gir/pkg/lexer"
)

// specifiers is the parsed declaration-specifier prefix of a declaration.
type specifiers struct {
	attrs   []string // storage class, qualifiers, inline
	words   []string // type words
	typedef bool
}

func (s specifiers) typeSpec() string {
	return strings.Join(s.words, " ")
}

// gnuExtensions are identifiers introducing compiler extensions that carry
// no meaning for lowering and are skipped with their parenthesized payload.
var gnuExtensions = map[string]bool{
	"__attribute__": true,
	"__attribute":   true,
	"__declspec":    true,
	"__extension__": true,
	"__asm__":       true,
	"__asm":         true,
	"_Noreturn":     true,
	"_Alignas":      true,
	"__thread":      true,
	"_Thread_local": true,
}

// builtinTypes are compiler-provided type names that appear in system
// headers without a typedef.
var builtinTypes = map[string]bool{
	"__builtin_va_list": true,
	"__int128":          true,
	"__int128_t":        true,
	"__uint128_t":       true,
	"_Float16":          true,
	"_Float32":          true,
	"_Float32x":         true,
	"_Float64":          true,
	"_Float64x":         true,
	"_Float128":         true,
	"_Complex":          true,
}

// isTypeStart reports whether tok can begin a declaration.
func (p *Parser) isTypeStart(tok lexer.Token) bool {
	if tok.Type.IsTypeKeyword() || tok.Type == lexer.TokenTypedef {
		return true
	}
	if tok.Type == lexer.TokenIdent {
		return p.typedefs[tok.Literal] || gnuExtensions[tok.Literal] || builtinTypes[tok.Literal]
	}
	return false
}

func (p *Parser) skipExtensions() {
	for p.curTokenIs(lexer.TokenIdent) && gnuExtensions[p.curToken.Literal] {
		p.nextToken()
		if p.curTokenIs(lexer.TokenLParen) {
			p.skipBalanced(lexer.TokenLParen, lexer.TokenRParen)
		}
	}
}

// skipBalanced consumes a bracketed group starting at the current open
// token.
func (p *Parser) skipBalanced(open, close lexer.TokenType) {
	depth := 0
	for !p.curTokenIs(lexer.TokenEOF) {
		switch p.curToken.Type {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				p.nextToken()
				return
			}
		}
		p.nextToken()
	}
	p.addError(fmt.Sprintf("unterminated %s", open))
}

func (p *Parser) parseSpecifiers() (specifiers, bool) {
	var spec specifiers
loop:
	for {
		switch p.curToken.Type {
		case lexer.TokenTypedef:
			spec.typedef = true
			p.nextToken()
		case lexer.TokenStatic, lexer.TokenExtern, lexer.TokenAuto, lexer.TokenRegister,
			lexer.TokenConst, lexer.TokenVolatile, lexer.TokenRestrict, lexer.TokenInline:
			spec.attrs = append(spec.attrs, p.curToken.Literal)
			p.nextToken()
		case lexer.TokenStruct, lexer.TokenUnion, lexer.TokenEnum:
			word := p.curToken.Literal
			p.nextToken()
			p.skipExtensions()
			if p.curTokenIs(lexer.TokenIdent) {
				word += " " + p.curToken.Literal
				p.nextToken()
			}
			if p.curTokenIs(lexer.TokenLBrace) {
				// member layout belongs to the type resolver
				p.skipBalanced(lexer.TokenLBrace, lexer.TokenRBrace)
			}
			spec.words = append(spec.words, word)
		case lexer.TokenInt_, lexer.TokenVoid, lexer.TokenChar, lexer.TokenShort, lexer.TokenLong,
			lexer.TokenFloat, lexer.TokenDouble, lexer.TokenSigned, lexer.TokenUnsigned, lexer.TokenBool:
			spec.words = append(spec.words, p.curToken.Literal)
			p.nextToken()
		case lexer.TokenIdent:
			if gnuExtensions[p.curToken.Literal] {
				p.skipExtensions()
				continue
			}
			if builtinTypes[p.curToken.Literal] {
				spec.words = append(spec.words, p.curToken.Literal)
				p.nextToken()
				continue
			}
			if len(spec.words) == 0 && p.typedefs[p.curToken.Literal] {
				spec.words = append(spec.words, p.curToken.Literal)
				p.nextToken()
				continue
			}
			break loop
		default:
			break loop
		}
	}
	if len(spec.words) == 0 {
		if len(spec.attrs) == 0 && !spec.typedef {
			p.addError(fmt.Sprintf("expected type specifier, got %s", p.curToken.Type))
			return spec, false
		}
		spec.words = []string{"int"}
	}
	return spec, true
}

// declarator parses pointer stars, an optional name and array dimensions.
// A parenthesized declarator such as (*fp)(int) yields the type
// "base(*)()"; parameter lists of function pointers are not kept.
func (p *Parser) declarator(base string) (name, typeSpec string, dims []cabs.Expr, pos cabs.Pos) {
	typeSpec = base
	for p.curTokenIs(lexer.TokenStar) {
		typeSpec += "*"
		p.nextToken()
		for p.curTokenIs(lexer.TokenConst) || p.curTokenIs(lexer.TokenVolatile) || p.curTokenIs(lexer.TokenRestrict) {
			p.nextToken()
		}
	}
	p.skipExtensions()
	pos = p.pos()
	if p.curTokenIs(lexer.TokenIdent) {
		name = p.curToken.Literal
		p.nextToken()
	} else if p.curTokenIs(lexer.TokenLParen) && (p.peekTokenIs(lexer.TokenStar) || p.peekTokenIs(lexer.TokenLParen)) {
		p.nextToken()
		var inner string
		name, inner, dims, pos = p.declarator("")
		if p.curTokenIs(lexer.TokenLParen) {
			// function returning a pointer: int (*f(int))(void)
			p.skipBalanced(lexer.TokenLParen, lexer.TokenRParen)
		}
		p.expect(lexer.TokenRParen)
		typeSpec += "(" + inner + ")"
		if p.curTokenIs(lexer.TokenLParen) {
			p.skipBalanced(lexer.TokenLParen, lexer.TokenRParen)
			typeSpec += "()"
		}
		typeSpec += p.arraySuffix()
		p.skipExtensions()
		return name, typeSpec, dims, pos
	}
	for p.curTokenIs(lexer.TokenLBracket) {
		p.nextToken()
		if p.curTokenIs(lexer.TokenRBracket) {
			dims = append(dims, nil)
		} else {
			dims = append(dims, p.parseAssignment())
		}
		p.expect(lexer.TokenRBracket)
	}
	p.skipExtensions()
	return name, typeSpec, dims, pos
}

func (p *Parser) parseExternalDecl() []cabs.Definition {
	pos := p.pos()
	spec, ok := p.parseSpecifiers()
	if !ok {
		p.synchronize()
		return nil
	}
	if p.curTokenIs(lexer.TokenSemicolon) {
		p.nextToken()
		return nil
	}
	if spec.typedef {
		p.parseTypedefNames(spec)
		return nil
	}

	name, typeSpec, dims, declPos := p.declarator(spec.typeSpec())
	if name == "" {
		p.addError("expected declarator name")
		p.synchronize()
		return nil
	}

	if p.curTokenIs(lexer.TokenLParen) {
		params, variadic := p.parseParams()
		p.skipExtensions()
		fn := cabs.FunDef{
			Pos:        pos,
			Attrs:      spec.attrs,
			ReturnType: typeSpec,
			Name:       name,
			Params:     params,
			Variadic:   variadic,
		}
		if p.curTokenIs(lexer.TokenLBrace) {
			body := p.parseBlock()
			fn.Body = &body
		} else {
			p.expect(lexer.TokenSemicolon)
		}
		return []cabs.Definition{fn}
	}

	var defs []cabs.Definition
	for {
		d := cabs.Decl{Pos: declPos, Attrs: spec.attrs, TypeSpec: typeSpec, Name: name, ArrayDims: dims}
		if p.curTokenIs(lexer.TokenAssign) {
			p.nextToken()
			d.Initializer = p.parseInitializer()
		}
		defs = append(defs, cabs.VarDef{Decl: d})
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
		name, typeSpec, dims, declPos = p.declarator(spec.typeSpec())
	}
	p.expect(lexer.TokenSemicolon)
	return defs
}

func (p *Parser) parseTypedefNames(spec specifiers) {
	for {
		name, _, _, _ := p.declarator(spec.typeSpec())
		if name != "" {
			p.typedefs[name] = true
		}
		if p.curTokenIs(lexer.TokenLParen) {
			p.skipBalanced(lexer.TokenLParen, lexer.TokenRParen)
		}
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(lexer.TokenSemicolon)
}

func (p *Parser) parseParams() ([]cabs.Param, bool) {
	p.nextToken() // consume '('
	var params []cabs.Param
	variadic := false
	if p.curTokenIs(lexer.TokenVoid) && p.peekTokenIs(lexer.TokenRParen) {
		p.nextToken()
	}
	for !p.curTokenIs(lexer.TokenRParen) && !p.curTokenIs(lexer.TokenEOF) {
		if p.curTokenIs(lexer.TokenEllipsis) {
			variadic = true
			p.nextToken()
			break
		}
		spec, ok := p.parseSpecifiers()
		if !ok {
			p.nextToken()
			continue
		}
		name, typeSpec, dims, _ := p.declarator(spec.typeSpec())
		// array parameters decay to pointers, function parameters to
		// function pointers
		typeSpec += strings.Repeat("*", len(dims))
		if p.curTokenIs(lexer.TokenLParen) {
			p.skipBalanced(lexer.TokenLParen, lexer.TokenRParen)
			typeSpec += "(*)()"
		}
		p.skipExtensions()
		params = append(params, cabs.Param{Attrs: spec.attrs, TypeSpec: typeSpec, Name: name})
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(lexer.TokenRParen)
	return params, variadic
}

// parseDeclStmt parses a local declaration including its terminating ';'.
func (p *Parser) parseDeclStmt() cabs.Stmt {
	pos := p.pos()
	spec, ok := p.parseSpecifiers()
	if !ok {
		p.synchronize()
		return nil
	}
	if spec.typedef {
		p.parseTypedefNames(spec)
		return cabs.Empty{Pos: pos}
	}
	if p.curTokenIs(lexer.TokenSemicolon) {
		p.nextToken()
		return cabs.Empty{Pos: pos}
	}
	stmt := cabs.DeclStmt{Pos: pos}
	for {
		name, typeSpec, dims, declPos := p.declarator(spec.typeSpec())
		if name == "" {
			p.addError("expected declarator name")
			p.synchronize()
			return nil
		}
		d := cabs.Decl{Pos: declPos, Attrs: spec.attrs, TypeSpec: typeSpec, Name: name, ArrayDims: dims}
		if p.curTokenIs(lexer.TokenAssign) {
			p.nextToken()
			d.Initializer = p.parseInitializer()
		}
		stmt.Decls = append(stmt.Decls, d)
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(lexer.TokenSemicolon)
	return stmt
}

func (p *Parser) parseInitializer() cabs.Expr {
	if !p.curTokenIs(lexer.TokenLBrace) {
		return p.parseAssignment()
	}
	return p.parseInitList()
}

// parseInitList parses a brace initializer starting at '{'.
func (p *Parser) parseInitList() cabs.InitList {
	p.nextToken()
	list := cabs.InitList{}
	for !p.curTokenIs(lexer.TokenRBrace) && !p.curTokenIs(lexer.TokenEOF) {
		list.Items = append(list.Items, p.parseInitItem())
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(lexer.TokenRBrace)
	return list
}

// parseInitItem parses one initializer, with an optional .field or [index]
// designator.
func (p *Parser) parseInitItem() cabs.Expr {
	var d cabs.Designated
	switch {
	case p.curTokenIs(lexer.TokenDot):
		p.nextToken()
		d.Field = p.curToken.Literal
		if !p.expect(lexer.TokenIdent) {
			return nil
		}
	case p.curTokenIs(lexer.TokenLBracket):
		p.nextToken()
		d.Index = p.parseConditional()
		if !p.expect(lexer.TokenRBracket) || d.Index == nil {
			return nil
		}
	default:
		return p.parseInitializer()
	}
	if !p.expect(lexer.TokenAssign) {
		return nil
	}
	d.Value = p.parseInitializer()
	return d
}

// parseTypeName parses the type operand of a cast or sizeof.
func (p *Parser) parseTypeName() string {
	spec, ok := p.parseSpecifiers()
	if !ok {
		return ""
	}
	typeSpec := strings.Join(append(append([]string{}, spec.attrs...), spec.typeSpec()), " ")
	for p.curTokenIs(lexer.TokenStar) {
		typeSpec += "*"
		p.nextToken()
		for p.curTokenIs(lexer.TokenConst) || p.curTokenIs(lexer.TokenVolatile) || p.curTokenIs(lexer.TokenRestrict) {
			p.nextToken()
		}
	}
	if p.curTokenIs(lexer.TokenLParen) && p.peekTokenIs(lexer.TokenStar) {
		// abstract function pointer: (*)(int)
		_, inner, _, _ := p.declarator("")
		return typeSpec + inner
	}
	return typeSpec + p.arraySuffix()
}

// arraySuffix parses trailing [n] dimensions into their source form.
func (p *Parser) arraySuffix() string {
	suffix := ""
	for p.curTokenIs(lexer.TokenLBracket) {
		p.nextToken()
		dim := ""
		if !p.curTokenIs(lexer.TokenRBracket) {
			dim = cabs.ExprString(p.parseAssignment())
		}
		p.expect(lexer.TokenRBracket)
		suffix += "[" + dim + "]"
	}
	return suffix
}
