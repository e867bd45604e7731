// Package parser implements a recursive descent parser for C
package parser

import (
	"fmt"

	"github.com/raymyers/ralph-gir/pkg/cabs"
	"github.com/raymyers/ralph-gir/pkg/lexer"
)

// Parser parses C source code into a Cabs AST
type Parser struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	errors    []string
	errPos    cabs.Pos        // position of the last error
	typedefs  map[string]bool // typedef names in scope
}

// New creates a new Parser for the given lexer
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:        l,
		typedefs: make(map[string]bool),
	}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// ParseProgram parses src as a translation unit.
func ParseProgram(src string) (*cabs.Program, []string) {
	p := New(lexer.New(src))
	prog := p.ParseProgram()
	return prog, p.Errors()
}

// ParseStatements parses src as a bare list of statements, the form used
// for function-body fragments.
func ParseStatements(src string) ([]cabs.Stmt, []string) {
	p := New(lexer.New(src))
	stmts := p.ParseStatements()
	return stmts, p.Errors()
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// Errors returns the list of parsing errors
func (p *Parser) Errors() []string {
	return p.errors
}

// addError records msg at the current token. Only the first error at a
// given token is kept; later ones are consequences of it.
func (p *Parser) addError(msg string) {
	pos := p.pos()
	if len(p.errors) > 0 && pos == p.errPos {
		return
	}
	p.errPos = pos
	p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: %s",
		p.curToken.Line, p.curToken.Column, msg))
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf("expected %s, got %s", t, p.curToken.Type))
	return false
}

func (p *Parser) pos() cabs.Pos {
	return cabs.Pos{Line: p.curToken.Line, Column: p.curToken.Column}
}

// ParseProgram parses definitions until EOF. Declarations from system
// headers only contribute typedef names: they are left out of the program
// and constructs the parser does not understand in them are skipped
// silently.
func (p *Parser) ParseProgram() *cabs.Program {
	prog := &cabs.Program{}
	for !p.curTokenIs(lexer.TokenEOF) {
		before := p.curToken
		nerr := len(p.errors)
		defs := p.parseExternalDecl()
		if before.System {
			if len(p.errors) > nerr {
				p.errors = p.errors[:nerr]
				p.skipSystemDecl()
			}
		} else {
			prog.Definitions = append(prog.Definitions, defs...)
		}
		if p.curToken == before {
			p.nextToken()
		}
	}
	return prog
}

// skipSystemDecl skips to just past the next ';' outside brackets, without
// leaving the system header.
func (p *Parser) skipSystemDecl() {
	depth := 0
	for p.curToken.System && !p.curTokenIs(lexer.TokenEOF) {
		switch p.curToken.Type {
		case lexer.TokenLParen, lexer.TokenLBrace, lexer.TokenLBracket:
			depth++
		case lexer.TokenRParen, lexer.TokenRBrace, lexer.TokenRBracket:
			if depth > 0 {
				depth--
			}
		case lexer.TokenSemicolon:
			if depth == 0 {
				p.nextToken()
				return
			}
		}
		p.nextToken()
	}
}

// ParseDefinition parses a single top-level definition. Declarations that
// introduce no definition (typedefs, struct tags) yield nil.
func (p *Parser) ParseDefinition() cabs.Definition {
	defs := p.parseExternalDecl()
	if len(defs) == 0 {
		return nil
	}
	return defs[0]
}

// ParseStatements parses statements until EOF.
func (p *Parser) ParseStatements() []cabs.Stmt {
	var stmts []cabs.Stmt
	for !p.curTokenIs(lexer.TokenEOF) {
		before := p.curToken
		if s := p.parseStatement(); s != nil {
			stmts = append(stmts, s)
		}
		if p.curToken == before {
			p.nextToken()
		}
	}
	return stmts
}

// synchronize skips to just past the next ';' or up to the next '}' after
// an error.
func (p *Parser) synchronize() {
	for !p.curTokenIs(lexer.TokenEOF) && !p.curTokenIs(lexer.TokenRBrace) {
		if p.curTokenIs(lexer.TokenSemicolon) {
			p.nextToken()
			return
		}
		p.nextToken()
	}
}
