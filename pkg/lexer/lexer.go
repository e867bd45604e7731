package lexer

import (
	"strconv"
	"strings"
	"unicode"
)

// Lexer tokenizes C source code
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // next reading position
	ch      byte // current character
	line    int
	column  int
	system  bool // inside a system header, per the last line marker
}

// New creates a new Lexer for the given input
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.column++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) peekCharAt(offset int) byte {
	if l.readPos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.readPos+offset]
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	l.skipTrivia()
	tok := l.next()
	tok.System = l.system
	return tok
}

func (l *Lexer) next() Token {
	tok := Token{Line: l.line, Column: l.column}

	switch l.ch {
	case 0:
		tok.Type = TokenEOF
		tok.Literal = ""
		return tok
	case '+':
		tok = l.pick(tok, TokenPlus, map[byte]TokenType{'+': TokenIncrement, '=': TokenPlusAssign})
	case '-':
		tok = l.pick(tok, TokenMinus, map[byte]TokenType{'-': TokenDecrement, '=': TokenMinusAssign, '>': TokenArrow})
	case '*':
		tok = l.pick(tok, TokenStar, map[byte]TokenType{'=': TokenStarAssign})
	case '/':
		tok = l.pick(tok, TokenSlash, map[byte]TokenType{'=': TokenSlashAssign})
	case '%':
		tok = l.pick(tok, TokenPercent, map[byte]TokenType{'=': TokenPercentAssign})
	case '=':
		tok = l.pick(tok, TokenAssign, map[byte]TokenType{'=': TokenEq})
	case '!':
		tok = l.pick(tok, TokenNot, map[byte]TokenType{'=': TokenNe})
	case '^':
		tok = l.pick(tok, TokenCaret, map[byte]TokenType{'=': TokenXorAssign})
	case '&':
		tok = l.pick(tok, TokenAmpersand, map[byte]TokenType{'&': TokenAnd, '=': TokenAndAssign})
	case '|':
		tok = l.pick(tok, TokenPipe, map[byte]TokenType{'|': TokenOr, '=': TokenOrAssign})
	case '<':
		if l.peekChar() == '<' && l.peekCharAt(1) == '=' {
			tok = l.literal(tok, TokenShlAssign, 3)
		} else {
			tok = l.pick(tok, TokenLt, map[byte]TokenType{'<': TokenShl, '=': TokenLe})
		}
	case '>':
		if l.peekChar() == '>' && l.peekCharAt(1) == '=' {
			tok = l.literal(tok, TokenShrAssign, 3)
		} else {
			tok = l.pick(tok, TokenGt, map[byte]TokenType{'>': TokenShr, '=': TokenGe})
		}
	case '.':
		if l.peekChar() == '.' && l.peekCharAt(1) == '.' {
			tok = l.literal(tok, TokenEllipsis, 3)
		} else if isDigit(l.peekChar()) {
			tok.Type = TokenFloat_
			tok.Literal = l.readNumber()
			return tok
		} else {
			tok = l.newToken(TokenDot, l.ch)
		}
	case '~':
		tok = l.newToken(TokenTilde, l.ch)
	case '?':
		tok = l.newToken(TokenQuestion, l.ch)
	case ':':
		tok = l.newToken(TokenColon, l.ch)
	case '(':
		tok = l.newToken(TokenLParen, l.ch)
	case ')':
		tok = l.newToken(TokenRParen, l.ch)
	case '{':
		tok = l.newToken(TokenLBrace, l.ch)
	case '}':
		tok = l.newToken(TokenRBrace, l.ch)
	case '[':
		tok = l.newToken(TokenLBracket, l.ch)
	case ']':
		tok = l.newToken(TokenRBracket, l.ch)
	case ';':
		tok = l.newToken(TokenSemicolon, l.ch)
	case ',':
		tok = l.newToken(TokenComma, l.ch)
	case '"':
		tok.Type = TokenString
		tok.Literal = l.readQuoted('"')
		return tok
	case '\'':
		tok.Type = TokenCharLit
		tok.Literal = l.readQuoted('\'')
		return tok
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(tok.Literal)
			return tok
		} else if isDigit(l.ch) {
			tok.Literal = l.readNumber()
			tok.Type = TokenInt
			if isFloatLiteral(tok.Literal) {
				tok.Type = TokenFloat_
			}
			return tok
		} else {
			tok = l.newToken(TokenIllegal, l.ch)
		}
	}

	l.readChar()
	return tok
}

// pick chooses between a single-character token and a two-character token
// selected by the following character.
func (l *Lexer) pick(tok Token, single TokenType, doubles map[byte]TokenType) Token {
	if tt, ok := doubles[l.peekChar()]; ok {
		return l.literal(tok, tt, 2)
	}
	return l.newToken(single, l.ch)
}

// literal consumes n-1 extra characters so that the trailing readChar in
// NextToken lands after an n-character operator.
func (l *Lexer) literal(tok Token, tt TokenType, n int) Token {
	start := l.pos
	for i := 1; i < n; i++ {
		l.readChar()
	}
	tok.Type = tt
	tok.Literal = l.input[start : l.pos+1]
	return tok
}

func (l *Lexer) newToken(tokenType TokenType, ch byte) Token {
	return Token{Type: tokenType, Literal: string(ch), Line: l.line, Column: l.column}
}

// skipTrivia skips whitespace, comments and preprocessor line markers
// such as `# 1 "file.c"` left behind by an external preprocessor.
func (l *Lexer) skipTrivia() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' || l.ch == '\v':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar() // consume /
			l.readChar() // consume *
			for l.ch != 0 && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar() // consume *
				l.readChar() // consume /
			}
		case l.ch == '#' && l.atLineStart():
			start := l.pos
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			l.lineMarker(l.input[start:l.pos])
		default:
			return
		}
	}
}

// lineMarker records whether the text after a `# N "file" flags` marker
// comes from a system header (flag 3). Other directives are ignored.
func (l *Lexer) lineMarker(text string) {
	fields := strings.Fields(strings.TrimPrefix(text, "#"))
	if len(fields) > 0 && fields[0] == "line" {
		fields = fields[1:]
	}
	if len(fields) < 2 || !strings.HasPrefix(fields[1], `"`) {
		return
	}
	if _, err := strconv.Atoi(fields[0]); err != nil {
		return
	}
	l.system = false
	for _, flag := range fields[2:] {
		if flag == "3" {
			l.system = true
		}
	}
}

func (l *Lexer) atLineStart() bool {
	for i := l.pos - 1; i >= 0; i-- {
		switch l.input[i] {
		case ' ', '\t':
			continue
		case '\n':
			return true
		default:
			return false
		}
	}
	return true
}

func (l *Lexer) readIdentifier() string {
	pos := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[pos:l.pos]
}

// readNumber reads decimal, hex and floating literals including suffixes.
func (l *Lexer) readNumber() string {
	pos := l.pos
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
	} else {
		for isDigit(l.ch) || l.ch == '.' {
			l.readChar()
		}
		if l.ch == 'e' || l.ch == 'E' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	for isLetter(l.ch) { // u, l, f suffixes
		l.readChar()
	}
	return l.input[pos:l.pos]
}

// readQuoted reads a string or character literal, returning its contents
// without the surrounding quotes and with escapes left untouched.
func (l *Lexer) readQuoted(quote byte) string {
	l.readChar() // consume opening quote
	pos := l.pos
	for l.ch != quote && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar() // skip escape char
		}
		l.readChar()
	}
	str := l.input[pos:l.pos]
	l.readChar() // consume closing quote
	return str
}

func isFloatLiteral(lit string) bool {
	if len(lit) > 1 && (lit[1] == 'x' || lit[1] == 'X') {
		return false
	}
	for i := 0; i < len(lit); i++ {
		switch lit[i] {
		case '.', 'e', 'E', 'f', 'F':
			return true
		}
	}
	return false
}

func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}
