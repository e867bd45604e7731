package lexer

import "testing"

func TestNextToken(t *testing.T) {
	input := `int main() { return 42; }`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenInt_, "int"},
		{TokenIdent, "main"},
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBrace, "{"},
		{TokenReturn, "return"},
		{TokenInt, "42"},
		{TokenSemicolon, ";"},
		{TokenRBrace, "}"},
		{TokenEOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestOperators(t *testing.T) {
	input := `+ - * / % = == != < <= > >= && || ! & | ^ ~`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenStar, "*"},
		{TokenSlash, "/"},
		{TokenPercent, "%"},
		{TokenAssign, "="},
		{TokenEq, "=="},
		{TokenNe, "!="},
		{TokenLt, "<"},
		{TokenLe, "<="},
		{TokenGt, ">"},
		{TokenGe, ">="},
		{TokenAnd, "&&"},
		{TokenOr, "||"},
		{TokenNot, "!"},
		{TokenAmpersand, "&"},
		{TokenPipe, "|"},
		{TokenCaret, "^"},
		{TokenTilde, "~"},
		{TokenEOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestComments(t *testing.T) {
	input := `int // comment
main /* block
comment */ ()`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenInt_, "int"},
		{TokenIdent, "main"},
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenEOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestCompoundOperators(t *testing.T) {
	input := `++ -- += -= *= /= %= &= |= ^= <<= >>= << >> -> ... ? :`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenIncrement, "++"},
		{TokenDecrement, "--"},
		{TokenPlusAssign, "+="},
		{TokenMinusAssign, "-="},
		{TokenStarAssign, "*="},
		{TokenSlashAssign, "/="},
		{TokenPercentAssign, "%="},
		{TokenAndAssign, "&="},
		{TokenOrAssign, "|="},
		{TokenXorAssign, "^="},
		{TokenShlAssign, "<<="},
		{TokenShrAssign, ">>="},
		{TokenShl, "<<"},
		{TokenShr, ">>"},
		{TokenArrow, "->"},
		{TokenEllipsis, "..."},
		{TokenQuestion, "?"},
		{TokenColon, ":"},
		{TokenEOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestLiterals(t *testing.T) {
	input := `42 0x1F 3.14 1e3 10UL 'a' '\n' "say \"hi\""`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenInt, "42"},
		{TokenInt, "0x1F"},
		{TokenFloat_, "3.14"},
		{TokenFloat_, "1e3"},
		{TokenInt, "10UL"},
		{TokenCharLit, "a"},
		{TokenCharLit, `\n`},
		{TokenString, `say \"hi\"`},
		{TokenEOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestStructuredExceptionKeywords(t *testing.T) {
	l := New(`__try { } __except (1) { } __finally { }`)
	want := []TokenType{
		TokenTry, TokenLBrace, TokenRBrace,
		TokenExcept, TokenLParen, TokenInt, TokenRParen, TokenLBrace, TokenRBrace,
		TokenFinally, TokenLBrace, TokenRBrace, TokenEOF,
	}
	for i, tt := range want {
		if tok := l.NextToken(); tok.Type != tt {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, tt, tok.Type)
		}
	}
}

func TestLineMarkersSkipped(t *testing.T) {
	input := "# 1 \"main.c\"\nint x;\n  # 2 \"main.c\"\nreturn"
	l := New(input)

	tok := l.NextToken()
	if tok.Type != TokenInt_ || tok.Line != 2 || tok.Column != 1 {
		t.Fatalf("expected int at 2:1, got %q at %d:%d", tok.Type, tok.Line, tok.Column)
	}
	l.NextToken() // x
	l.NextToken() // ;
	tok = l.NextToken()
	if tok.Type != TokenReturn || tok.Line != 4 {
		t.Fatalf("expected return on line 4, got %q on line %d", tok.Type, tok.Line)
	}
}

func TestPositions(t *testing.T) {
	l := New("a\n  b")
	a := l.NextToken()
	b := l.NextToken()
	if a.Line != 1 || a.Column != 1 {
		t.Errorf("a at %d:%d, want 1:1", a.Line, a.Column)
	}
	if b.Line != 2 || b.Column != 3 {
		t.Errorf("b at %d:%d, want 2:3", b.Line, b.Column)
	}
}

func TestSystemHeaderMarkers(t *testing.T) {
	input := "# 1 \"/usr/include/stdio.h\" 1 3 4\nextern int x;\n# 2 \"main.c\" 2\nint y;\n#pragma once\nint z;"
	l := New(input)

	tests := []struct {
		literal string
		system  bool
	}{
		{"extern", true},
		{"int", true},
		{"x", true},
		{";", true},
		{"int", false},
		{"y", false},
		{";", false},
		{"int", false},
	}
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Literal != tt.literal || tok.System != tt.system {
			t.Fatalf("tests[%d] - got %q system=%v, want %q system=%v",
				i, tok.Literal, tok.System, tt.literal, tt.system)
		}
	}
}

func TestGNUKeywordSpellings(t *testing.T) {
	tests := []struct {
		input string
		want  TokenType
	}{
		{"__restrict", TokenRestrict},
		{"__restrict__", TokenRestrict},
		{"__const", TokenConst},
		{"__volatile__", TokenVolatile},
		{"__inline", TokenInline},
		{"__inline__", TokenInline},
		{"__signed__", TokenSigned},
		{"__builtin_va_list", TokenIdent},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if tok := New(tt.input).NextToken(); tok.Type != tt.want {
				t.Errorf("%s lexed as %q, want %q", tt.input, tok.Type, tt.want)
			}
		})
	}
}
