package lexer

// TokenType represents the type of a token
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenIllegal

	// Literals
	TokenIdent   // main, foo, x
	TokenInt     // 42, 0x2a
	TokenFloat_  // 1.5, 2e10
	TokenString  // "hello"
	TokenCharLit // 'a'

	// Keywords
	TokenInt_     // int
	TokenVoid     // void
	TokenReturn   // return
	TokenIf       // if
	TokenElse     // else
	TokenWhile    // while
	TokenDo       // do
	TokenFor      // for
	TokenBreak    // break
	TokenContinue // continue
	TokenSwitch   // switch
	TokenCase     // case
	TokenDefault  // default
	TokenGoto     // goto
	TokenTypedef  // typedef
	TokenStruct   // struct
	TokenSizeof   // sizeof
	TokenUnion    // union
	TokenEnum     // enum
	TokenStatic   // static
	TokenExtern   // extern
	TokenAuto     // auto
	TokenRegister // register
	TokenConst    // const
	TokenVolatile // volatile
	TokenRestrict // restrict
	TokenChar     // char
	TokenShort    // short
	TokenLong     // long
	TokenFloat    // float
	TokenDouble   // double
	TokenSigned   // signed
	TokenUnsigned // unsigned
	TokenInline   // inline
	TokenBool     // _Bool

	// Microsoft structured exception handling
	TokenTry     // __try
	TokenExcept  // __except
	TokenFinally // __finally

	// Operators
	TokenPlus      // +
	TokenMinus     // -
	TokenStar      // *
	TokenSlash     // /
	TokenPercent   // %
	TokenAssign    // =
	TokenEq        // ==
	TokenNe        // !=
	TokenLt        // <
	TokenLe        // <=
	TokenGt        // >
	TokenGe        // >=
	TokenAnd       // &&
	TokenOr        // ||
	TokenNot       // !
	TokenAmpersand // &
	TokenPipe      // |
	TokenCaret     // ^
	TokenTilde     // ~
	TokenShl       // <<
	TokenShr       // >>
	TokenQuestion  // ?
	TokenColon     // :

	// Compound assignment operators
	TokenPlusAssign    // +=
	TokenMinusAssign   // -=
	TokenStarAssign    // *=
	TokenSlashAssign   // /=
	TokenPercentAssign // %=
	TokenAndAssign     // &=
	TokenOrAssign      // |=
	TokenXorAssign     // ^=
	TokenShlAssign     // <<=
	TokenShrAssign     // >>=

	// Increment/decrement
	TokenIncrement // ++
	TokenDecrement // --

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenSemicolon // ;
	TokenComma     // ,
	TokenDot       // .
	TokenArrow     // ->
	TokenEllipsis  // ...
)

var tokenNames = map[TokenType]string{
	TokenEOF:           "EOF",
	TokenIllegal:       "ILLEGAL",
	TokenIdent:         "IDENT",
	TokenInt:           "INT",
	TokenFloat_:        "FLOAT",
	TokenString:        "STRING",
	TokenCharLit:       "CHAR",
	TokenInt_:          "int",
	TokenVoid:          "void",
	TokenReturn:        "return",
	TokenIf:            "if",
	TokenElse:          "else",
	TokenWhile:         "while",
	TokenDo:            "do",
	TokenFor:           "for",
	TokenBreak:         "break",
	TokenContinue:      "continue",
	TokenSwitch:        "switch",
	TokenCase:          "case",
	TokenDefault:       "default",
	TokenGoto:          "goto",
	TokenTypedef:       "typedef",
	TokenStruct:        "struct",
	TokenSizeof:        "sizeof",
	TokenUnion:         "union",
	TokenEnum:          "enum",
	TokenStatic:        "static",
	TokenExtern:        "extern",
	TokenAuto:          "auto",
	TokenRegister:      "register",
	TokenConst:         "const",
	TokenVolatile:      "volatile",
	TokenRestrict:      "restrict",
	TokenChar:          "char",
	TokenShort:         "short",
	TokenLong:          "long",
	TokenFloat:         "float",
	TokenDouble:        "double",
	TokenSigned:        "signed",
	TokenUnsigned:      "unsigned",
	TokenInline:        "inline",
	TokenBool:          "_Bool",
	TokenTry:           "__try",
	TokenExcept:        "__except",
	TokenFinally:       "__finally",
	TokenPlus:          "+",
	TokenMinus:         "-",
	TokenStar:          "*",
	TokenSlash:         "/",
	TokenPercent:       "%",
	TokenAssign:        "=",
	TokenEq:            "==",
	TokenNe:            "!=",
	TokenLt:            "<",
	TokenLe:            "<=",
	TokenGt:            ">",
	TokenGe:            ">=",
	TokenAnd:           "&&",
	TokenOr:            "||",
	TokenNot:           "!",
	TokenAmpersand:     "&",
	TokenPipe:          "|",
	TokenCaret:         "^",
	TokenTilde:         "~",
	TokenShl:           "<<",
	TokenShr:           ">>",
	TokenQuestion:      "?",
	TokenColon:         ":",
	TokenPlusAssign:    "+=",
	TokenMinusAssign:   "-=",
	TokenStarAssign:    "*=",
	TokenSlashAssign:   "/=",
	TokenPercentAssign: "%=",
	TokenAndAssign:     "&=",
	TokenOrAssign:      "|=",
	TokenXorAssign:     "^=",
	TokenShlAssign:     "<<=",
	TokenShrAssign:     ">>=",
	TokenIncrement:     "++",
	TokenDecrement:     "--",
	TokenLParen:        "(",
	TokenRParen:        ")",
	TokenLBrace:        "{",
	TokenRBrace:        "}",
	TokenLBracket:      "[",
	TokenRBracket:      "]",
	TokenSemicolon:     ";",
	TokenComma:         ",",
	TokenDot:           ".",
	TokenArrow:         "->",
	TokenEllipsis:      "...",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsTypeKeyword reports whether t can begin a declaration specifier.
func (t TokenType) IsTypeKeyword() bool {
	switch t {
	case TokenInt_, TokenVoid, TokenChar, TokenShort, TokenLong, TokenFloat,
		TokenDouble, TokenSigned, TokenUnsigned, TokenBool, TokenStruct,
		TokenUnion, TokenEnum, TokenConst, TokenVolatile, TokenRestrict,
		TokenStatic, TokenExtern, TokenAuto, TokenRegister, TokenInline:
		return true
	}
	return false
}

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
	System  bool // from a system header
}

// keywords maps keyword strings to token types
var keywords = map[string]TokenType{
	"int":      TokenInt_,
	"void":     TokenVoid,
	"return":   TokenReturn,
	"if":       TokenIf,
	"else":     TokenElse,
	"while":    TokenWhile,
	"do":       TokenDo,
	"for":      TokenFor,
	"break":    TokenBreak,
	"continue": TokenContinue,
	"switch":   TokenSwitch,
	"case":     TokenCase,
	"default":  TokenDefault,
	"goto":     TokenGoto,
	"typedef":  TokenTypedef,
	"struct":   TokenStruct,
	"sizeof":   TokenSizeof,
	"union":    TokenUnion,
	"enum":     TokenEnum,
	"static":   TokenStatic,
	"extern":   TokenExtern,
	"auto":     TokenAuto,
	"register": TokenRegister,
	"const":    TokenConst,
	"volatile": TokenVolatile,
	"restrict": TokenRestrict,
	"char":     TokenChar,
	"short":    TokenShort,
	"long":     TokenLong,
	"float":    TokenFloat,
	"double":   TokenDouble,
	"signed":   TokenSigned,
	"unsigned": TokenUnsigned,
	"inline":   TokenInline,
	"_Bool":    TokenBool,

	// GNU spellings left by system headers
	"__restrict":   TokenRestrict,
	"__restrict__": TokenRestrict,
	"__const":      TokenConst,
	"__const__":    TokenConst,
	"__volatile":   TokenVolatile,
	"__volatile__": TokenVolatile,
	"__inline":     TokenInline,
	"__inline__":   TokenInline,
	"__signed":     TokenSigned,
	"__signed__":   TokenSigned,

	"__try":     TokenTry,
	"__except":  TokenExcept,
	"__finally": TokenFinally,
}

// LookupIdent returns the token type for an identifier (keyword or IDENT)
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TokenIdent
}
