// Package cabs defines the abstract syntax tree for C function bodies as
// produced by the parser and consumed by the GIR lowering.
package cabs

import "fmt"

// Node is the base interface for all AST nodes
type Node interface {
	implCabsNode()
}

// Expr is the interface for all expression nodes
type Expr interface {
	Node
	implCabsExpr()
}

// Stmt is the interface for all statement nodes
type Stmt interface {
	Node
	implCabsStmt()
	Position() Pos
}

// Definition is the interface for top-level definitions
type Definition interface {
	Node
	implDefinition()
}

// Pos is a source position. The zero value means unknown.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	if p.Line == 0 {
		return "?"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid reports whether the position is known.
func (p Pos) IsValid() bool { return p.Line > 0 }

// BinaryOp represents binary operators
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpAnd // &&
	OpOr  // ||
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl // <<
	OpShr // >>
	OpAssign
	OpAddAssign
	OpSubAssign
	OpMulAssign
	OpDivAssign
	OpModAssign
	OpAndAssign
	OpOrAssign
	OpXorAssign
	OpShlAssign
	OpShrAssign
	OpComma
)

func (op BinaryOp) String() string {
	names := []string{"+", "-", "*", "/", "%", "<", "<=", ">", ">=", "==", "!=", "&&", "||", "&", "|", "^", "<<", ">>",
		"=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<=", ">>=", ","}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// IsAssign reports whether op is = or a compound assignment.
func (op BinaryOp) IsAssign() bool {
	return op >= OpAssign && op <= OpShrAssign
}

// ArithOf returns the arithmetic operator underlying a compound assignment
// (OpAdd for +=). It returns false for plain = and non-assignments.
func (op BinaryOp) ArithOf() (BinaryOp, bool) {
	switch op {
	case OpAddAssign:
		return OpAdd, true
	case OpSubAssign:
		return OpSub, true
	case OpMulAssign:
		return OpMul, true
	case OpDivAssign:
		return OpDiv, true
	case OpModAssign:
		return OpMod, true
	case OpAndAssign:
		return OpBitAnd, true
	case OpOrAssign:
		return OpBitOr, true
	case OpXorAssign:
		return OpBitXor, true
	case OpShlAssign:
		return OpShl, true
	case OpShrAssign:
		return OpShr, true
	}
	return op, false
}

// UnaryOp represents unary operators
type UnaryOp int

const (
	OpNeg     UnaryOp = iota // -
	OpNot                    // !
	OpBitNot                 // ~
	OpPlus                   // +
	OpAddrOf                 // &
	OpDeref                  // *
	OpPreInc                 // ++x
	OpPreDec                 // --x
	OpPostInc                // x++
	OpPostDec                // x--
)

func (op UnaryOp) String() string {
	names := []string{"-", "!", "~", "+", "&", "*", "++", "--", "++", "--"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// IsIncDec reports whether op is one of the four increment/decrement forms.
func (op UnaryOp) IsIncDec() bool {
	return op >= OpPreInc && op <= OpPostDec
}

// Constant represents a numeric literal, kept in its source spelling.
type Constant struct {
	Text string
}

// StringLiteral represents a string literal; Value excludes the quotes.
type StringLiteral struct {
	Value string
}

// CharLiteral represents a character literal; Value excludes the quotes.
type CharLiteral struct {
	Value string
}

// Variable represents an identifier expression
type Variable struct {
	Name string
}

// Unary represents a unary expression
type Unary struct {
	Op   UnaryOp
	Expr Expr
}

// Binary represents a binary expression, including assignments and the
// comma operator.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// Paren represents a parenthesized expression
type Paren struct {
	Expr Expr
}

// Conditional represents the ternary operator: cond ? then : else
type Conditional struct {
	Cond Expr
	Then Expr
	Else Expr
}

// Call represents a function call
type Call struct {
	Func Expr
	Args []Expr
}

// Index represents array subscript access: arr[idx]
type Index struct {
	Array Expr
	Index Expr
}

// Member represents s.f or p->f
type Member struct {
	Expr    Expr
	Name    string
	IsArrow bool
}

// Cast represents (type)expr
type Cast struct {
	TypeName string
	Expr     Expr
}

// SizeofExpr represents sizeof expr
type SizeofExpr struct {
	Expr Expr
}

// SizeofType represents sizeof(type)
type SizeofType struct {
	TypeName string
}

// InitList represents a brace initializer {a, b, c}; it only appears as a
// declaration initializer or inside a CompoundLiteral.
type InitList struct {
	Items []Expr
}

// Designated is an initializer item with a designator: .Field = Value or
// [Index] = Value. Exactly one of Field and Index is set.
type Designated struct {
	Field string
	Index Expr
	Value Expr
}

// CompoundLiteral represents (type){items}
type CompoundLiteral struct {
	TypeName string
	Init     InitList
}

// Offsetof represents offsetof(type, member). Member keeps the member
// designator in source form, such as "a.b[2]".
type Offsetof struct {
	TypeName string
	Member   string
}

// Generic represents _Generic(control, type: expr, ...). Types[i] labels
// Exprs[i]; the default association is labeled "default".
type Generic struct {
	Control Expr
	Types   []string
	Exprs   []Expr
}

// --- Statements ---

// Computation is an expression statement.
type Computation struct {
	Pos  Pos
	Expr Expr
}

// Block represents a compound statement (block)
type Block struct {
	Pos   Pos
	Items []Stmt
}

// If represents if/else; Else is nil when there is no else branch.
type If struct {
	Pos  Pos
	Cond Expr
	Then Stmt
	Else Stmt
}

// While represents while (cond) body
type While struct {
	Pos  Pos
	Cond Expr
	Body Stmt
}

// DoWhile represents do body while (cond);
type DoWhile struct {
	Pos  Pos
	Body Stmt
	Cond Expr
}

// For represents for (init; cond; step) body. Init is either a DeclStmt or
// a Computation, and nil when the clause is empty. Step is nil when empty.
type For struct {
	Pos  Pos
	Init Stmt
	Cond Expr
	Step Expr
	Body Stmt
}

// Switch represents switch (expr) body. Case and Default labels appear as
// labeled statements inside Body.
type Switch struct {
	Pos  Pos
	Expr Expr
	Body Stmt
}

// Case represents `case expr: stmt`
type Case struct {
	Pos  Pos
	Expr Expr
	Stmt Stmt // nil when the label ends the switch body
}

// Default represents `default: stmt`
type Default struct {
	Pos  Pos
	Stmt Stmt
}

// Break represents break;
type Break struct {
	Pos Pos
}

// Continue represents continue;
type Continue struct {
	Pos Pos
}

// Goto represents goto label;
type Goto struct {
	Pos   Pos
	Label string
}

// Label represents `name: stmt`
type Label struct {
	Pos  Pos
	Name string
	Stmt Stmt
}

// Return represents a return statement
type Return struct {
	Pos  Pos
	Expr Expr // nil for bare return
}

// Try represents structured exception handling: __try with either an
// __except(filter) handler or a __finally clause.
type Try struct {
	Pos     Pos
	Body    *Block
	Filter  Expr   // __except filter; nil for __finally
	Except  *Block // nil unless __except
	Finally *Block // nil unless __finally
}

// Decl is a single declarator within a declaration.
type Decl struct {
	Pos         Pos
	Attrs       []string // storage class and qualifiers
	TypeSpec    string
	Name        string
	ArrayDims   []Expr // one entry per [n]; nil entries for []
	Initializer Expr   // nil when absent
}

// DeclStmt is a local declaration statement
type DeclStmt struct {
	Pos   Pos
	Decls []Decl
}

// Empty is the null statement `;`.
type Empty struct {
	Pos Pos
}

// --- Definitions ---

// Param is a function parameter
type Param struct {
	Attrs    []string
	TypeSpec string
	Name     string
}

// FunDef represents a function definition; Body is nil for prototypes.
type FunDef struct {
	Pos        Pos
	Attrs      []string
	ReturnType string
	Name       string
	Params     []Param
	Variadic   bool
	Body       *Block
}

// VarDef is a top-level variable declaration.
type VarDef struct {
	Decl Decl
}

// Program is a translation unit.
type Program struct {
	Definitions []Definition
}

// Functions returns the function definitions that have bodies, in source
// order.
func (p *Program) Functions() []*FunDef {
	var out []*FunDef
	for _, def := range p.Definitions {
		if f, ok := def.(FunDef); ok && f.Body != nil {
			out = append(out, &f)
		}
	}
	return out
}

// Marker methods for interface implementation
func (Constant) implCabsNode() {}
func (Constant) implCabsExpr() {}

func (StringLiteral) implCabsNode() {}
func (StringLiteral) implCabsExpr() {}

func (CharLiteral) implCabsNode() {}
func (CharLiteral) implCabsExpr() {}

func (Variable) implCabsNode() {}
func (Variable) implCabsExpr() {}

func (Unary) implCabsNode() {}
func (Unary) implCabsExpr() {}

func (Binary) implCabsNode() {}
func (Binary) implCabsExpr() {}

func (Paren) implCabsNode() {}
func (Paren) implCabsExpr() {}

func (Conditional) implCabsNode() {}
func (Conditional) implCabsExpr() {}

func (Call) implCabsNode() {}
func (Call) implCabsExpr() {}

func (Index) implCabsNode() {}
func (Index) implCabsExpr() {}

func (Member) implCabsNode() {}
func (Member) implCabsExpr() {}

func (Cast) implCabsNode() {}
func (Cast) implCabsExpr() {}

func (SizeofExpr) implCabsNode() {}
func (SizeofExpr) implCabsExpr() {}

func (SizeofType) implCabsNode() {}
func (SizeofType) implCabsExpr() {}

func (InitList) implCabsNode() {}
func (InitList) implCabsExpr() {}

func (Designated) implCabsNode() {}
func (Designated) implCabsExpr() {}

func (CompoundLiteral) implCabsNode() {}
func (CompoundLiteral) implCabsExpr() {}

func (Offsetof) implCabsNode() {}
func (Offsetof) implCabsExpr() {}

func (Generic) implCabsNode() {}
func (Generic) implCabsExpr() {}

func (Computation) implCabsNode() {}
func (Computation) implCabsStmt() {}

func (Block) implCabsNode() {}
func (Block) implCabsStmt() {}

func (If) implCabsNode() {}
func (If) implCabsStmt() {}

func (While) implCabsNode() {}
func (While) implCabsStmt() {}

func (DoWhile) implCabsNode() {}
func (DoWhile) implCabsStmt() {}

func (For) implCabsNode() {}
func (For) implCabsStmt() {}

func (Switch) implCabsNode() {}
func (Switch) implCabsStmt() {}

func (Case) implCabsNode() {}
func (Case) implCabsStmt() {}

func (Default) implCabsNode() {}
func (Default) implCabsStmt() {}

func (Break) implCabsNode() {}
func (Break) implCabsStmt() {}

func (Continue) implCabsNode() {}
func (Continue) implCabsStmt() {}

func (Goto) implCabsNode() {}
func (Goto) implCabsStmt() {}

func (Label) implCabsNode() {}
func (Label) implCabsStmt() {}

func (Return) implCabsNode() {}
func (Return) implCabsStmt() {}

func (Try) implCabsNode() {}
func (Try) implCabsStmt() {}

func (DeclStmt) implCabsNode() {}
func (DeclStmt) implCabsStmt() {}

func (Empty) implCabsNode() {}
func (Empty) implCabsStmt() {}

func (s Computation) Position() Pos { return s.Pos }
func (s Block) Position() Pos       { return s.Pos }
func (s If) Position() Pos          { return s.Pos }
func (s While) Position() Pos       { return s.Pos }
func (s DoWhile) Position() Pos     { return s.Pos }
func (s For) Position() Pos         { return s.Pos }
func (s Switch) Position() Pos      { return s.Pos }
func (s Case) Position() Pos        { return s.Pos }
func (s Default) Position() Pos     { return s.Pos }
func (s Break) Position() Pos       { return s.Pos }
func (s Continue) Position() Pos    { return s.Pos }
func (s Goto) Position() Pos        { return s.Pos }
func (s Label) Position() Pos       { return s.Pos }
func (s Return) Position() Pos      { return s.Pos }
func (s Try) Position() Pos         { return s.Pos }
func (s DeclStmt) Position() Pos    { return s.Pos }
func (s Empty) Position() Pos       { return s.Pos }

func (FunDef) implCabsNode()   {}
func (FunDef) implDefinition() {}

func (VarDef) implCabsNode()   {}
func (VarDef) implDefinition() {}
