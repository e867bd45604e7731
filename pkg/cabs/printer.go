// Package cabs provides AST printing functionality
package cabs

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs the AST as C source text
type Printer struct {
	w      io.Writer
	indent int
}

// NewPrinter creates a new AST printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, indent: 0}
}

// PrintProgram prints a complete program
func (p *Printer) PrintProgram(prog *Program) {
	for _, def := range prog.Definitions {
		p.printDefinition(def)
		fmt.Fprintln(p.w)
	}
}

// PrintFunction prints a single function definition.
func (p *Printer) PrintFunction(f *FunDef) {
	p.printFunDef(*f)
}

// PrintStmts prints a bare statement list at the current indentation.
func (p *Printer) PrintStmts(stmts []Stmt) {
	for _, s := range stmts {
		p.printStmt(s)
	}
}

// ExprString renders an expression as C source text.
func ExprString(e Expr) string {
	var sb strings.Builder
	NewPrinter(&sb).printExpr(e)
	return sb.String()
}

// FunctionString renders a function definition as C source text.
func FunctionString(f *FunDef) string {
	var sb strings.Builder
	NewPrinter(&sb).PrintFunction(f)
	return sb.String()
}

func (p *Printer) writeIndent() {
	fmt.Fprint(p.w, strings.Repeat("  ", p.indent))
}

func (p *Printer) printDefinition(def Definition) {
	switch d := def.(type) {
	case FunDef:
		p.printFunDef(d)
	case VarDef:
		p.printDecl(d.Decl)
		fmt.Fprintln(p.w, ";")
	default:
		fmt.Fprintf(p.w, "/* unknown definition %T */\n", def)
	}
}

func (p *Printer) printFunDef(f FunDef) {
	fmt.Fprintf(p.w, "%s%s %s(", attrPrefix(f.Attrs), f.ReturnType, f.Name)
	for i, param := range f.Params {
		if i > 0 {
			fmt.Fprint(p.w, ", ")
		}
		fmt.Fprintf(p.w, "%s%s", attrPrefix(param.Attrs), param.TypeSpec)
		if param.Name != "" {
			fmt.Fprintf(p.w, " %s", param.Name)
		}
	}
	if f.Variadic {
		if len(f.Params) > 0 {
			fmt.Fprint(p.w, ", ")
		}
		fmt.Fprint(p.w, "...")
	}
	if f.Body == nil {
		fmt.Fprintln(p.w, ");")
		return
	}
	fmt.Fprintln(p.w, ")")
	p.printBlock(*f.Body)
}

func attrPrefix(attrs []string) string {
	if len(attrs) == 0 {
		return ""
	}
	return strings.Join(attrs, " ") + " "
}

func (p *Printer) printBlock(b Block) {
	p.writeIndent()
	fmt.Fprintln(p.w, "{")
	p.indent++
	for _, item := range b.Items {
		p.printStmt(item)
	}
	p.indent--
	p.writeIndent()
	fmt.Fprintln(p.w, "}")
}

// printBody prints the body of a control statement one level deeper, unless
// it is already a block.
func (p *Printer) printBody(s Stmt) {
	if b, ok := s.(Block); ok {
		p.printBlock(b)
		return
	}
	p.indent++
	p.printStmt(s)
	p.indent--
}

func (p *Printer) printStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case Computation:
		p.writeIndent()
		p.printExpr(s.Expr)
		fmt.Fprintln(p.w, ";")
	case Block:
		p.printBlock(s)
	case If:
		p.writeIndent()
		fmt.Fprint(p.w, "if (")
		p.printExpr(s.Cond)
		fmt.Fprintln(p.w, ")")
		p.printBody(s.Then)
		if s.Else != nil {
			p.writeIndent()
			fmt.Fprintln(p.w, "else")
			p.printBody(s.Else)
		}
	case While:
		p.writeIndent()
		fmt.Fprint(p.w, "while (")
		p.printExpr(s.Cond)
		fmt.Fprintln(p.w, ")")
		p.printBody(s.Body)
	case DoWhile:
		p.writeIndent()
		fmt.Fprintln(p.w, "do")
		p.printBody(s.Body)
		p.writeIndent()
		fmt.Fprint(p.w, "while (")
		p.printExpr(s.Cond)
		fmt.Fprintln(p.w, ");")
	case For:
		p.writeIndent()
		fmt.Fprint(p.w, "for (")
		switch init := s.Init.(type) {
		case DeclStmt:
			for i, d := range init.Decls {
				if i > 0 {
					fmt.Fprint(p.w, ", ")
				}
				p.printDecl(d)
			}
		case Computation:
			p.printExpr(init.Expr)
		}
		fmt.Fprint(p.w, "; ")
		if s.Cond != nil {
			p.printExpr(s.Cond)
		}
		fmt.Fprint(p.w, "; ")
		if s.Step != nil {
			p.printExpr(s.Step)
		}
		fmt.Fprintln(p.w, ")")
		p.printBody(s.Body)
	case Switch:
		p.writeIndent()
		fmt.Fprint(p.w, "switch (")
		p.printExpr(s.Expr)
		fmt.Fprintln(p.w, ")")
		p.printBody(s.Body)
	case Case:
		p.writeIndent()
		fmt.Fprint(p.w, "case ")
		p.printExpr(s.Expr)
		fmt.Fprintln(p.w, ":")
		if s.Stmt != nil {
			p.printBody(s.Stmt)
		}
	case Default:
		p.writeIndent()
		fmt.Fprintln(p.w, "default:")
		if s.Stmt != nil {
			p.printBody(s.Stmt)
		}
	case Break:
		p.writeIndent()
		fmt.Fprintln(p.w, "break;")
	case Continue:
		p.writeIndent()
		fmt.Fprintln(p.w, "continue;")
	case Goto:
		p.writeIndent()
		fmt.Fprintf(p.w, "goto %s;\n", s.Label)
	case Label:
		p.writeIndent()
		fmt.Fprintf(p.w, "%s:\n", s.Name)
		if s.Stmt != nil {
			p.printStmt(s.Stmt)
		}
	case Return:
		p.writeIndent()
		if s.Expr == nil {
			fmt.Fprintln(p.w, "return;")
		} else {
			fmt.Fprint(p.w, "return ")
			p.printExpr(s.Expr)
			fmt.Fprintln(p.w, ";")
		}
	case Try:
		p.writeIndent()
		fmt.Fprintln(p.w, "__try")
		p.printBlock(*s.Body)
		if s.Except != nil {
			p.writeIndent()
			fmt.Fprint(p.w, "__except (")
			p.printExpr(s.Filter)
			fmt.Fprintln(p.w, ")")
			p.printBlock(*s.Except)
		}
		if s.Finally != nil {
			p.writeIndent()
			fmt.Fprintln(p.w, "__finally")
			p.printBlock(*s.Finally)
		}
	case DeclStmt:
		for _, d := range s.Decls {
			p.writeIndent()
			p.printDecl(d)
			fmt.Fprintln(p.w, ";")
		}
	case Empty:
		p.writeIndent()
		fmt.Fprintln(p.w, ";")
	default:
		fmt.Fprintf(p.w, "/* unknown stmt %T */;\n", stmt)
	}
}

func (p *Printer) printDecl(d Decl) {
	fmt.Fprintf(p.w, "%s%s %s", attrPrefix(d.Attrs), d.TypeSpec, d.Name)
	for _, dim := range d.ArrayDims {
		fmt.Fprint(p.w, "[")
		if dim != nil {
			p.printExpr(dim)
		}
		fmt.Fprint(p.w, "]")
	}
	if d.Initializer != nil {
		fmt.Fprint(p.w, " = ")
		p.printExpr(d.Initializer)
	}
}

func (p *Printer) printExpr(expr Expr) {
	switch e := expr.(type) {
	case Constant:
		fmt.Fprint(p.w, e.Text)
	case StringLiteral:
		fmt.Fprintf(p.w, "\"%s\"", e.Value)
	case CharLiteral:
		fmt.Fprintf(p.w, "'%s'", e.Value)
	case Variable:
		fmt.Fprint(p.w, e.Name)
	case Unary:
		p.printUnary(e)
	case Binary:
		p.printBinary(e)
	case Paren:
		fmt.Fprint(p.w, "(")
		p.printExpr(e.Expr)
		fmt.Fprint(p.w, ")")
	case Conditional:
		p.printExpr(e.Cond)
		fmt.Fprint(p.w, " ? ")
		p.printExpr(e.Then)
		fmt.Fprint(p.w, " : ")
		p.printExpr(e.Else)
	case Call:
		p.printExpr(e.Func)
		fmt.Fprint(p.w, "(")
		p.printExprList(e.Args)
		fmt.Fprint(p.w, ")")
	case Index:
		p.printExpr(e.Array)
		fmt.Fprint(p.w, "[")
		p.printExpr(e.Index)
		fmt.Fprint(p.w, "]")
	case Member:
		p.printExpr(e.Expr)
		if e.IsArrow {
			fmt.Fprint(p.w, "->")
		} else {
			fmt.Fprint(p.w, ".")
		}
		fmt.Fprint(p.w, e.Name)
	case SizeofExpr:
		fmt.Fprint(p.w, "sizeof ")
		p.printExpr(e.Expr)
	case SizeofType:
		fmt.Fprintf(p.w, "sizeof(%s)", e.TypeName)
	case Cast:
		fmt.Fprintf(p.w, "(%s)", e.TypeName)
		p.printExpr(e.Expr)
	case InitList:
		fmt.Fprint(p.w, "{")
		p.printExprList(e.Items)
		fmt.Fprint(p.w, "}")
	case Designated:
		if e.Index != nil {
			fmt.Fprint(p.w, "[")
			p.printExpr(e.Index)
			fmt.Fprint(p.w, "]")
		} else {
			fmt.Fprintf(p.w, ".%s", e.Field)
		}
		fmt.Fprint(p.w, " = ")
		p.printExpr(e.Value)
	case CompoundLiteral:
		fmt.Fprintf(p.w, "(%s)", e.TypeName)
		p.printExpr(e.Init)
	case Offsetof:
		fmt.Fprintf(p.w, "offsetof(%s, %s)", e.TypeName, e.Member)
	case Generic:
		fmt.Fprint(p.w, "_Generic(")
		p.printExpr(e.Control)
		for i, t := range e.Types {
			fmt.Fprintf(p.w, ", %s: ", t)
			if i < len(e.Exprs) {
				p.printExpr(e.Exprs[i])
			}
		}
		fmt.Fprint(p.w, ")")
	default:
		fmt.Fprintf(p.w, "/* unknown expr %T */", expr)
	}
}

func (p *Printer) printExprList(list []Expr) {
	for i, e := range list {
		if i > 0 {
			fmt.Fprint(p.w, ", ")
		}
		p.printExpr(e)
	}
}

func (p *Printer) printUnary(u Unary) {
	switch u.Op {
	case OpPostInc, OpPostDec:
		p.printExpr(u.Expr)
		fmt.Fprint(p.w, u.Op.String())
	default:
		op := u.Op.String()
		fmt.Fprint(p.w, op)
		if inner, ok := u.Expr.(Unary); ok && inner.Op != OpPostInc && inner.Op != OpPostDec {
			// - -x is not --x
			next := inner.Op.String()[0]
			if next == op[len(op)-1] && strings.IndexByte("+-&", next) >= 0 {
				fmt.Fprint(p.w, " ")
			}
		}
		p.printExpr(u.Expr)
	}
}

func (p *Printer) printBinary(b Binary) {
	p.printExpr(b.Left)
	if b.Op == OpComma {
		fmt.Fprint(p.w, ", ")
	} else {
		fmt.Fprintf(p.w, " %s ", b.Op.String())
	}
	p.printExpr(b.Right)
}
