// Package gir provides printing for the normalized statement tree
package gir

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs the statement tree in a C-like readable format
type Printer struct {
	w      io.Writer
	indent int
}

// NewPrinter creates a new GIR printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, indent: 0}
}

// PrintBlock prints the statements of b at the current indentation.
func (p *Printer) PrintBlock(b *Block) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		p.printStmt(s)
	}
}

// String renders a block as text.
func String(b *Block) string {
	var sb strings.Builder
	NewPrinter(&sb).PrintBlock(b)
	return sb.String()
}

func (p *Printer) writeIndent() {
	fmt.Fprint(p.w, strings.Repeat("  ", p.indent))
}

func (p *Printer) line(format string, args ...any) {
	p.writeIndent()
	fmt.Fprintf(p.w, format, args...)
	fmt.Fprintln(p.w)
}

// nested prints header {, the block, then closer.
func (p *Printer) nested(header string, b *Block, closer string) {
	p.line("%s {", header)
	p.indent++
	p.PrintBlock(b)
	p.indent--
	p.line("%s", closer)
}

func attrPrefix(attrs []string) string {
	if len(attrs) == 0 {
		return ""
	}
	return strings.Join(attrs, " ") + " "
}

func (p *Printer) printStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *AssignStmt:
		switch {
		case s.Operator == "":
			p.line("%s = %s", s.Target, s.Operand)
		case s.Operand2 == "" && s.Operator == "sizeof":
			p.line("%s = sizeof %s", s.Target, s.Operand)
		case s.Operand2 == "":
			p.line("%s = %s%s", s.Target, s.Operator, s.Operand)
		default:
			p.line("%s = %s %s %s", s.Target, s.Operand, s.Operator, s.Operand2)
		}
	case *CallStmt:
		p.line("%s = %s(%s)", s.Target, s.Name, strings.Join(s.Args, ", "))
	case *MemRead:
		p.line("%s = *%s", s.Target, s.Address)
	case *MemWrite:
		p.line("*%s = %s", s.Address, s.Source)
	case *AddrOf:
		p.line("%s = &%s", s.Target, s.Source)
	case *ArrayRead:
		p.line("%s = %s[%s]", s.Target, s.Array, s.Index)
	case *ArrayWrite:
		p.line("%s[%s] = %s", s.Array, s.Index, s.Source)
	case *FieldRead:
		p.line("%s = %s.%s", s.Target, s.ReceiverObject, s.Field)
	case *FieldWrite:
		p.line("%s.%s = %s", s.ReceiverObject, s.Field, s.Source)
	case *TypeCast:
		p.line("%s = (%s)%s", s.Target, s.DataType, s.Source)
	case *FieldAddr:
		p.line("%s = offsetof(%s, %s)", s.Target, s.DataType, s.Name)
	case *NewArray:
		p.line("%s = new %s", s.Target, s.DataType)
	case *NewStruct:
		p.line("%s = new %s", s.Target, s.DataType)
	case *SwitchType:
		assocs := make([]string, len(s.TypeList))
		for i, t := range s.TypeList {
			ref := ""
			if i < len(s.ExprList) {
				ref = s.ExprList[i]
			}
			assocs[i] = t + ": " + ref
		}
		p.line("%s = _Generic(%s, %s)", s.Target, s.Condition, strings.Join(assocs, ", "))
	case *VariableDecl:
		p.line("%s%s %s", attrPrefix(s.Attrs), s.DataType, s.Name)
	case *ParameterDecl:
		p.line("param %s%s %s", attrPrefix(s.Attrs), s.DataType, s.Name)
	case *MethodDecl:
		var params []string
		if s.Parameters != nil {
			for _, ps := range s.Parameters.Stmts {
				if pd, ok := ps.(*ParameterDecl); ok {
					params = append(params, strings.TrimSpace(attrPrefix(pd.Attrs)+pd.DataType+" "+pd.Name))
				}
			}
		}
		header := fmt.Sprintf("%s%s %s(%s)", attrPrefix(s.Attrs), s.DataType, s.Name, strings.Join(params, ", "))
		p.nested(header, s.Body, "}")
	case *IfStmt:
		if s.Else == nil {
			p.nested("if "+s.Condition, s.Then, "}")
			return
		}
		p.nested("if "+s.Condition, s.Then, "} else {")
		p.indent++
		p.PrintBlock(s.Else)
		p.indent--
		p.line("}")
	case *WhileStmt:
		p.nested("while "+s.Condition, s.Body, "}")
	case *DoWhileStmt:
		p.nested("do", s.Body, "} while "+s.Condition)
	case *ForStmt:
		p.line("for %s {", s.Condition)
		p.indent++
		p.region("init_body", s.Init)
		p.region("condition_prebody", s.CondPrebody)
		p.region("update_body", s.Update)
		p.region("body", s.Body)
		p.indent--
		p.line("}")
	case *SwitchStmt:
		p.nested("switch "+s.Condition, s.Body, "}")
	case *CaseStmt:
		if s.Body == nil {
			p.line("case %s", s.Condition)
			return
		}
		p.nested("case "+s.Condition, s.Body, "}")
	case *DefaultStmt:
		p.nested("default", s.Body, "}")
	case *BreakStmt:
		p.line("%s", strings.TrimSpace("break "+s.Target))
	case *ContinueStmt:
		p.line("%s", strings.TrimSpace("continue "+s.Target))
	case *GotoStmt:
		p.line("goto %s", s.Target)
	case *LabelStmt:
		p.line("%s:", s.Name)
	case *ReturnStmt:
		p.line("%s", strings.TrimSpace("return "+s.Target))
	case *TryStmt:
		p.nested("__try", s.Body, "}")
		if s.Catch != nil {
			p.nested("__except "+s.ExceptionFilter, s.Catch, "}")
		}
		if s.Final != nil {
			p.nested("__finally", s.Final, "}")
		}
	default:
		p.line("/* unknown stmt %T */", stmt)
	}
}

// region prints a labelled loop region, marking absent regions.
func (p *Printer) region(name string, b *Block) {
	if b == nil {
		p.line("%s (absent)", name)
		return
	}
	p.nested(name, b, "}")
}
