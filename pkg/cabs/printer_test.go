package cabs

import (
	"bytes"
	"testing"
)

func TestExprString(t *testing.T) {
	tests := []struct {
		name     string
		expr     Expr
		expected string
	}{
		{"constant", Constant{Text: "0x10"}, "0x10"},
		{"postfix", Unary{Op: OpPostInc, Expr: Variable{Name: "a"}}, "a++"},
		{"prefix", Unary{Op: OpPreDec, Expr: Variable{Name: "a"}}, "--a"},
		{"comma", Binary{Op: OpComma, Left: Variable{Name: "a"}, Right: Variable{Name: "b"}}, "a, b"},
		{"compound", Binary{Op: OpAddAssign, Left: Variable{Name: "x"}, Right: Constant{Text: "1"}}, "x += 1"},
		{"arrow", Member{Expr: Variable{Name: "p"}, Name: "f", IsArrow: true}, "p->f"},
		{"call", Call{Func: Variable{Name: "f"}, Args: []Expr{Variable{Name: "a"}, StringLiteral{Value: "s"}}}, `f(a, "s")`},
		{"cast", Cast{TypeName: "long", Expr: Paren{Expr: Variable{Name: "x"}}}, "(long)(x)"},
		{"init list", InitList{Items: []Expr{Constant{Text: "1"}, CharLiteral{Value: "c"}}}, "{1, 'c'}"},
		{"negated negation", Unary{Op: OpNeg, Expr: Unary{Op: OpNeg, Expr: Variable{Name: "x"}}}, "- -x"},
		{"negated decrement", Unary{Op: OpNeg, Expr: Unary{Op: OpPreDec, Expr: Variable{Name: "x"}}}, "- --x"},
		{"plus plus", Unary{Op: OpPlus, Expr: Unary{Op: OpPlus, Expr: Variable{Name: "x"}}}, "+ +x"},
		{"address of address", Unary{Op: OpAddrOf, Expr: Unary{Op: OpAddrOf, Expr: Variable{Name: "x"}}}, "& &x"},
		{"negated postfix", Unary{Op: OpNeg, Expr: Unary{Op: OpPostDec, Expr: Variable{Name: "x"}}}, "-x--"},
		{"double deref", Unary{Op: OpDeref, Expr: Unary{Op: OpDeref, Expr: Variable{Name: "p"}}}, "**p"},
		{"designated", InitList{Items: []Expr{
			Designated{Field: "x", Value: Constant{Text: "1"}},
			Designated{Index: Constant{Text: "2"}, Value: Constant{Text: "3"}},
		}}, "{.x = 1, [2] = 3}"},
		{"compound literal", CompoundLiteral{TypeName: "struct P", Init: InitList{Items: []Expr{Constant{Text: "1"}, Constant{Text: "2"}}}}, "(struct P){1, 2}"},
		{"offsetof", Offsetof{TypeName: "struct P", Member: "y"}, "offsetof(struct P, y)"},
		{"generic", Generic{
			Control: Variable{Name: "x"},
			Types:   []string{"int", "default"},
			Exprs:   []Expr{Variable{Name: "abs"}, Variable{Name: "fabs"}},
		}, "_Generic(x, int: abs, default: fabs)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExprString(tt.expr); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestPrintFunction(t *testing.T) {
	f := &FunDef{
		ReturnType: "int",
		Name:       "f",
		Params:     []Param{{TypeSpec: "int", Name: "a"}},
		Body: &Block{Items: []Stmt{
			For{
				Init: Computation{Expr: Binary{Op: OpAssign, Left: Variable{Name: "i"}, Right: Constant{Text: "0"}}},
				Cond: Binary{Op: OpLt, Left: Variable{Name: "i"}, Right: Variable{Name: "a"}},
				Step: Unary{Op: OpPostInc, Expr: Variable{Name: "i"}},
				Body: Computation{Expr: Call{Func: Variable{Name: "g"}}},
			},
			Try{
				Body:    &Block{},
				Finally: &Block{Items: []Stmt{Return{}}},
			},
		}},
	}

	expected := `int f(int a)
{
  for (i = 0; i < a; i++)
    g();
  __try
  {
  }
  __finally
  {
    return;
  }
}
`
	if got := FunctionString(f); got != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, got)
	}

	var buf bytes.Buffer
	NewPrinter(&buf).PrintProgram(&Program{Definitions: []Definition{*f}})
	if buf.String() != expected+"\n" {
		t.Errorf("PrintProgram output differs from FunctionString:\n%s", buf.String())
	}
}

func TestFunctionStringDistinguishesUnarySequences(t *testing.T) {
	returning := func(e Expr) string {
		return FunctionString(&FunDef{
			ReturnType: "int",
			Name:       "f",
			Body:       &Block{Items: []Stmt{Return{Expr: e}}},
		})
	}
	x := Variable{Name: "x"}
	tests := []struct {
		name        string
		nested, one Expr
	}{
		{"minus", Unary{Op: OpNeg, Expr: Unary{Op: OpNeg, Expr: x}}, Unary{Op: OpPreDec, Expr: x}},
		{"plus", Unary{Op: OpPlus, Expr: Unary{Op: OpPlus, Expr: x}}, Unary{Op: OpPreInc, Expr: x}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if a, b := returning(tt.nested), returning(tt.one); a == b {
				t.Errorf("distinct functions print the same:\n%s", a)
			}
		})
	}
}
