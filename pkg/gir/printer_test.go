package gir

import (
	"testing"
)

func TestPrintBlock(t *testing.T) {
	tree := NewBlock(
		&AssignStmt{Target: "%v0", Operand: "a"},
		&AssignStmt{Target: "a", Operator: "+", Operand: "a", Operand2: "1"},
		&SwitchStmt{Condition: "%v0", Body: NewBlock(
			&CaseStmt{Condition: "0"},
			&CaseStmt{Condition: "1", Body: NewBlock(
				&CallStmt{Target: "%v0", Name: "f", Args: []string{"x", `"s"`}},
				&BreakStmt{},
			)},
			&DefaultStmt{Body: NewBlock()},
		)},
		&IfStmt{Condition: "%v1", Then: NewBlock(&GotoStmt{Target: "out"}), Else: NewBlock(&MemWrite{Address: "p", Source: "13"})},
		&ForStmt{
			CondPrebody: NewBlock(),
			Condition:   "1",
			Update:      NewBlock(&AssignStmt{Target: "%v0", Operator: "-", Operand: "k"}),
			Body:        NewBlock(&ContinueStmt{}),
		},
		&TryStmt{Body: NewBlock(), Final: NewBlock(&ReturnStmt{})},
		&LabelStmt{Name: "out"},
		&ReturnStmt{Target: "d"},
	)

	expected := `%v0 = a
a = a + 1
switch %v0 {
  case 0
  case 1 {
    %v0 = f(x, "s")
    break
  }
  default {
  }
}
if %v1 {
  goto out
} else {
  *p = 13
}
for 1 {
  init_body (absent)
  condition_prebody {
  }
  update_body {
    %v0 = -k
  }
  body {
    continue
  }
}
__try {
}
__finally {
  return
}
out:
return d
`
	if got := String(tree); got != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, got)
	}
}

func TestPrintMethod(t *testing.T) {
	m := &MethodDecl{
		DataType: "int",
		Name:     "add",
		Parameters: NewBlock(
			&ParameterDecl{DataType: "int", Name: "a"},
			&ParameterDecl{Attrs: []string{"const"}, DataType: "char*", Name: "s"},
		),
		Body: NewBlock(&ReturnStmt{Target: "a"}),
	}
	expected := "int add(int a, const char* s) {\n  return a\n}\n"
	if got := String(NewBlock(m)); got != expected {
		t.Errorf("expected:\n%q\ngot:\n%q", expected, got)
	}
}

func TestPrintAllocations(t *testing.T) {
	tree := NewBlock(
		&FieldAddr{Target: "%v0", DataType: "struct P", Name: "y"},
		&NewStruct{Target: "%v1", DataType: "struct P"},
		&NewArray{Target: "%v2", DataType: "int[2]"},
		&SwitchType{Target: "%v3", Condition: "x", TypeList: []string{"int", "default"}, ExprList: []string{"abs", "fabs"}},
	)
	expected := `%v0 = offsetof(struct P, y)
%v1 = new struct P
%v2 = new int[2]
%v3 = _Generic(x, int: abs, default: fabs)
`
	if got := String(tree); got != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, got)
	}
}
