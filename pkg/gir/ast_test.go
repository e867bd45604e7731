package gir

import (
	"testing"
)

func fieldKeys(s Stmt) []string {
	var keys []string
	for _, f := range s.Fields() {
		keys = append(keys, f.Key)
	}
	return keys
}

func TestFieldOrder(t *testing.T) {
	tests := []struct {
		name     string
		stmt     Stmt
		expected []string
	}{
		{"plain assign", &AssignStmt{Target: "%v0", Operand: "a"}, []string{"target", "operand"}},
		{"unary assign", &AssignStmt{Target: "%v0", Operator: "-", Operand: "a"}, []string{"target", "operator", "operand"}},
		{"binary assign", &AssignStmt{Target: "a", Operator: "+", Operand: "a", Operand2: "1"},
			[]string{"target", "operator", "operand", "operand2"}},
		{"call", &CallStmt{Target: "%v0", Name: "f"}, []string{"target", "name", "args"}},
		{"if without else", &IfStmt{Condition: "%v0", Then: NewBlock()}, []string{"condition", "then_body"}},
		{"if with else", &IfStmt{Condition: "%v0", Then: NewBlock(), Else: NewBlock()},
			[]string{"condition", "then_body", "else_body"}},
		{"for", &ForStmt{Condition: "%v3"},
			[]string{"init_body", "condition_prebody", "condition", "update_body", "body"}},
		{"try finally", &TryStmt{Body: NewBlock(), Final: NewBlock()}, []string{"body", "catch_body", "final_body"}},
		{"try except", &TryStmt{Body: NewBlock(), ExceptionFilter: "%v0", Catch: NewBlock()},
			[]string{"body", "exception_filter", "catch_body", "final_body"}},
		{"variable without attrs", &VariableDecl{DataType: "int", Name: "x"}, []string{"data_type", "name"}},
		{"method", &MethodDecl{Attrs: []string{"static"}, DataType: "int", Name: "f"},
			[]string{"attrs", "data_type", "name", "parameters", "body"}},
		{"field write", &FieldWrite{ReceiverObject: "p", Field: "f", Source: "1"},
			[]string{"receiver_object", "field", "source"}},
		{"field addr", &FieldAddr{Target: "%v0", DataType: "struct P", Name: "y"},
			[]string{"target", "data_type", "name"}},
		{"new array", &NewArray{Target: "%v0", DataType: "int[2]"}, []string{"target", "data_type"}},
		{"new struct", &NewStruct{Target: "%v0", DataType: "struct P"}, []string{"target", "data_type"}},
		{"generic", &SwitchType{Target: "%v0", Condition: "x"},
			[]string{"target", "condition", "type_list", "expr_list"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fieldKeys(tt.stmt)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected fields %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("field %d: expected %q, got %q", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestBodiesKeepAbsentFields(t *testing.T) {
	f := &ForStmt{CondPrebody: NewBlock(), Update: NewBlock(), Body: NewBlock()}
	bodies := Bodies(f)
	if len(bodies) != 4 {
		t.Fatalf("expected 4 body fields, got %d", len(bodies))
	}
	initBody, ok := bodies[0].Body()
	if !ok || initBody != nil {
		t.Errorf("expected absent init_body, got %v (body=%v)", initBody, ok)
	}
	prebody, _ := bodies[1].Body()
	if prebody == nil {
		t.Errorf("expected present condition_prebody")
	}
}

func TestCallArgsNeverNil(t *testing.T) {
	f := (&CallStmt{Target: "%v0", Name: "f"}).Fields()
	args, ok := f[2].Value.([]string)
	if !ok || args == nil {
		t.Errorf("expected empty non-nil args, got %#v", f[2].Value)
	}
}

func TestSwitchTypeListsNeverNil(t *testing.T) {
	f := (&SwitchType{Target: "%v0", Condition: "x"}).Fields()
	for _, i := range []int{2, 3} {
		list, ok := f[i].Value.([]string)
		if !ok || list == nil {
			t.Errorf("%s: expected empty non-nil list, got %#v", f[i].Key, f[i].Value)
		}
	}
}
