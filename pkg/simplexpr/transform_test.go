package simplexpr

import (
	"errors"
	"testing"

	"github.com/raymyers/ralph-gir/pkg/cabs"
	"github.com/raymyers/ralph-gir/pkg/gir"
	"github.com/raymyers/ralph-gir/pkg/parser"
)

func parseExpr(t *testing.T, src string) cabs.Expr {
	t.Helper()
	stmts, errs := parser.ParseStatements(src + ";")
	if len(errs) > 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	comp, ok := stmts[0].(cabs.Computation)
	if !ok {
		t.Fatalf("expected Computation, got %T", stmts[0])
	}
	return comp.Expr
}

func TestHasSideEffects(t *testing.T) {
	tests := []struct {
		src      string
		expected bool
	}{
		{"42", false},
		{"x", false},
		{"(1)", false},
		{"-x", false},
		{"++x", true},
		{"x++", true},
		{"--x", true},
		{"x--", true},
		{"x + 1", false},
		{"x = 1", true},
		{"x += 1", true},
		{"f()", true},
		{"1, 2", false},
		{"a, b = 1", true},
		{"++x + 1", true},
		{"sizeof x++", false},
		{"a[i++]", true},
		{"c ? f() : 0", true},
		{"(int)x", false},
		{"offsetof(struct P, y)", false},
		{"(int[]){1, 2}", false},
		{"(struct P){1, f()}", true},
		{"(struct P){.x = n++}", true},
		{"_Generic(x++, int: a, default: b)", false},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := HasSideEffects(parseExpr(t, tt.src))
			if got != tt.expected {
				t.Errorf("HasSideEffects() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTransformExpr(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		ref   string
		stmts string
	}{
		{"identifier", "a", "a", ""},
		{"literal", `"%d "`, `"%d "`, ""},
		{"comma elides pure operands", "a, k + c, d", "d", "%v0 = k + c\n"},
		{"post-increment", "a++", "%v0", "%v0 = a\na = a + 1\n"},
		{"pre-increment", "++a", "a", "%v0 = a\na = a + 1\n"},
		{"post-decrement", "b--", "%v0", "%v0 = b\nb = b - 1\n"},
		{"comma condition", "a++, b > 0", "%v1", "%v0 = a\na = a + 1\n%v1 = b > 0\n"},
		{"pure logical and", "i <= n && j + 1 <= 1", "%v3",
			"%v0 = i <= n\n%v1 = j + 1\n%v2 = %v1 <= 1\n%v3 = %v0 && %v2\n"},
		{"memory write", "*p = 13", "13", "*p = 13\n"},
		{"memory read", "x = *p", "x", "%v0 = *p\nx = %v0\n"},
		{"assign binary", "i = j + 1", "i", "%v0 = j + 1\ni = %v0\n"},
		{"compound assign", "x += 2", "x", "x = x + 2\n"},
		{"compound array assign", "a[i] += 1", "%v1", "%v0 = a[i]\n%v1 = %v0 + 1\na[i] = %v1\n"},
		{"array write", "a[i] = v", "v", "a[i] = v\n"},
		{"compound deref assign", "*p <<= 2", "%v1", "%v0 = *p\n%v1 = %v0 << 2\n*p = %v1\n"},
		{"field post-increment", "p->f++", "%v0", "%v0 = p.f\n%v1 = %v0 + 1\np.f = %v1\n"},
		{"field pre-decrement", "--s.n", "%v1", "%v0 = s.n\n%v1 = %v0 - 1\ns.n = %v1\n"},
		{"field write", "s.f = 1", "1", "s.f = 1\n"},
		{"call", `printf("%d ", i)`, "%v0", "%v0 = printf(\"%d \", i)\n"},
		{"nested call args", "f(g(x), y + 1)", "%v2", "%v0 = g(x)\n%v1 = y + 1\n%v2 = f(%v0, %v1)\n"},
		{"call through pointer", "(*fp)(1)", "%v0", "%v0 = fp(1)\n"},
		{"conditional", "c ? x : y", "%v0", "if c {\n  %v0 = x\n} else {\n  %v0 = y\n}\n"},
		{"guarded and", "a && f()", "%v0", "%v0 = a\nif %v0 {\n  %v1 = f()\n  %v0 = %v0 && %v1\n}\n"},
		{"guarded or", "a || f()", "%v0",
			"%v0 = a\n%v1 = !%v0\nif %v1 {\n  %v2 = f()\n  %v0 = %v0 || %v2\n}\n"},
		{"sizeof skips side effects", "sizeof(x++)", "%v0", "%v0 = sizeof x++\n"},
		{"sizeof type", "sizeof(int)", "%v0", "%v0 = sizeof int\n"},
		{"cast", "(long)x", "%v0", "%v0 = (long)x\n"},
		{"address of variable", "&x", "%v0", "%v0 = &x\n"},
		{"address of element", "&a[i]", "%v0", "%v0 = a + i\n"},
		{"address of deref", "&*p", "p", ""},
		{"address of field", "&p->f", "%v0", "%v0 = &p->f\n"},
		{"negation", "-x", "%v0", "%v0 = -x\n"},
		{"nested fields", "s.a.b", "%v1", "%v0 = s.a\n%v1 = %v0.b\n"},
		{"array read", "a[i + 1]", "%v1", "%v0 = i + 1\n%v1 = a[%v0]\n"},
		{"chained assign", "a = b = 3", "a", "b = 3\na = b\n"},
		{"offsetof", "offsetof(struct P, y)", "%v0", "%v0 = offsetof(struct P, y)\n"},
		{"nested offsetof", "__builtin_offsetof(struct Q, in.v[1])", "%v0", "%v0 = offsetof(struct Q, in.v[1])\n"},
		{"struct literal", "(struct P){1, x++}", "%v0",
			"%v0 = new struct P\n%v0.0 = 1\n%v1 = x\nx = x + 1\n%v0.1 = %v1\n"},
		{"designated struct literal", "(struct P){.y = 2, .x = 1}", "%v0",
			"%v0 = new struct P\n%v0.y = 2\n%v0.x = 1\n"},
		{"nested array literal", "(int[2][2]){{1, 2}, [1] = {3}}", "%v0",
			"%v0 = new int[2][2]\n%v1 = new int[2]\n%v1[0] = 1\n%v1[1] = 2\n%v0[0] = %v1\n%v2 = new int[2]\n%v2[0] = 3\n%v0[1] = %v2\n"},
		{"array literal continues after designator", "(int[]){[3] = a, b}", "%v0",
			"%v0 = new int[]\n%v0[3] = a\n%v0[4] = b\n"},
		{"generic", "_Generic(x + 1, int: abs, default: fabs)", "%v0",
			"%v0 = _Generic(x + 1, int: abs, default: fabs)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(NewTemps())
			result, err := tr.TransformExpr(parseExpr(t, tt.src))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Ref != tt.ref {
				t.Errorf("expected ref %q, got %q", tt.ref, result.Ref)
			}
			if got := gir.String(gir.NewBlock(result.Stmts...)); got != tt.stmts {
				t.Errorf("expected statements:\n%s\ngot:\n%s", tt.stmts, got)
			}
		})
	}
}

func TestTransformExprContinuesTempSequence(t *testing.T) {
	temps := NewTemps()
	tr := New(temps)
	if _, err := tr.TransformExpr(parseExpr(t, "i >= 5")); err != nil {
		t.Fatal(err)
	}
	result, err := tr.TransformExpr(parseExpr(t, "i++"))
	if err != nil {
		t.Fatal(err)
	}
	if result.Ref != "%v1" {
		t.Errorf("expected %%v1, got %s", result.Ref)
	}
	if got := temps.Next(); got != "%v2" {
		t.Errorf("expected the allocator to continue at %%v2, got %s", got)
	}
	if tr.Temps() != temps {
		t.Errorf("expected transformer to share the allocator")
	}
}

func TestTransformExprErrors(t *testing.T) {
	tests := []struct {
		name string
		expr cabs.Expr
		want error
	}{
		{"nil", nil, ErrMalformed},
		{"assign to call", parseExprNoT("f() = 1"), ErrMalformed},
		{"increment literal", cabs.Unary{Op: cabs.OpPostInc, Expr: cabs.Constant{Text: "3"}}, ErrMalformed},
		{"missing operand", cabs.Binary{Op: cabs.OpAdd, Left: cabs.Variable{Name: "a"}}, ErrMalformed},
		{"init list", cabs.InitList{Items: []cabs.Expr{cabs.Constant{Text: "1"}}}, ErrUnsupported},
		{"designator alone", cabs.Designated{Field: "x", Value: cabs.Constant{Text: "1"}}, ErrMalformed},
		{"generic association with side effects", parseExprNoT("_Generic(x, int: f(), default: 0)"), ErrUnsupported},
		{"generic without associations", cabs.Generic{Control: cabs.Variable{Name: "x"}}, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(NewTemps()).TransformExpr(tt.expr)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func parseExprNoT(src string) cabs.Expr {
	stmts, _ := parser.ParseStatements(src + ";")
	return stmts[0].(cabs.Computation).Expr
}

func TestTemps(t *testing.T) {
	temps := NewTemps()
	if got := temps.Next(); got != "%v0" {
		t.Errorf("expected %%v0, got %s", got)
	}
	if got := temps.Next(); got != "%v1" {
		t.Errorf("expected %%v1, got %s", got)
	}
	temps.Reset()
	if got := temps.Next(); got != "%v0" {
		t.Errorf("expected %%v0 after reset, got %s", got)
	}

	for ref, want := range map[string]bool{"%v0": true, "%v12": true, "%v": false, "v0": false, "%vx": false, "a": false} {
		if IsTemp(ref) != want {
			t.Errorf("IsTemp(%q) = %v, want %v", ref, !want, want)
		}
	}
}
