// Package simplexpr normalizes Cabs expressions into GIR references,
// hoisting every side effect and intermediate value into explicit
// statements in C evaluation order.
package simplexpr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/raymyers/ralph-gir/pkg/cabs"
	"github.com/raymyers/ralph-gir/pkg/gir"
)

var (
	// ErrMalformed reports an expression tree that is structurally invalid,
	// such as a missing operand or an assignment to a non-lvalue.
	ErrMalformed = errors.New("malformed expression")
	// ErrUnsupported reports an expression kind the normalizer does not
	// lower.
	ErrUnsupported = errors.New("unsupported expression")
)

// Transformer converts Cabs expressions to references plus the statements
// that must execute first. It draws temporaries from the allocator of the
// block being lowered.
type Transformer struct {
	temps *Temps
}

// New creates a transformer allocating from temps.
func New(temps *Temps) *Transformer {
	return &Transformer{temps: temps}
}

// Temps returns the allocator in use.
func (t *Transformer) Temps() *Temps {
	return t.temps
}

// TransformResult holds the result of normalizing an expression.
type TransformResult struct {
	Ref   string     // identifier, literal or temporary naming the value
	Stmts []gir.Stmt // statements to execute first, in evaluation order
}

// HasSideEffects checks if a Cabs expression has side-effects.
func HasSideEffects(e cabs.Expr) bool {
	switch expr := e.(type) {
	case cabs.Constant, cabs.StringLiteral, cabs.CharLiteral, cabs.Variable:
		return false
	case cabs.Paren:
		return HasSideEffects(expr.Expr)
	case cabs.Unary:
		if expr.Op.IsIncDec() {
			return true
		}
		return HasSideEffects(expr.Expr)
	case cabs.Binary:
		if expr.Op.IsAssign() {
			return true
		}
		return HasSideEffects(expr.Left) || HasSideEffects(expr.Right)
	case cabs.Conditional:
		return HasSideEffects(expr.Cond) || HasSideEffects(expr.Then) || HasSideEffects(expr.Else)
	case cabs.Call:
		// Function calls always have potential side-effects
		return true
	case cabs.Index:
		return HasSideEffects(expr.Array) || HasSideEffects(expr.Index)
	case cabs.Member:
		return HasSideEffects(expr.Expr)
	case cabs.SizeofExpr, cabs.SizeofType, cabs.Offsetof:
		return false // the operand is never evaluated
	case cabs.Cast:
		return HasSideEffects(expr.Expr)
	case cabs.InitList:
		for _, item := range expr.Items {
			if HasSideEffects(item) {
				return true
			}
		}
	case cabs.Designated:
		return HasSideEffects(expr.Value) || expr.Index != nil && HasSideEffects(expr.Index)
	case cabs.CompoundLiteral:
		return HasSideEffects(expr.Init)
	case cabs.Generic:
		for _, e := range expr.Exprs {
			if HasSideEffects(e) {
				return true
			}
		}
	}
	return false
}

// TransformExpr normalizes e.
func (t *Transformer) TransformExpr(e cabs.Expr) (TransformResult, error) {
	var stmts []gir.Stmt
	ref, err := t.expr(e, &stmts)
	if err != nil {
		return TransformResult{}, err
	}
	return TransformResult{Ref: ref, Stmts: stmts}, nil
}

// Literal returns the reference spelling of a literal or identifier, and
// false for any other expression.
func Literal(e cabs.Expr) (string, bool) {
	switch expr := e.(type) {
	case cabs.Constant:
		return expr.Text, true
	case cabs.StringLiteral:
		return `"` + expr.Value + `"`, true
	case cabs.CharLiteral:
		return "'" + expr.Value + "'", true
	case cabs.Variable:
		return expr.Name, true
	}
	return "", false
}

func stripParens(e cabs.Expr) cabs.Expr {
	for {
		p, ok := e.(cabs.Paren)
		if !ok {
			return e
		}
		e = p.Expr
	}
}

func (t *Transformer) expr(e cabs.Expr, out *[]gir.Stmt) (string, error) {
	if e == nil {
		return "", fmt.Errorf("%w: missing operand", ErrMalformed)
	}
	if ref, ok := Literal(e); ok {
		return ref, nil
	}

	switch expr := e.(type) {
	case cabs.Paren:
		return t.expr(expr.Expr, out)
	case cabs.Unary:
		return t.transformUnary(expr, out)
	case cabs.Binary:
		switch {
		case expr.Op == cabs.OpComma:
			return t.transformComma(expr, out)
		case expr.Op.IsAssign():
			return t.transformAssign(expr, out)
		case expr.Op == cabs.OpAnd || expr.Op == cabs.OpOr:
			return t.transformLogical(expr, out)
		}
		left, err := t.expr(expr.Left, out)
		if err != nil {
			return "", err
		}
		right, err := t.expr(expr.Right, out)
		if err != nil {
			return "", err
		}
		tmp := t.temps.Next()
		*out = append(*out, &gir.AssignStmt{Target: tmp, Operator: expr.Op.String(), Operand: left, Operand2: right})
		return tmp, nil
	case cabs.Conditional:
		return t.transformConditional(expr, out)
	case cabs.Call:
		return t.transformCall(expr, out)
	case cabs.Index:
		array, index, err := t.indexParts(expr, out)
		if err != nil {
			return "", err
		}
		tmp := t.temps.Next()
		*out = append(*out, &gir.ArrayRead{Target: tmp, Array: array, Index: index})
		return tmp, nil
	case cabs.Member:
		recv, err := t.expr(expr.Expr, out)
		if err != nil {
			return "", err
		}
		tmp := t.temps.Next()
		*out = append(*out, &gir.FieldRead{Target: tmp, ReceiverObject: recv, Field: expr.Name})
		return tmp, nil
	case cabs.Cast:
		src, err := t.expr(expr.Expr, out)
		if err != nil {
			return "", err
		}
		tmp := t.temps.Next()
		*out = append(*out, &gir.TypeCast{Target: tmp, DataType: expr.TypeName, Source: src})
		return tmp, nil
	case cabs.SizeofExpr:
		// The operand is named by its source text so none of its side
		// effects are emitted.
		tmp := t.temps.Next()
		*out = append(*out, &gir.AssignStmt{Target: tmp, Operator: "sizeof", Operand: cabs.ExprString(stripParens(expr.Expr))})
		return tmp, nil
	case cabs.SizeofType:
		tmp := t.temps.Next()
		*out = append(*out, &gir.AssignStmt{Target: tmp, Operator: "sizeof", Operand: expr.TypeName})
		return tmp, nil
	case cabs.Offsetof:
		tmp := t.temps.Next()
		*out = append(*out, &gir.FieldAddr{Target: tmp, DataType: expr.TypeName, Name: expr.Member})
		return tmp, nil
	case cabs.CompoundLiteral:
		return t.transformInitList(expr.TypeName, expr.Init, out)
	case cabs.Generic:
		return t.transformGeneric(expr, out)
	case cabs.InitList:
		return "", fmt.Errorf("%w: initializer list outside a declaration", ErrUnsupported)
	case cabs.Designated:
		return "", fmt.Errorf("%w: designator outside an initializer list", ErrMalformed)
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupported, e)
}

func (t *Transformer) transformUnary(expr cabs.Unary, out *[]gir.Stmt) (string, error) {
	switch expr.Op {
	case cabs.OpPreInc, cabs.OpPreDec, cabs.OpPostInc, cabs.OpPostDec:
		return t.transformIncDec(expr, out)
	case cabs.OpAddrOf:
		return t.transformAddrOf(expr.Expr, out)
	case cabs.OpDeref:
		addr, err := t.expr(expr.Expr, out)
		if err != nil {
			return "", err
		}
		tmp := t.temps.Next()
		*out = append(*out, &gir.MemRead{Target: tmp, Address: addr})
		return tmp, nil
	}
	operand, err := t.expr(expr.Expr, out)
	if err != nil {
		return "", err
	}
	tmp := t.temps.Next()
	*out = append(*out, &gir.AssignStmt{Target: tmp, Operator: expr.Op.String(), Operand: operand})
	return tmp, nil
}

// transformIncDec captures the old value and then writes the updated one.
// Postfix forms yield the captured value, prefix forms the updated one.
func (t *Transformer) transformIncDec(expr cabs.Unary, out *[]gir.Stmt) (string, error) {
	op := "+"
	if expr.Op == cabs.OpPreDec || expr.Op == cabs.OpPostDec {
		op = "-"
	}
	post := expr.Op == cabs.OpPostInc || expr.Op == cabs.OpPostDec

	switch target := stripParens(expr.Expr).(type) {
	case cabs.Variable:
		tmp := t.temps.Next()
		*out = append(*out,
			&gir.AssignStmt{Target: tmp, Operand: target.Name},
			&gir.AssignStmt{Target: target.Name, Operator: op, Operand: target.Name, Operand2: "1"})
		if post {
			return tmp, nil
		}
		return target.Name, nil
	}

	read, write, err := t.location(expr.Expr, out)
	if err != nil {
		return "", err
	}
	old := read()
	updated := t.temps.Next()
	*out = append(*out, &gir.AssignStmt{Target: updated, Operator: op, Operand: old, Operand2: "1"})
	write(updated)
	if post {
		return old, nil
	}
	return updated, nil
}

// location normalizes the sub-expressions of a memory lvalue (array
// element, field or dereference) and returns functions emitting a read of
// the location into a fresh temporary and a write of a reference to it.
func (t *Transformer) location(e cabs.Expr, out *[]gir.Stmt) (read func() string, write func(src string), err error) {
	switch target := stripParens(e).(type) {
	case cabs.Index:
		array, index, err := t.indexParts(target, out)
		if err != nil {
			return nil, nil, err
		}
		read = func() string {
			tmp := t.temps.Next()
			*out = append(*out, &gir.ArrayRead{Target: tmp, Array: array, Index: index})
			return tmp
		}
		write = func(src string) {
			*out = append(*out, &gir.ArrayWrite{Array: array, Index: index, Source: src})
		}
		return read, write, nil
	case cabs.Member:
		recv, err := t.expr(target.Expr, out)
		if err != nil {
			return nil, nil, err
		}
		read = func() string {
			tmp := t.temps.Next()
			*out = append(*out, &gir.FieldRead{Target: tmp, ReceiverObject: recv, Field: target.Name})
			return tmp
		}
		write = func(src string) {
			*out = append(*out, &gir.FieldWrite{ReceiverObject: recv, Field: target.Name, Source: src})
		}
		return read, write, nil
	case cabs.Unary:
		if target.Op != cabs.OpDeref {
			break
		}
		addr, err := t.expr(target.Expr, out)
		if err != nil {
			return nil, nil, err
		}
		read = func() string {
			tmp := t.temps.Next()
			*out = append(*out, &gir.MemRead{Target: tmp, Address: addr})
			return tmp
		}
		write = func(src string) {
			*out = append(*out, &gir.MemWrite{Address: addr, Source: src})
		}
		return read, write, nil
	}
	return nil, nil, fmt.Errorf("%w: %s is not assignable", ErrMalformed, cabs.ExprString(e))
}

func (t *Transformer) indexParts(expr cabs.Index, out *[]gir.Stmt) (string, string, error) {
	array, err := t.expr(expr.Array, out)
	if err != nil {
		return "", "", err
	}
	index, err := t.expr(expr.Index, out)
	if err != nil {
		return "", "", err
	}
	return array, index, nil
}

func (t *Transformer) transformAddrOf(operand cabs.Expr, out *[]gir.Stmt) (string, error) {
	switch target := stripParens(operand).(type) {
	case cabs.Unary:
		if target.Op == cabs.OpDeref {
			// &*p is p
			return t.expr(target.Expr, out)
		}
	case cabs.Index:
		// &a[i] is a + i
		array, index, err := t.indexParts(target, out)
		if err != nil {
			return "", err
		}
		tmp := t.temps.Next()
		*out = append(*out, &gir.AssignStmt{Target: tmp, Operator: "+", Operand: array, Operand2: index})
		return tmp, nil
	case cabs.Member:
		recv, err := t.expr(target.Expr, out)
		if err != nil {
			return "", err
		}
		sep := "."
		if target.IsArrow {
			sep = "->"
		}
		tmp := t.temps.Next()
		*out = append(*out, &gir.AddrOf{Target: tmp, Source: recv + sep + target.Name})
		return tmp, nil
	}
	src, err := t.expr(operand, out)
	if err != nil {
		return "", err
	}
	tmp := t.temps.Next()
	*out = append(*out, &gir.AddrOf{Target: tmp, Source: src})
	return tmp, nil
}

// transformComma evaluates the left operand for its side effects only.
func (t *Transformer) transformComma(expr cabs.Binary, out *[]gir.Stmt) (string, error) {
	if _, err := t.expr(expr.Left, out); err != nil {
		return "", err
	}
	return t.expr(expr.Right, out)
}

// transformAssign evaluates the right operand first, then the location.
// Assignments to a variable yield the variable; memory writes yield the
// stored reference.
func (t *Transformer) transformAssign(expr cabs.Binary, out *[]gir.Stmt) (string, error) {
	src, err := t.expr(expr.Right, out)
	if err != nil {
		return "", err
	}
	arith, compound := expr.Op.ArithOf()

	if v, ok := stripParens(expr.Left).(cabs.Variable); ok {
		if compound {
			*out = append(*out, &gir.AssignStmt{Target: v.Name, Operator: arith.String(), Operand: v.Name, Operand2: src})
		} else {
			*out = append(*out, &gir.AssignStmt{Target: v.Name, Operand: src})
		}
		return v.Name, nil
	}

	read, write, err := t.location(expr.Left, out)
	if err != nil {
		return "", err
	}
	if !compound {
		write(src)
		return src, nil
	}
	old := read()
	updated := t.temps.Next()
	*out = append(*out, &gir.AssignStmt{Target: updated, Operator: arith.String(), Operand: old, Operand2: src})
	write(updated)
	return updated, nil
}

// transformLogical lowers && and ||. A right operand without side effects
// is evaluated eagerly; otherwise it is guarded by an if_stmt so its side
// effects only run when C would evaluate it. Guarded statements share the
// enclosing temporary sequence.
func (t *Transformer) transformLogical(expr cabs.Binary, out *[]gir.Stmt) (string, error) {
	op := expr.Op.String()
	left, err := t.expr(expr.Left, out)
	if err != nil {
		return "", err
	}

	if !HasSideEffects(expr.Right) {
		right, err := t.expr(expr.Right, out)
		if err != nil {
			return "", err
		}
		tmp := t.temps.Next()
		*out = append(*out, &gir.AssignStmt{Target: tmp, Operator: op, Operand: left, Operand2: right})
		return tmp, nil
	}

	result := t.temps.Next()
	*out = append(*out, &gir.AssignStmt{Target: result, Operand: left})
	guard := result
	if expr.Op == cabs.OpOr {
		guard = t.temps.Next()
		*out = append(*out, &gir.AssignStmt{Target: guard, Operator: "!", Operand: result})
	}

	var then []gir.Stmt
	right, err := t.expr(expr.Right, &then)
	if err != nil {
		return "", err
	}
	then = append(then, &gir.AssignStmt{Target: result, Operator: op, Operand: result, Operand2: right})
	*out = append(*out, &gir.IfStmt{Condition: guard, Then: gir.NewBlock(then...)})
	return result, nil
}

// transformConditional lowers c ? a : b to an if_stmt whose branches assign
// a shared result temporary.
func (t *Transformer) transformConditional(expr cabs.Conditional, out *[]gir.Stmt) (string, error) {
	cond, err := t.expr(expr.Cond, out)
	if err != nil {
		return "", err
	}
	result := t.temps.Next()

	var then, els []gir.Stmt
	thenRef, err := t.expr(expr.Then, &then)
	if err != nil {
		return "", err
	}
	then = append(then, &gir.AssignStmt{Target: result, Operand: thenRef})

	elseRef, err := t.expr(expr.Else, &els)
	if err != nil {
		return "", err
	}
	els = append(els, &gir.AssignStmt{Target: result, Operand: elseRef})

	*out = append(*out, &gir.IfStmt{Condition: cond, Then: gir.NewBlock(then...), Else: gir.NewBlock(els...)})
	return result, nil
}

// transformCall evaluates the callee, then the arguments left to right.
// Calls are always emitted, even when the result is unused.
func (t *Transformer) transformCall(expr cabs.Call, out *[]gir.Stmt) (string, error) {
	name, err := t.callee(expr.Func, out)
	if err != nil {
		return "", err
	}
	args := make([]string, 0, len(expr.Args))
	for _, arg := range expr.Args {
		ref, err := t.expr(arg, out)
		if err != nil {
			return "", err
		}
		args = append(args, ref)
	}
	tmp := t.temps.Next()
	*out = append(*out, &gir.CallStmt{Target: tmp, Name: name, Args: args})
	return tmp, nil
}

// callee names the called function; (*fp)(x) calls fp.
func (t *Transformer) callee(fn cabs.Expr, out *[]gir.Stmt) (string, error) {
	fn = stripParens(fn)
	if u, ok := fn.(cabs.Unary); ok && u.Op == cabs.OpDeref {
		if v, ok := stripParens(u.Expr).(cabs.Variable); ok {
			return v.Name, nil
		}
	}
	return t.expr(fn, out)
}

// transformInitList allocates an object of dataType and writes each item
// into it: array types get array_write by index, anything else
// field_write by position or designator. Nested lists become nested
// objects.
func (t *Transformer) transformInitList(dataType string, list cabs.InitList, out *[]gir.Stmt) (string, error) {
	tmp := t.temps.Next()
	elem, isArray := elementType(dataType)
	if isArray {
		*out = append(*out, &gir.NewArray{Target: tmp, DataType: dataType})
	} else {
		*out = append(*out, &gir.NewStruct{Target: tmp, DataType: dataType})
	}

	write := func(slot, src string) {
		if isArray {
			*out = append(*out, &gir.ArrayWrite{Array: tmp, Index: slot, Source: src})
		} else {
			*out = append(*out, &gir.FieldWrite{ReceiverObject: tmp, Field: slot, Source: src})
		}
	}
	value := func(e cabs.Expr) (string, error) {
		if sub, ok := e.(cabs.InitList); ok {
			// member types of a struct are not known here
			subType := elem
			if !isArray {
				subType = ""
			}
			return t.transformInitList(subType, sub, out)
		}
		return t.expr(e, out)
	}

	next := 0
	for _, item := range list.Items {
		d, ok := item.(cabs.Designated)
		if !ok {
			src, err := value(item)
			if err != nil {
				return "", err
			}
			write(strconv.Itoa(next), src)
			next++
			continue
		}

		if d.Index == nil {
			src, err := value(d.Value)
			if err != nil {
				return "", err
			}
			*out = append(*out, &gir.FieldWrite{ReceiverObject: tmp, Field: d.Field, Source: src})
			continue
		}
		index, err := t.expr(d.Index, out)
		if err != nil {
			return "", err
		}
		src, err := value(d.Value)
		if err != nil {
			return "", err
		}
		*out = append(*out, &gir.ArrayWrite{Array: tmp, Index: index, Source: src})
		// positional items continue after a constant index
		if n, err := strconv.Atoi(index); err == nil {
			next = n + 1
		}
	}
	return tmp, nil
}

// elementType strips the outermost array dimension, so "int[2][3]" has
// elements of type "int[3]".
func elementType(dataType string) (string, bool) {
	open := strings.IndexByte(dataType, '[')
	if open < 0 {
		return "", false
	}
	end := strings.IndexByte(dataType[open:], ']')
	if end < 0 {
		return "", false
	}
	return dataType[:open] + dataType[open+end+1:], true
}

// transformGeneric lowers _Generic to a switch_type_stmt. The controlling
// expression is only named by its source text since C never evaluates it.
// Every association is normalized ahead of the selection, which is only
// sound when none of them has side effects.
func (t *Transformer) transformGeneric(expr cabs.Generic, out *[]gir.Stmt) (string, error) {
	if expr.Control == nil || len(expr.Types) == 0 || len(expr.Types) != len(expr.Exprs) {
		return "", fmt.Errorf("%w: _Generic needs a control expression and associations", ErrMalformed)
	}
	refs := make([]string, len(expr.Exprs))
	for i, e := range expr.Exprs {
		if HasSideEffects(e) {
			return "", fmt.Errorf("%w: _Generic association %s has side effects", ErrUnsupported, cabs.ExprString(e))
		}
		ref, err := t.expr(e, out)
		if err != nil {
			return "", err
		}
		refs[i] = ref
	}
	tmp := t.temps.Next()
	*out = append(*out, &gir.SwitchType{
		Target:    tmp,
		Condition: cabs.ExprString(stripParens(expr.Control)),
		TypeList:  append([]string(nil), expr.Types...),
		ExprList:  refs,
	})
	return tmp, nil
}
