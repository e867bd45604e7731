package girgen

import (
	"strconv"

	"github.com/raymyers/ralph-gir/pkg/cabs"
	"github.com/raymyers/ralph-gir/pkg/gir"
	"github.com/raymyers/ralph-gir/pkg/simplexpr"
)

// lowerer carries per-function state. A lowerer is not safe for concurrent
// use; LowerProgram creates one per function.
type lowerer struct {
	fn       string
	switches int                // switch bodies being lowered
	free     []*simplexpr.Temps // allocators of finished blocks
}

// scope is one GIR block under construction. Temporaries restart at %v0 in
// every scope.
type scope struct {
	norm  *simplexpr.Transformer
	stmts []gir.Stmt
}

// newScope starts a block, reusing the allocator of a finished one.
func (l *lowerer) newScope() *scope {
	var temps *simplexpr.Temps
	if n := len(l.free); n > 0 {
		temps, l.free = l.free[n-1], l.free[:n-1]
		temps.Reset()
	} else {
		temps = simplexpr.NewTemps()
	}
	return &scope{norm: simplexpr.New(temps)}
}

// finish builds s's block and returns its allocator to the pool.
func (l *lowerer) finish(s *scope) *gir.Block {
	l.free = append(l.free, s.norm.Temps())
	return s.block()
}

func (s *scope) emit(stmts ...gir.Stmt) {
	s.stmts = append(s.stmts, stmts...)
}

func (s *scope) block() *gir.Block {
	return gir.NewBlock(s.stmts...)
}

// expr normalizes e into s and returns the reference to its value.
func (l *lowerer) expr(s *scope, e cabs.Expr, pos cabs.Pos) (string, error) {
	result, err := s.norm.TransformExpr(e)
	if err != nil {
		return "", l.exprError(pos, err)
	}
	s.emit(result.Stmts...)
	return result.Ref, nil
}

// block lowers items into a fresh scope.
func (l *lowerer) block(items []cabs.Stmt) (*gir.Block, error) {
	s, err := l.scopeOf(items)
	if err != nil {
		return nil, err
	}
	return l.finish(s), nil
}

func (l *lowerer) scopeOf(items []cabs.Stmt) (*scope, error) {
	s := l.newScope()
	for _, item := range items {
		if err := l.stmt(s, item); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// items unwraps a compound statement; any other statement is a one-item
// list.
func items(stmt cabs.Stmt) []cabs.Stmt {
	if b, ok := stmt.(cabs.Block); ok {
		return b.Items
	}
	return []cabs.Stmt{stmt}
}

// body lowers the body of a control statement into its own block.
func (l *lowerer) body(stmt cabs.Stmt, pos cabs.Pos, what string) (*gir.Block, error) {
	if stmt == nil {
		return nil, l.malformed(pos, "%s without body", what)
	}
	return l.block(items(stmt))
}

// stmt lowers one statement, appending its GIR to s.
func (l *lowerer) stmt(s *scope, stmt cabs.Stmt) error {
	switch st := stmt.(type) {
	case nil:
		return l.malformed(cabs.Pos{}, "nil statement")

	case cabs.Empty:
		return nil

	case cabs.Computation:
		if st.Expr == nil {
			return l.malformed(st.Pos, "expression statement without expression")
		}
		_, err := l.expr(s, st.Expr, st.Pos)
		return err

	case cabs.Block:
		// A bare nested block shares its parent's block and temporaries.
		for _, item := range st.Items {
			if err := l.stmt(s, item); err != nil {
				return err
			}
		}
		return nil

	case cabs.DeclStmt:
		for _, d := range st.Decls {
			if err := l.decl(s, d); err != nil {
				return err
			}
		}
		return nil

	case cabs.If:
		return l.ifStmt(s, st)

	case cabs.While:
		return l.while(s, st)

	case cabs.DoWhile:
		return l.doWhile(s, st)

	case cabs.For:
		return l.forStmt(s, st)

	case cabs.Switch:
		return l.switchStmt(s, st)

	case cabs.Case:
		if l.switches > 0 {
			return l.unsupported(st.Pos, "case label nested in a statement of the switch body")
		}
		return l.malformed(st.Pos, "case label outside switch body")

	case cabs.Default:
		if l.switches > 0 {
			return l.unsupported(st.Pos, "default label nested in a statement of the switch body")
		}
		return l.malformed(st.Pos, "default label outside switch body")

	case cabs.Break:
		s.emit(&gir.BreakStmt{})
		return nil

	case cabs.Continue:
		s.emit(&gir.ContinueStmt{})
		return nil

	case cabs.Goto:
		if st.Label == "" {
			return l.malformed(st.Pos, "goto without label")
		}
		s.emit(&gir.GotoStmt{Target: st.Label})
		return nil

	case cabs.Label:
		if st.Name == "" {
			return l.malformed(st.Pos, "label without name")
		}
		s.emit(&gir.LabelStmt{Name: st.Name})
		if st.Stmt == nil {
			return nil
		}
		return l.stmt(s, st.Stmt)

	case cabs.Return:
		if st.Expr == nil {
			s.emit(&gir.ReturnStmt{})
			return nil
		}
		ref, err := l.expr(s, st.Expr, st.Pos)
		if err != nil {
			return err
		}
		s.emit(&gir.ReturnStmt{Target: ref})
		return nil

	case cabs.Try:
		return l.try(s, st)

	default:
		return l.unsupported(stmt.Position(), "statement %T", stmt)
	}
}

func (l *lowerer) decl(s *scope, d cabs.Decl) error {
	if d.Name == "" {
		return l.malformed(d.Pos, "declaration without name")
	}
	dataType := d.TypeSpec
	for _, dim := range d.ArrayDims {
		if dim == nil {
			dataType += "[]"
			continue
		}
		dataType += "[" + cabs.ExprString(dim) + "]"
	}
	s.emit(&gir.VariableDecl{Attrs: d.Attrs, DataType: dataType, Name: d.Name})

	switch init := d.Initializer.(type) {
	case nil:
		return nil
	case cabs.InitList:
		return l.initList(s, d.Name, init, d.Pos)
	default:
		ref, err := l.expr(s, init, d.Pos)
		if err != nil {
			return err
		}
		s.emit(&gir.AssignStmt{Target: d.Name, Operand: ref})
		return nil
	}
}

// initList writes each element of a brace initializer into array. Nested
// lists address their row through an array_read temporary. A .field
// designator writes that field; an [index] designator moves the position.
func (l *lowerer) initList(s *scope, array string, list cabs.InitList, pos cabs.Pos) error {
	next := 0
	for _, item := range list.Items {
		index := strconv.Itoa(next)
		if d, ok := item.(cabs.Designated); ok {
			if d.Index == nil {
				if sub, ok := d.Value.(cabs.InitList); ok {
					member := s.norm.Temps().Next()
					s.emit(&gir.FieldRead{Target: member, ReceiverObject: array, Field: d.Field})
					if err := l.initList(s, member, sub, pos); err != nil {
						return err
					}
					continue
				}
				ref, err := l.expr(s, d.Value, pos)
				if err != nil {
					return err
				}
				s.emit(&gir.FieldWrite{ReceiverObject: array, Field: d.Field, Source: ref})
				continue
			}
			var err error
			if index, err = l.expr(s, d.Index, pos); err != nil {
				return err
			}
			if n, err := strconv.Atoi(index); err == nil {
				next = n
			}
			item = d.Value
		}
		next++

		if sub, ok := item.(cabs.InitList); ok {
			row := s.norm.Temps().Next()
			s.emit(&gir.ArrayRead{Target: row, Array: array, Index: index})
			if err := l.initList(s, row, sub, pos); err != nil {
				return err
			}
			continue
		}
		ref, err := l.expr(s, item, pos)
		if err != nil {
			return err
		}
		s.emit(&gir.ArrayWrite{Array: array, Index: index, Source: ref})
	}
	return nil
}

func (l *lowerer) ifStmt(s *scope, st cabs.If) error {
	if st.Cond == nil {
		return l.malformed(st.Pos, "if without condition")
	}
	cond, err := l.expr(s, st.Cond, st.Pos)
	if err != nil {
		return err
	}
	then, err := l.body(st.Then, st.Pos, "if")
	if err != nil {
		return err
	}
	out := &gir.IfStmt{Condition: cond, Then: then}
	if st.Else != nil {
		if out.Else, err = l.block(items(st.Else)); err != nil {
			return err
		}
	}
	s.emit(out)
	return nil
}

// while evaluates the condition before the loop and again at the end of
// each iteration, so the condition's statements appear in both places.
func (l *lowerer) while(s *scope, st cabs.While) error {
	if st.Cond == nil {
		return l.malformed(st.Pos, "while without condition")
	}
	cond, err := s.norm.TransformExpr(st.Cond)
	if err != nil {
		return l.exprError(st.Pos, err)
	}
	body, err := l.body(st.Body, st.Pos, "while")
	if err != nil {
		return err
	}
	body.Append(cond.Stmts...)
	s.emit(cond.Stmts...)
	s.emit(&gir.WhileStmt{Condition: cond.Ref, Body: body})
	return nil
}

func (l *lowerer) doWhile(s *scope, st cabs.DoWhile) error {
	if st.Cond == nil {
		return l.malformed(st.Pos, "do-while without condition")
	}
	if st.Body == nil {
		return l.malformed(st.Pos, "do-while without body")
	}
	bs, err := l.scopeOf(items(st.Body))
	if err != nil {
		return err
	}
	cond, err := l.expr(bs, st.Cond, st.Pos)
	if err != nil {
		return err
	}
	s.emit(&gir.DoWhileStmt{Condition: cond, Body: l.finish(bs)})
	return nil
}

func (l *lowerer) forStmt(s *scope, st cabs.For) error {
	if st.Cond == nil {
		return l.malformed(st.Pos, "for without condition")
	}
	out := &gir.ForStmt{}
	if st.Init != nil {
		init, err := l.block([]cabs.Stmt{st.Init})
		if err != nil {
			return err
		}
		out.Init = init
	}

	cs := l.newScope()
	cond, err := l.expr(cs, st.Cond, st.Pos)
	if err != nil {
		return err
	}
	out.CondPrebody = l.finish(cs)
	out.Condition = cond

	us := l.newScope()
	if st.Step != nil {
		if _, err := l.expr(us, st.Step, st.Pos); err != nil {
			return err
		}
	}
	out.Update = l.finish(us)

	if out.Body, err = l.body(st.Body, st.Pos, "for"); err != nil {
		return err
	}
	s.emit(out)
	return nil
}

// switchStmt groups the statements of the switch body under the label that
// precedes them. Label expressions are normalized in the enclosing block,
// ahead of the switch_stmt. Statements before the first label stay directly
// in the switch body.
func (l *lowerer) switchStmt(s *scope, st cabs.Switch) error {
	if st.Expr == nil {
		return l.malformed(st.Pos, "switch without condition")
	}
	if st.Body == nil {
		return l.malformed(st.Pos, "switch without body")
	}
	cond, err := l.expr(s, st.Expr, st.Pos)
	if err != nil {
		return err
	}

	g := &caseGrouper{l: l, outer: s, body: l.newScope()}
	l.switches++
	defer func() { l.switches-- }()
	for _, item := range items(st.Body) {
		if err := g.item(item); err != nil {
			return err
		}
	}
	g.close()
	s.emit(&gir.SwitchStmt{Condition: cond, Body: l.finish(g.body)})
	return nil
}

type caseGrouper struct {
	l     *lowerer
	outer *scope // receives label expressions
	body  *scope // the switch body block

	// open label and the scope collecting its statements
	caseStmt    *gir.CaseStmt
	defaultStmt *gir.DefaultStmt
	cur         *scope
	hasStmts    bool
}

func (g *caseGrouper) item(stmt cabs.Stmt) error {
	switch st := stmt.(type) {
	case cabs.Case:
		if st.Expr == nil {
			return g.l.malformed(st.Pos, "case without label expression")
		}
		g.close()
		label, err := g.l.expr(g.outer, st.Expr, st.Pos)
		if err != nil {
			return err
		}
		g.caseStmt = &gir.CaseStmt{Condition: label}
		g.cur = g.l.newScope()
		if st.Stmt == nil {
			return nil
		}
		return g.item(st.Stmt)

	case cabs.Default:
		g.close()
		g.defaultStmt = &gir.DefaultStmt{}
		g.cur = g.l.newScope()
		if st.Stmt == nil {
			return nil
		}
		return g.item(st.Stmt)
	}

	if g.cur == nil {
		return g.l.stmt(g.body, stmt)
	}
	g.hasStmts = true
	return g.l.stmt(g.cur, stmt)
}

// close finishes the open label. A label with no statements of its own
// keeps a nil body.
func (g *caseGrouper) close() {
	var body *gir.Block
	if g.cur != nil {
		body = g.l.finish(g.cur)
		if !g.hasStmts {
			body = nil
		}
	}
	switch {
	case g.caseStmt != nil:
		g.caseStmt.Body = body
		g.body.emit(g.caseStmt)
	case g.defaultStmt != nil:
		g.defaultStmt.Body = body
		g.body.emit(g.defaultStmt)
	}
	g.caseStmt, g.defaultStmt, g.cur, g.hasStmts = nil, nil, nil, false
}

func (l *lowerer) try(s *scope, st cabs.Try) error {
	if st.Body == nil {
		return l.malformed(st.Pos, "__try without body")
	}
	if st.Except == nil && st.Finally == nil {
		return l.malformed(st.Pos, "__try without __except or __finally")
	}
	body, err := l.block(st.Body.Items)
	if err != nil {
		return err
	}
	out := &gir.TryStmt{Body: body}
	if st.Except != nil {
		if st.Filter == nil {
			return l.malformed(st.Pos, "__except without filter")
		}
		if out.ExceptionFilter, err = l.expr(s, st.Filter, st.Pos); err != nil {
			return err
		}
		if out.Catch, err = l.block(st.Except.Items); err != nil {
			return err
		}
	}
	if st.Finally != nil {
		if out.Final, err = l.block(st.Finally.Items); err != nil {
			return err
		}
	}
	s.emit(out)
	return nil
}
