// Package girgen lowers Cabs statements into the normalized GIR statement
// tree. Every side-effecting subexpression is hoisted into a block-local
// temporary, and each body gets its own temporary numbering.
package girgen

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/raymyers/ralph-gir/pkg/cabs"
	"github.com/raymyers/ralph-gir/pkg/gir"
)

// Options configures LowerProgram.
type Options struct {
	// Parallelism bounds how many functions are lowered at once. Zero or
	// negative means no limit.
	Parallelism int
}

// Function is one lowered function definition.
type Function struct {
	Name string
	Pos  cabs.Pos
	Decl *gir.MethodDecl
}

// Tree returns the top-level block holding the method_decl, ready for
// linearization.
func (f Function) Tree() *gir.Block {
	return gir.NewBlock(f.Decl)
}

// LowerBody lowers a bare statement list, such as a function body, into a
// block.
func LowerBody(stmts []cabs.Stmt) (*gir.Block, error) {
	l := &lowerer{}
	return l.block(stmts)
}

// LowerFunction lowers a function definition into a method_decl whose
// parameters block holds one parameter_decl per parameter.
func LowerFunction(fn *cabs.FunDef) (*gir.MethodDecl, error) {
	l := &lowerer{fn: fn.Name}
	if fn.Body == nil {
		return nil, l.malformed(fn.Pos, "function without body")
	}

	params := gir.NewBlock()
	for _, p := range fn.Params {
		params.Append(&gir.ParameterDecl{Attrs: p.Attrs, DataType: p.TypeSpec, Name: p.Name})
	}
	body, err := l.block(fn.Body.Items)
	if err != nil {
		return nil, err
	}

	attrs := fn.Attrs
	if fn.Variadic {
		attrs = append(append([]string(nil), fn.Attrs...), "variadic")
	}
	return &gir.MethodDecl{
		Attrs:      attrs,
		DataType:   fn.ReturnType,
		Name:       fn.Name,
		Parameters: params,
		Body:       body,
	}, nil
}

// LowerProgram lowers every function definition in prog. Functions are
// independent, so they are lowered concurrently; the result keeps source
// order. The first failure cancels the rest and no functions are returned.
func LowerProgram(ctx context.Context, prog *cabs.Program, opts Options) ([]Function, error) {
	fns := prog.Functions()
	out := make([]Function, len(fns))

	g, ctx := errgroup.WithContext(ctx)
	if opts.Parallelism > 0 {
		g.SetLimit(opts.Parallelism)
	}
	for i, fn := range fns {
		i, fn := i, fn
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			decl, err := LowerFunction(fn)
			if err != nil {
				return err
			}
			out[i] = Function{Name: fn.Name, Pos: fn.Pos, Decl: decl}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
