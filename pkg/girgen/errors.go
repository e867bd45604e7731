package girgen

import (
	"errors"
	"fmt"

	"github.com/raymyers/ralph-gir/pkg/cabs"
	"github.com/raymyers/ralph-gir/pkg/simplexpr"
)

var (
	// ErrMalformedAST reports a node missing a field its kind requires.
	ErrMalformedAST = errors.New("malformed AST")
	// ErrUnsupported reports a construct the lowerer does not handle.
	ErrUnsupported = errors.New("unsupported construct")
)

// Error is a lowering failure at a source position. Err is ErrMalformedAST
// or ErrUnsupported.
type Error struct {
	Pos  cabs.Pos
	Func string // empty for bare statement lists
	Err  error
	Msg  string
}

func (e *Error) Error() string {
	s := ""
	if e.Func != "" {
		s = "in function " + e.Func + ": "
	}
	if e.Pos.IsValid() {
		s += e.Pos.String() + ": "
	}
	return s + e.Err.Error() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func (l *lowerer) malformed(pos cabs.Pos, format string, args ...any) error {
	return &Error{Pos: pos, Func: l.fn, Err: ErrMalformedAST, Msg: fmt.Sprintf(format, args...)}
}

func (l *lowerer) unsupported(pos cabs.Pos, format string, args ...any) error {
	return &Error{Pos: pos, Func: l.fn, Err: ErrUnsupported, Msg: fmt.Sprintf(format, args...)}
}

// exprError classifies a normalizer failure.
func (l *lowerer) exprError(pos cabs.Pos, err error) error {
	kind := ErrMalformedAST
	if errors.Is(err, simplexpr.ErrUnsupported) {
		kind = ErrUnsupported
	}
	return &Error{Pos: pos, Func: l.fn, Err: kind, Msg: err.Error()}
}
