// Package linearize flattens a GIR statement tree into an ordered stream
// of records. Nesting is carried by block_start/block_end markers whose
// parent_stmt_id names the owning statement, and every body field of the
// owner is rewritten to the ID of its block_start.
// The package also answers scope and label queries over a stream.
package linearize

import (
	"errors"
	"fmt"

	"github.com/raymyers/ralph-gir/pkg/gir"
)

// ErrMalformedTree reports a nil statement or a missing required body.
var ErrMalformedTree = errors.New("malformed statement tree")

// optionalBodies lists the body fields that may be absent, keyed by
// operation then field. if_stmt drops else_body from its fields instead.
var optionalBodies = map[string]map[string]bool{
	gir.KindFor:     {"init_body": true},
	gir.KindTry:     {"catch_body": true, "final_body": true},
	gir.KindCase:    {"body": true},
	gir.KindDefault: {"body": true},
}

// Linearize flattens tree in pre-order. IDs start at 1 and increase by one
// per statement or block_start; a block_end repeats its block_start's ID.
// The statements of tree itself are emitted without enclosing markers.
func Linearize(tree *gir.Block) (*Stream, error) {
	l := &linearizer{next: 1}
	if tree != nil {
		for _, s := range tree.Stmts {
			if err := l.stmt(s); err != nil {
				return nil, err
			}
		}
	}
	return newStream(l.out), nil
}

// linearizer holds state during linearization
type linearizer struct {
	next int
	out  []Record
}

func (l *linearizer) stmt(s gir.Stmt) error {
	if s == nil {
		return fmt.Errorf("%w: nil statement after stmt %d", ErrMalformedTree, l.next-1)
	}
	id := l.next
	l.next++
	idx := len(l.out)
	l.out = append(l.out, Record{Operation: s.Kind(), StmtID: id})

	src := s.Fields()
	fields := make([]Field, 0, len(src))
	for _, f := range src {
		body, isBody := f.Body()
		if !isBody {
			fields = append(fields, Field{Key: f.Key, Value: f.Value})
			continue
		}
		if body == nil {
			if !optionalBodies[s.Kind()][f.Key] {
				return fmt.Errorf("%w: %s %d has no %s", ErrMalformedTree, s.Kind(), id, f.Key)
			}
			fields = append(fields, Field{Key: f.Key, Value: nil})
			continue
		}
		start, err := l.block(body, id)
		if err != nil {
			return err
		}
		fields = append(fields, Field{Key: f.Key, Value: start})
	}
	l.out[idx].Fields = fields
	return nil
}

// block emits b framed by markers owned by parent and returns the
// block_start ID.
func (l *linearizer) block(b *gir.Block, parent int) (int, error) {
	id := l.next
	l.next++
	l.out = append(l.out, Record{Operation: OpBlockStart, StmtID: id, ParentStmtID: parent})
	for _, s := range b.Stmts {
		if err := l.stmt(s); err != nil {
			return 0, err
		}
	}
	l.out = append(l.out, Record{Operation: OpBlockEnd, StmtID: id, ParentStmtID: parent})
	return id, nil
}
