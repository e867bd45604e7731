package linearize

import (
	"fmt"

	"github.com/raymyers/ralph-gir/pkg/gir"
	"github.com/raymyers/ralph-gir/pkg/simplexpr"
)

// InvariantError describes the first structural property a stream
// violates.
type InvariantError struct {
	StmtID int
	Msg    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("stmt %d: %s", e.StmtID, e.Msg)
}

func violation(id int, format string, args ...any) *InvariantError {
	return &InvariantError{StmtID: id, Msg: fmt.Sprintf(format, args...)}
}

// defining lists the operations whose target field defines a value.
var defining = map[string]bool{
	gir.KindAssign:     true,
	gir.KindCall:       true,
	gir.KindMemRead:    true,
	gir.KindAddrOf:     true,
	gir.KindArrayRead:  true,
	gir.KindFieldRead:  true,
	gir.KindTypeCast:   true,
	gir.KindFieldAddr:  true,
	gir.KindNewArray:   true,
	gir.KindNewStruct:  true,
	gir.KindSwitchType: true,
}

// Validate checks the stream's structural invariants:
//   - statement IDs run 1, 2, 3, ... in emission order;
//   - every block_start has exactly one matching block_end, markers nest,
//     and both markers name the statement whose body field points at them;
//   - a temporary read in a block is defined in that block, an enclosing
//     block, or a body of a statement in that block or an enclosing one.
func (s *Stream) Validate() error {
	if err := s.validateStructure(); err != nil {
		return err
	}
	return s.validateTemps()
}

func (s *Stream) validateStructure() error {
	want := 1
	type frame struct{ id, parent int }
	var open []frame
	owners := make(map[int]int) // block_start ID -> statement whose body names it

	for _, r := range s.Records {
		switch r.Operation {
		case OpBlockEnd:
			if len(open) == 0 {
				return violation(r.StmtID, "block_end without block_start")
			}
			top := open[len(open)-1]
			if top.id != r.StmtID {
				return violation(r.StmtID, "block_end closes block %d", top.id)
			}
			if top.parent != r.ParentStmtID {
				return violation(r.StmtID, "block_end parent %d, block_start parent %d", r.ParentStmtID, top.parent)
			}
			open = open[:len(open)-1]
			continue
		}

		if r.StmtID != want {
			return violation(r.StmtID, "expected stmt_id %d", want)
		}
		want++

		if r.Operation == OpBlockStart {
			owner, ok := owners[r.StmtID]
			if !ok {
				return violation(r.StmtID, "block_start not referenced by any body field")
			}
			if owner != r.ParentStmtID {
				return violation(r.StmtID, "parent_stmt_id %d, owned by stmt %d", r.ParentStmtID, owner)
			}
			open = append(open, frame{r.StmtID, r.ParentStmtID})
			continue
		}
		for _, b := range r.Bodies() {
			if b <= r.StmtID {
				return violation(r.StmtID, "body %d precedes its owner", b)
			}
			owners[b] = r.StmtID
		}
	}
	if len(open) > 0 {
		return violation(open[len(open)-1].id, "block_start without block_end")
	}
	for b, owner := range owners {
		if i, ok := s.start[b]; !ok || s.Records[i].Operation != OpBlockStart {
			return violation(owner, "body field points at %d, which is not a block_start", b)
		}
	}
	return nil
}

// validateTemps runs after validateStructure, so scopes are well formed.
func (s *Stream) validateTemps() error {
	// block ID -> temporaries visible in it
	defs := make(map[int]map[string]bool)
	for _, r := range s.Records {
		if !defining[r.Operation] {
			continue
		}
		t := r.StringField("target")
		if !simplexpr.IsTemp(t) {
			continue
		}
		// A body's result is also visible to its owner's block, as with a
		// for condition or a ?: result.
		b := s.scope[r.StmtID]
		for _, in := range []int{b, s.scope[b]} {
			if defs[in] == nil {
				defs[in] = make(map[string]bool)
			}
			defs[in][t] = true
			if b == 0 {
				break
			}
		}
	}

	visible := func(id int, temp string) bool {
		for b := s.scope[id]; ; b = s.scope[b] {
			if defs[b][temp] {
				return true
			}
			if b == 0 {
				return false
			}
		}
	}

	for _, r := range s.Records {
		if r.IsMarker() {
			continue
		}
		for _, ref := range references(r) {
			if simplexpr.IsTemp(ref) && !visible(r.StmtID, ref) {
				return violation(r.StmtID, "%s is not defined in an enclosing block", ref)
			}
		}
	}
	return nil
}

// references returns the operand values r reads.
func references(r Record) []string {
	var refs []string
	for _, f := range r.Fields {
		if f.Key == "target" && defining[r.Operation] {
			continue
		}
		switch v := f.Value.(type) {
		case string:
			refs = append(refs, v)
		case []string:
			refs = append(refs, v...)
		}
	}
	return refs
}
