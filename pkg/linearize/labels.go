// Label and goto queries over the flat stream.
// Jump targets are resolved here, read-only, after linearization.
package linearize

import "github.com/raymyers/ralph-gir/pkg/gir"

// Labels returns the label table: label name to the stmt_id of its
// label_stmt. A duplicated name keeps its first definition.
func (s *Stream) Labels() map[string]int {
	labels := make(map[string]int)
	for _, r := range s.Records {
		if r.Operation != gir.KindLabel {
			continue
		}
		name := r.StringField("name")
		if _, dup := labels[name]; !dup {
			labels[name] = r.StmtID
		}
	}
	return labels
}

// GotoTargets maps each goto_stmt ID to the label_stmt it jumps to. Gotos
// naming an undefined label are left out.
func (s *Stream) GotoTargets() map[int]int {
	labels := s.Labels()
	targets := make(map[int]int)
	for _, r := range s.Records {
		if r.Operation != gir.KindGoto {
			continue
		}
		if lbl, ok := labels[r.StringField("target")]; ok {
			targets[r.StmtID] = lbl
		}
	}
	return targets
}

// UnresolvedGotos returns the IDs of gotos whose label is not defined in
// the stream.
func (s *Stream) UnresolvedGotos() []int {
	labels := s.Labels()
	var out []int
	for _, r := range s.Records {
		if r.Operation == gir.KindGoto {
			if _, ok := labels[r.StringField("target")]; !ok {
				out = append(out, r.StmtID)
			}
		}
	}
	return out
}

// UnusedLabels returns the IDs of labels no goto refers to.
func (s *Stream) UnusedLabels() []int {
	used := make(map[int]bool)
	for _, lbl := range s.GotoTargets() {
		used[lbl] = true
	}
	var out []int
	for _, r := range s.Records {
		if r.Operation == gir.KindLabel && !used[r.StmtID] {
			out = append(out, r.StmtID)
		}
	}
	return out
}

// FinalTargets follows chains of jumps: when the statement after a label
// in the same block is itself a goto, the jump continues to that goto's
// label. Each goto maps to the label where its chain ends. Cycles stop at
// the label that closes the cycle.
func (s *Stream) FinalTargets() map[int]int {
	direct := s.GotoTargets()

	// label -> label it forwards to
	forward := make(map[int]int)
	for i, r := range s.Records {
		if r.Operation != gir.KindLabel || i+1 >= len(s.Records) {
			continue
		}
		next := s.Records[i+1]
		if next.Operation != gir.KindGoto {
			continue
		}
		if to, ok := direct[next.StmtID]; ok {
			forward[r.StmtID] = to
		}
	}

	final := make(map[int]int, len(direct))
	for g, lbl := range direct {
		final[g] = resolveLabel(lbl, forward)
	}
	return final
}

// resolveLabel follows a forwarding chain to its ultimate label
func resolveLabel(lbl int, forward map[int]int) int {
	seen := map[int]bool{lbl: true}
	for {
		next, ok := forward[lbl]
		if !ok || seen[next] {
			return lbl
		}
		seen[next] = true
		lbl = next
	}
}
