package linearize

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Stream is a flat record list indexed by stmt_id. Queries assume the
// stream passes Validate.
type Stream struct {
	Records []Record

	start map[int]int // stmt_id -> index of its statement or block_start
	end   map[int]int // block_start ID -> index of its block_end
	scope map[int]int // stmt_id -> enclosing block_start ID, 0 at top level
}

// FromRecords indexes records produced elsewhere, for example decoded from
// YAML or loaded from a database.
func FromRecords(records []Record) *Stream {
	return newStream(records)
}

func newStream(records []Record) *Stream {
	s := &Stream{
		Records: records,
		start:   make(map[int]int),
		end:     make(map[int]int),
		scope:   make(map[int]int),
	}
	var open []int
	for i, r := range records {
		if r.Operation == OpBlockEnd {
			s.end[r.StmtID] = i
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
			continue
		}
		if _, dup := s.start[r.StmtID]; !dup {
			s.start[r.StmtID] = i
		}
		if len(open) > 0 {
			s.scope[r.StmtID] = open[len(open)-1]
		}
		if r.Operation == OpBlockStart {
			open = append(open, r.StmtID)
		}
	}
	return s
}

// Len returns the number of records, markers included.
func (s *Stream) Len() int { return len(s.Records) }

// Get returns the statement or block_start record with the given ID.
func (s *Stream) Get(id int) (Record, bool) {
	i, ok := s.start[id]
	if !ok {
		return Record{}, false
	}
	return s.Records[i], true
}

// Scope returns the ID of the block_start enclosing id, or 0 for a
// top-level statement.
func (s *Stream) Scope(id int) int {
	return s.scope[id]
}

// Enclosing returns the statement that owns the block containing id.
func (s *Stream) Enclosing(id int) (Record, bool) {
	block, ok := s.Get(s.scope[id])
	if !ok {
		return Record{}, false
	}
	return s.Get(block.ParentStmtID)
}

// Ancestors returns the owning statements of every block around id,
// innermost first.
func (s *Stream) Ancestors(id int) []Record {
	var out []Record
	for {
		owner, ok := s.Enclosing(id)
		if !ok {
			return out
		}
		out = append(out, owner)
		id = owner.StmtID
	}
}

// BlockRecords returns the records strictly between the block_start with
// the given ID and its block_end, nested markers included.
func (s *Stream) BlockRecords(startID int) ([]Record, error) {
	i, ok := s.start[startID]
	if !ok || s.Records[i].Operation != OpBlockStart {
		return nil, fmt.Errorf("no block_start with id %d", startID)
	}
	j, ok := s.end[startID]
	if !ok || j < i {
		return nil, fmt.Errorf("block %d is not closed", startID)
	}
	return s.Records[i+1 : j], nil
}

// Children returns the statements directly inside the block_start with
// the given ID, skipping the contents of nested blocks.
func (s *Stream) Children(startID int) ([]Record, error) {
	inner, err := s.BlockRecords(startID)
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, r := range inner {
		if r.Operation != OpBlockStart && r.Operation != OpBlockEnd && s.scope[r.StmtID] == startID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Depth returns how many blocks enclose id.
func (s *Stream) Depth(id int) int {
	d := 0
	for b := s.scope[id]; b != 0; b = s.scope[b] {
		d++
	}
	return d
}

// WriteText writes one line per record, indenting block contents by two
// spaces per level.
func (s *Stream) WriteText(w io.Writer) error {
	depth := 0
	for _, r := range s.Records {
		if r.Operation == OpBlockEnd && depth > 0 {
			depth--
		}
		if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), r.Text()); err != nil {
			return err
		}
		if r.Operation == OpBlockStart {
			depth++
		}
	}
	return nil
}

// Text renders the stream with WriteText.
func (s *Stream) Text() string {
	var sb strings.Builder
	_ = s.WriteText(&sb)
	return sb.String()
}

// WriteYAML writes the stream as a YAML sequence of records.
func (s *Stream) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	records := s.Records
	if records == nil {
		records = []Record{}
	}
	if err := enc.Encode(records); err != nil {
		return err
	}
	return enc.Close()
}

// ReadYAML decodes a stream written by WriteYAML.
func ReadYAML(r io.Reader) (*Stream, error) {
	var records []Record
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		return nil, err
	}
	return newStream(records), nil
}

// Counts tallies records per operation.
func (s *Stream) Counts() map[string]int {
	counts := make(map[string]int)
	for _, r := range s.Records {
		counts[r.Operation]++
	}
	return counts
}
