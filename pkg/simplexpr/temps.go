package simplexpr

import (
	"strconv"
	"strings"
)

// TempPrefix starts every synthetic temporary name.
const TempPrefix = "%v"

// Temps allocates block-local temporaries %v0, %v1, ... A Temps serves
// one block at a time; nested blocks get their own.
type Temps struct {
	next int
}

// NewTemps returns an allocator starting at %v0.
func NewTemps() *Temps {
	return &Temps{}
}

// Next returns a fresh temporary name.
func (t *Temps) Next() string {
	name := TempPrefix + strconv.Itoa(t.next)
	t.next++
	return name
}

// Reset restarts numbering at %v0 so the allocator can serve another
// block.
func (t *Temps) Reset() {
	t.next = 0
}

// IsTemp reports whether ref names a synthetic temporary.
func IsTemp(ref string) bool {
	if !strings.HasPrefix(ref, TempPrefix) || len(ref) == len(TempPrefix) {
		return false
	}
	_, err := strconv.Atoi(ref[len(TempPrefix):])
	return err == nil
}
