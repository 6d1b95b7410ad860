package facts

import (
	"sync"

	"github.com/chazu/optfacts/classfile"
	"github.com/willf/bitset"
)

// FieldTable records which fields are ever read or written. It is shared
// by every method analysed in a pass and is safe for concurrent use.
type FieldTable struct {
	mu      sync.Mutex
	read    *bitset.BitSet
	written *bitset.BitSet
}

// NewFieldTable creates an empty table.
func NewFieldTable() *FieldTable {
	return &FieldTable{
		read:    bitset.New(0),
		written: bitset.New(0),
	}
}

func (t *FieldTable) mark(set *bitset.BitSet, id classfile.FieldID) bool {
	if id < 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if set.Test(uint(id)) {
		return false
	}
	set.Set(uint(id))
	return true
}

func (t *FieldTable) test(set *bitset.BitSet, id classfile.FieldID) bool {
	if id < 0 {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return set.Test(uint(id))
}

// MarkRead marks the field read, reporting whether the mark is new.
func (t *FieldTable) MarkRead(id classfile.FieldID) bool { return t.mark(t.read, id) }

// MarkWritten marks the field written, reporting whether the mark is new.
func (t *FieldTable) MarkWritten(id classfile.FieldID) bool { return t.mark(t.written, id) }

// IsRead reports whether the field may be read. Unknown handles are
// assumed read.
func (t *FieldTable) IsRead(id classfile.FieldID) bool { return t.test(t.read, id) }

// IsWritten reports whether the field may be written. Unknown handles are
// assumed written.
func (t *FieldTable) IsWritten(id classfile.FieldID) bool { return t.test(t.written, id) }

// Counts returns the number of fields marked read and written.
func (t *FieldTable) Counts() (read, written uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.read.Count(), t.written.Count()
}
