package facts

import (
	"sort"
	"sync"

	"github.com/chazu/optfacts/classfile"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("optfacts.facts")

// Table is the side table attaching fact records to pool members. Records
// are created on first use and never removed.
//
// The map itself is guarded. Individual MethodFacts are not: during a pass
// each method record is written only by the goroutine analysing that method.
type Table struct {
	mu      sync.RWMutex
	methods map[classfile.MethodID]*MethodFacts
	classes map[classfile.ClassID]*ClassFacts
	fields  *FieldTable
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		methods: make(map[classfile.MethodID]*MethodFacts),
		classes: make(map[classfile.ClassID]*ClassFacts),
		fields:  NewFieldTable(),
	}
}

// Method returns the record for id, creating a conservative one if the
// method has never been seen.
func (t *Table) Method(id classfile.MethodID) *MethodFacts {
	t.mu.RLock()
	f, ok := t.methods[id]
	t.mu.RUnlock()
	if ok {
		return f
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.methods[id]; ok {
		return f
	}
	f = NewMethodFacts(Conservative)
	t.methods[id] = f
	return f
}

// RegisterProgramMethod marks id as analysable program code. A record that
// already exists keeps its marks and is switched to the refined policy.
func (t *Table) RegisterProgramMethod(id classfile.MethodID) *MethodFacts {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.methods[id]
	if !ok {
		f = NewMethodFacts(Refined)
		t.methods[id] = f
	}
	f.policy = Refined
	return f
}

// Class returns the record for id, creating a conservative one if needed.
func (t *Table) Class(id classfile.ClassID) *ClassFacts {
	t.mu.RLock()
	c, ok := t.classes[id]
	t.mu.RUnlock()
	if ok {
		return c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.classes[id]; ok {
		return c
	}
	c = NewClassFacts(Conservative)
	t.classes[id] = c
	return c
}

// RegisterProgramClass marks id as program code with a refined record.
func (t *Table) RegisterProgramClass(id classfile.ClassID) *ClassFacts {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.classes[id]
	if !ok {
		c = NewClassFacts(Refined)
		t.classes[id] = c
	}
	c.policy = Refined
	return c
}

// Fields returns the shared field table.
func (t *Table) Fields() *FieldTable { return t.fields }

// MethodIDs returns the handles of every method with a record, in order.
func (t *Table) MethodIDs() []classfile.MethodID {
	t.mu.RLock()
	ids := make([]classfile.MethodID, 0, len(t.methods))
	for id := range t.methods {
		ids = append(ids, id)
	}
	t.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// restore replaces a non-refined record with an imported one. Records of
// program methods are left to the analysis. No-* flags already set on the
// replaced record, such as seeds, carry over. It reports whether f was used.
func (t *Table) restore(id classfile.MethodID, f MethodFacts) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.methods[id]; ok {
		if existing.policy == Refined {
			return false
		}
		f.noSideEffects = f.noSideEffects || existing.noSideEffects
		f.noExternalSideEffects = f.noExternalSideEffects || existing.noExternalSideEffects
		f.noExternalReturnValues = f.noExternalReturnValues || existing.noExternalReturnValues
	}
	t.methods[id] = &f
	return true
}

// Snapshot copies every method record. Callee facts are read from the
// snapshot of the previous pass so that the order in which methods of one
// pass are analysed does not matter.
func (t *Table) Snapshot() *Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := &Snapshot{methods: make(map[classfile.MethodID]*MethodFacts, len(t.methods))}
	for id, f := range t.methods {
		c := *f
		s.methods[id] = &c
	}
	return s
}

// Snapshot is a frozen copy of method facts. Its records must not be
// modified.
type Snapshot struct {
	methods map[classfile.MethodID]*MethodFacts
}

// Method returns the frozen record for id. Methods without a record, and
// any lookup on a nil Snapshot, get a fresh conservative record.
func (s *Snapshot) Method(id classfile.MethodID) *MethodFacts {
	if s != nil {
		if f, ok := s.methods[id]; ok {
			return f
		}
	}
	return NewMethodFacts(Conservative)
}
