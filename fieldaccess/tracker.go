// Package fieldaccess marks program fields as read or written by scanning
// the field instructions of every analysed method.
package fieldaccess

import (
	"fmt"

	"github.com/chazu/optfacts/bytecode"
	"github.com/chazu/optfacts/classfile"
	"github.com/chazu/optfacts/facts"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("optfacts.fieldaccess")

// Tracker marks fields in a shared FieldTable. Reads and writes can be
// tracked independently.
type Tracker struct {
	TrackReads  bool
	TrackWrites bool

	pool   *classfile.Pool
	fields *facts.FieldTable
}

// NewTracker creates a tracker recording into fields.
func NewTracker(pool *classfile.Pool, fields *facts.FieldTable, trackReads, trackWrites bool) *Tracker {
	return &Tracker{
		TrackReads:  trackReads,
		TrackWrites: trackWrites,
		pool:        pool,
		fields:      fields,
	}
}

// VisitMethod scans every instruction of m, reachable or not.
func (t *Tracker) VisitMethod(m *classfile.Method) (facts.Change, error) {
	var change facts.Change
	if m.Code == nil {
		return change, nil
	}
	instrs, err := m.Code.Instructions()
	if err != nil {
		return change, fmt.Errorf("%s: %w", m, err)
	}
	for _, in := range instrs {
		c, err := t.VisitInstruction(m, in)
		if err != nil {
			return change, fmt.Errorf("%s at %04X: %w", m, in.Offset, err)
		}
		change.Add(c)
	}
	return change, nil
}

// VisitInstruction handles one instruction of m. Instructions that do not
// refer to fields return before m is looked at.
func (t *Tracker) VisitInstruction(m *classfile.Method, in bytecode.Instruction) (facts.Change, error) {
	var change facts.Change
	switch in.Op {
	case bytecode.OpGetStatic, bytecode.OpGetField:
		f, err := t.resolve(m, in)
		if err != nil || f == nil {
			return change, err
		}
		t.markRead(&change, f)

	case bytecode.OpPutStatic, bytecode.OpPutField:
		f, err := t.resolve(m, in)
		if err != nil || f == nil {
			return change, err
		}
		t.markWritten(&change, f)

	case bytecode.OpLdc, bytecode.OpLdcW, bytecode.OpLdc2W:
		// A field handle may later be used either way.
		f, err := t.handleTarget(m, in)
		if err != nil || f == nil {
			return change, err
		}
		t.markRead(&change, f)
		t.markWritten(&change, f)
	}
	return change, nil
}

func (t *Tracker) resolve(m *classfile.Method, in bytecode.Instruction) (*classfile.Field, error) {
	f, c, err := t.pool.ResolveField(m.Class, in.Index())
	if err != nil {
		return nil, err
	}
	if f == nil {
		log.Debugf("%s: %s not in pool", m, c)
	}
	return f, nil
}

// handleTarget returns the field a method handle constant refers to, or nil
// for any other constant.
func (t *Tracker) handleTarget(m *classfile.Method, in bytecode.Instruction) (*classfile.Field, error) {
	c, err := t.pool.Constant(m.Class, in.Index())
	if err != nil {
		return nil, err
	}
	if c.Kind != classfile.ConstMethodHandle {
		return nil, nil
	}
	ref, err := t.pool.Constant(m.Class, c.Ref)
	if err != nil {
		return nil, err
	}
	if ref.Kind != classfile.ConstFieldRef {
		return nil, nil
	}
	f, _ := t.pool.LookupField(ref.Class, ref.Name, ref.Descriptor)
	return f, nil
}

func (t *Tracker) markRead(change *facts.Change, f *classfile.Field) {
	if t.TrackReads && t.fields.MarkRead(f.ID) {
		log.Debugf("field %s read", f)
		change.Field(true)
	}
}

func (t *Tracker) markWritten(change *facts.Change, f *classfile.Field) {
	if t.TrackWrites && t.fields.MarkWritten(f.ID) {
		log.Debugf("field %s written", f)
		change.Field(true)
	}
}
