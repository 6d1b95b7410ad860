// Package escape derives side-effect and escape facts for method bodies.
//
// For each program method it runs the origin interpreter, then walks the
// reachable instructions and records which parameters are modified,
// escape, or are returned, folding in the facts of every call target.
package escape

import (
	"fmt"

	"github.com/chazu/optfacts/bytecode"
	"github.com/chazu/optfacts/classfile"
	"github.com/chazu/optfacts/facts"
	"github.com/chazu/optfacts/origin"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("optfacts.escape")

// Analyzer updates method facts in a Table. It is safe to analyse several
// methods concurrently as long as each method is analysed by one goroutine.
type Analyzer struct {
	pool       *classfile.Pool
	table      *facts.Table
	overriders overriders
}

// NewAnalyzer prepares an analyzer over pool.
func NewAnalyzer(pool *classfile.Pool, table *facts.Table) *Analyzer {
	if pool == nil || table == nil {
		panic("escape: nil pool or table")
	}
	return &Analyzer{
		pool:       pool,
		table:      table,
		overriders: findOverriders(pool),
	}
}

// AnalyzeMethod analyses one method body. Callee facts are read from snap;
// a nil snapshot treats every callee conservatively.
func (a *Analyzer) AnalyzeMethod(m *classfile.Method, snap *facts.Snapshot) (facts.Change, error) {
	if m.Code == nil {
		return facts.Change{}, nil
	}
	frames, err := origin.NewInterpreter(a.pool, &oracle{a: a, snap: snap}).Run(m)
	if err != nil {
		return facts.Change{}, err
	}

	v := &visitor{
		a:      a,
		m:      m,
		snap:   snap,
		frames: frames,
		facts:  a.table.Method(m.ID),
	}
	for _, in := range frames.Instructions() {
		if err := v.visit(in); err != nil {
			return v.change, fmt.Errorf("%s at %04X %s: %w", m, in.Offset, in.Op, err)
		}
	}
	if v.change.Any() {
		log.Debugf("%s: %d new facts: %s", m, v.change.Methods, v.facts)
	}
	return v.change, nil
}

// oracle feeds the interpreter the origins of heap loads and call results.
type oracle struct {
	a    *Analyzer
	snap *facts.Snapshot
}

func (o *oracle) Load(bytecode.Instruction) *origin.Set {
	return origin.NewSet(origin.External)
}

// Invoke returns what a call may produce: a fresh instance, any argument
// the callee may return, and heap values if the callee returns those.
func (o *oracle) Invoke(in bytecode.Instruction, callee *classfile.Method, args []*origin.Set) *origin.Set {
	view := o.a.targets(in.Op, callee, o.snap)
	out := origin.NewSet(origin.NewInstance(in.Offset))
	for k, arg := range args {
		if view.returned(k) {
			out.UnionWith(arg)
		}
	}
	if view.returnsExternal() {
		out.Add(origin.External)
	}
	return out
}

type visitor struct {
	a      *Analyzer
	m      *classfile.Method
	snap   *facts.Snapshot
	frames *origin.Frames
	facts  *facts.MethodFacts
	change facts.Change
}

func (v *visitor) visit(in bytecode.Instruction) error {
	at := in.Offset
	switch in.Op {
	case bytecode.OpPutField:
		v.markEscaped(v.frames.Stack(at, 0))
		v.markModified(v.frames.Stack(at, 1))

	case bytecode.OpPutStatic:
		v.markEscaped(v.frames.Stack(at, 0))

	case bytecode.OpAAStore:
		v.markEscaped(v.frames.Stack(at, 0))
		v.markModified(v.frames.Stack(at, 2))

	case bytecode.OpAThrow:
		v.markEscaped(v.frames.Stack(at, 0))

	case bytecode.OpAReturn:
		v.markReturned(v.frames.Stack(at, 0))

	case bytecode.OpInvokeVirtual, bytecode.OpInvokeSpecial, bytecode.OpInvokeStatic,
		bytecode.OpInvokeInterface, bytecode.OpInvokeDynamic:
		return v.invoke(in)
	}
	return nil
}

// invoke applies the callee's parameter facts to the actual arguments.
func (v *visitor) invoke(in bytecode.Instruction) error {
	callee, typ, err := v.a.pool.ResolveMethod(v.m.Class, in.Index())
	if err != nil {
		return err
	}
	view := v.a.targets(in.Op, callee, v.snap)
	argc := origin.ArgCount(in.Op, typ)
	for k := 0; k < argc; k++ {
		arg := v.frames.Stack(in.Offset, argc-1-k)
		if view.modified(k) {
			v.markModified(arg)
		}
		if view.escaped(k) {
			v.markEscaped(arg)
		}
	}
	if view.modifiesAnything() {
		v.change.Method(v.facts.SetModifiesAnything())
	}
	return nil
}

// markModified records that the objects in s may be mutated. Mutating a
// heap value means the method may modify anything.
func (v *visitor) markModified(s *origin.Set) {
	for _, o := range s.Origins() {
		switch o.Kind() {
		case origin.KindParameter, origin.KindReceiver:
			v.change.Method(v.facts.SetParameterModified(o.Index()))
		case origin.KindExternal, origin.KindUnknown:
			v.change.Method(v.facts.SetModifiesAnything())
		}
	}
}

// markEscaped records that the parameters in s become reachable from
// outside the method.
func (v *visitor) markEscaped(s *origin.Set) {
	for _, o := range s.Origins() {
		if o.IsParameter() {
			v.change.Method(v.facts.SetParameterEscaped(o.Index()))
		}
	}
}

func (v *visitor) markReturned(s *origin.Set) {
	for _, o := range s.Origins() {
		switch o.Kind() {
		case origin.KindParameter, origin.KindReceiver:
			v.change.Method(v.facts.SetParameterReturned(o.Index()))
		case origin.KindExternal, origin.KindUnknown:
			v.change.Method(v.facts.SetReturnsExternalValues())
		}
	}
}
