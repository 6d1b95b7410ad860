package escape

import (
	"github.com/chazu/optfacts/bytecode"
	"github.com/chazu/optfacts/classfile"
	"github.com/chazu/optfacts/facts"
)

// overriders maps each method to the pool methods that override it in
// subclasses.
type overriders map[classfile.MethodID][]classfile.MethodID

func virtual(m *classfile.Method) bool {
	return !m.IsStatic() && !m.Flags.IsPrivate() && m.Name != "<init>" && m.Name != "<clinit>"
}

func findOverriders(pool *classfile.Pool) overriders {
	out := make(overriders)
	for _, m := range pool.Methods() {
		if !virtual(m) {
			continue
		}
		super := pool.Class(m.Class).Super
		if super == "" {
			continue
		}
		seen := map[classfile.MethodID]bool{}
		for steps := 0; super != "" && steps < pool.NumClasses(); steps++ {
			sm, ok := pool.LookupMethod(super, m.Name, m.Descriptor)
			if !ok || seen[sm.ID] || !virtual(sm) {
				break
			}
			seen[sm.ID] = true
			out[sm.ID] = append(out[sm.ID], m.ID)
			super = pool.Class(sm.Class).Super
		}
	}

	// Classes do not list their interfaces, so any virtual method with the
	// same name and descriptor may implement an interface method.
	abstract := map[string][]classfile.MethodID{}
	for _, m := range pool.Methods() {
		if virtual(m) && pool.Class(m.Class).Flags.Has(classfile.AccInterface) {
			key := m.Name + m.Descriptor
			abstract[key] = append(abstract[key], m.ID)
		}
	}
	for _, m := range pool.Methods() {
		if !virtual(m) || pool.Class(m.Class).Flags.Has(classfile.AccInterface) {
			continue
		}
		for _, id := range abstract[m.Name+m.Descriptor] {
			out[id] = append(out[id], m.ID)
		}
	}
	return out
}

// calleeView answers fact queries for every method a call site may reach:
// a fact holds if it holds for any of them.
type calleeView []*facts.MethodFacts

// targets returns the facts of every possible target of a call. Abstract
// methods are never analysed, so their records stay conservative unless a
// seed or an import refines them.
func (a *Analyzer) targets(op bytecode.Opcode, callee *classfile.Method, snap *facts.Snapshot) calleeView {
	if callee == nil {
		return calleeView{facts.NewMethodFacts(facts.Conservative)}
	}
	view := calleeView{snap.Method(callee.ID)}
	if op == bytecode.OpInvokeVirtual || op == bytecode.OpInvokeInterface {
		for _, id := range a.overriders[callee.ID] {
			view = append(view, snap.Method(id))
		}
	}
	return view
}

func (v calleeView) any(pred func(*facts.MethodFacts) bool) bool {
	for _, f := range v {
		if pred(f) {
			return true
		}
	}
	return false
}

func (v calleeView) modified(k int) bool {
	return v.any(func(f *facts.MethodFacts) bool { return f.IsParameterModified(k) })
}

func (v calleeView) escaped(k int) bool {
	return v.any(func(f *facts.MethodFacts) bool { return f.IsParameterEscaped(k) })
}

func (v calleeView) returned(k int) bool {
	return v.any(func(f *facts.MethodFacts) bool { return f.IsParameterReturned(k) })
}

func (v calleeView) modifiesAnything() bool {
	return v.any((*facts.MethodFacts).ModifiesAnything)
}

func (v calleeView) returnsExternal() bool {
	return v.any((*facts.MethodFacts).ReturnsExternalValues)
}
