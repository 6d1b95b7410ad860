package origin

import (
	"github.com/chazu/optfacts/bytecode"
	"github.com/chazu/optfacts/classfile"
)

// state is the abstract frame at one program point. Stored states own
// their sets; transient states produced by a step may share them.
type state struct {
	stack  []*Set
	locals []*Set
}

func (s *state) shallow() *state {
	return &state{
		stack:  append([]*Set(nil), s.stack...),
		locals: append([]*Set(nil), s.locals...),
	}
}

func (s *state) clone() *state {
	c := &state{
		stack:  make([]*Set, len(s.stack)),
		locals: make([]*Set, len(s.locals)),
	}
	for i, v := range s.stack {
		c.stack[i] = v.Copy()
	}
	for i, v := range s.locals {
		c.locals[i] = v.Copy()
	}
	return c
}

// join unions o into s slot by slot.
func (s *state) join(o *state) (bool, error) {
	if len(s.stack) != len(o.stack) {
		return false, ErrStackMismatch
	}
	grew := false
	for i := range s.stack {
		if s.stack[i].UnionWith(o.stack[i]) {
			grew = true
		}
	}
	for i := range s.locals {
		if i < len(o.locals) && s.locals[i].UnionWith(o.locals[i]) {
			grew = true
		}
	}
	return grew, nil
}

// handlerState is the frame on entry to an exception handler: the same
// locals and a stack holding only the caught exception.
func (s *state) handlerState() *state {
	return &state{
		stack:  []*Set{NewSet(External)},
		locals: s.locals,
	}
}

func (s *state) push(v *Set) { s.stack = append(s.stack, v) }

func (s *state) pop(n int) ([]*Set, error) {
	if n < 0 || len(s.stack) < n {
		return nil, ErrStackUnderflow
	}
	vals := append([]*Set(nil), s.stack[len(s.stack)-n:]...)
	s.stack = s.stack[:len(s.stack)-n]
	return vals, nil
}

func (s *state) pop1() (*Set, error) {
	vals, err := s.pop(1)
	if err != nil {
		return nil, err
	}
	return vals[0], nil
}

func (s *state) local(slot int) (*Set, error) {
	if slot < 0 || slot >= len(s.locals) {
		return nil, ErrBadLocal
	}
	return s.locals[slot], nil
}

func (s *state) setLocal(slot int, v *Set) error {
	if slot < 0 || slot >= len(s.locals) {
		return ErrBadLocal
	}
	s.locals[slot] = v
	return nil
}

// Frames is the result of interpreting one method: the entry frame of
// every reachable instruction. Sets returned by its accessors must not be
// modified.
type Frames struct {
	method *classfile.Method
	instrs []bytecode.Instruction
	index  map[int]int
	states []*state
}

// Method returns the interpreted method.
func (f *Frames) Method() *classfile.Method { return f.method }

func (f *Frames) at(offset int) *state {
	i, ok := f.index[offset]
	if !ok {
		return nil
	}
	return f.states[i]
}

// Reachable reports whether any path from the method entry reaches offset.
func (f *Frames) Reachable(offset int) bool { return f.at(offset) != nil }

// Instructions returns the reachable instructions in code order.
func (f *Frames) Instructions() []bytecode.Instruction {
	var out []bytecode.Instruction
	for i, in := range f.instrs {
		if f.states[i] != nil {
			out = append(out, in)
		}
	}
	return out
}

// StackHeight returns the stack height before offset, or -1 when offset
// is unreachable.
func (f *Frames) StackHeight(offset int) int {
	st := f.at(offset)
	if st == nil {
		return -1
	}
	return len(st.stack)
}

// Stack returns the origins of the stack slot depth positions below the top
// (0 is the top) before offset executes. It returns nil when offset is
// unreachable or the stack is not that deep.
func (f *Frames) Stack(offset, depth int) *Set {
	st := f.at(offset)
	if st == nil || depth < 0 || depth >= len(st.stack) {
		return nil
	}
	return st.stack[len(st.stack)-1-depth]
}

// Local returns the origins held by a local variable slot before offset
// executes, or nil when offset is unreachable or the slot does not exist.
func (f *Frames) Local(offset, slot int) *Set {
	st := f.at(offset)
	if st == nil || slot < 0 || slot >= len(st.locals) {
		return nil
	}
	return st.locals[slot]
}
