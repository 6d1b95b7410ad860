package origin

import (
	"errors"
	"fmt"

	"github.com/chazu/optfacts/bytecode"
	"github.com/chazu/optfacts/classfile"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("optfacts.origin")

var (
	// ErrStackUnderflow is returned when an instruction pops more values
	// than the stack holds.
	ErrStackUnderflow = errors.New("origin: stack underflow")
	// ErrStackMismatch is returned when two paths reach an instruction
	// with different stack heights.
	ErrStackMismatch = errors.New("origin: inconsistent stack height at join")
	// ErrBadTarget is returned for control transfers that do not land on
	// an instruction, including falling off the end of the code.
	ErrBadTarget = errors.New("origin: control transfer to a non-instruction")
	// ErrBadLocal is returned for a local variable slot outside the frame.
	ErrBadLocal = errors.New("origin: local variable out of range")
)

// Oracle supplies origins for values that cannot be derived from the code
// of the method alone. Results must only grow as their inputs grow.
type Oracle interface {
	// Load returns the origins of a reference read from the heap by
	// GETFIELD, GETSTATIC or AALOAD.
	Load(in bytecode.Instruction) *Set
	// Invoke returns the origins of the reference returned by a call.
	// callee is nil when the target is not in the pool. args holds the
	// origins of the actual arguments, receiver first.
	Invoke(in bytecode.Instruction, callee *classfile.Method, args []*Set) *Set
}

type defaultOracle struct{}

func (defaultOracle) Load(bytecode.Instruction) *Set { return NewSet(External) }

func (defaultOracle) Invoke(bytecode.Instruction, *classfile.Method, []*Set) *Set {
	return NewSet(Unknown)
}

// Interpreter runs a worklist abstract interpretation over method bodies.
// It holds no per-method state.
type Interpreter struct {
	pool   *classfile.Pool
	oracle Oracle
}

// NewInterpreter creates an interpreter resolving constants through pool.
// A nil oracle classifies heap loads as External and call results as
// Unknown.
func NewInterpreter(pool *classfile.Pool, oracle Oracle) *Interpreter {
	if pool == nil {
		panic("origin: nil pool")
	}
	if oracle == nil {
		oracle = defaultOracle{}
	}
	return &Interpreter{pool: pool, oracle: oracle}
}

// Run interprets m to a fixed point and returns the entry frame of every
// reachable instruction.
func (it *Interpreter) Run(m *classfile.Method) (*Frames, error) {
	if m.Code == nil {
		return nil, fmt.Errorf("origin: %s has no code", m)
	}
	instrs, err := m.Code.Instructions()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m, err)
	}

	f := &Frames{
		method: m,
		instrs: instrs,
		index:  make(map[int]int, len(instrs)),
		states: make([]*state, len(instrs)),
	}
	for i, in := range instrs {
		f.index[in.Offset] = i
	}
	if len(instrs) == 0 {
		return f, nil
	}

	queued := make([]bool, len(instrs))
	work := []int{0}
	queued[0] = true
	f.states[0] = entryState(m)

	flow := func(target int, st *state) error {
		j, ok := f.index[target]
		if !ok {
			return fmt.Errorf("offset %d: %w", target, ErrBadTarget)
		}
		if f.states[j] == nil {
			f.states[j] = st.clone()
		} else {
			grew, err := f.states[j].join(st)
			if err != nil {
				return fmt.Errorf("offset %d: %w", target, err)
			}
			if !grew {
				return nil
			}
		}
		if !queued[j] {
			queued[j] = true
			work = append(work, j)
		}
		return nil
	}

	steps := 0
	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		queued[i] = false
		steps++

		in := instrs[i]
		cur := f.states[i]
		if log.AllowLevel(commonlog.Debug) {
			log.Debugf("%s %04X %-14s stack=%v", m, in.Offset, in.Op, cur.stack)
		}

		out, err := it.step(m, in, cur)
		if err != nil {
			return nil, fmt.Errorf("%s at %04X %s: %w", m, in.Offset, in.Op, err)
		}

		if !in.Op.EndsBlock() {
			err = flow(in.Next(), out)
		}
		if err == nil && in.Op.IsBranch() {
			err = flow(in.BranchTarget(), out)
		}
		if err == nil && (bytecode.MayThrow(in.Op) || in.Op == bytecode.OpAThrow) {
			for _, h := range m.Code.Handlers {
				if h.Covers(in.Offset) {
					if err = flow(int(h.HandlerPC), cur.handlerState()); err != nil {
						break
					}
				}
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%s at %04X %s: %w", m, in.Offset, in.Op, err)
		}
	}
	log.Debugf("%s: %d instructions, %d steps", m, len(instrs), steps)
	return f, nil
}

// entryState seeds the locals with the method's reference parameters.
func entryState(m *classfile.Method) *state {
	typ := m.Type()
	size := int(m.Code.MaxLocals)
	if n := m.ArgCount(); n > size {
		size = n
	}
	st := &state{locals: make([]*Set, size)}
	for i := range st.locals {
		st.locals[i] = &Set{}
	}
	first := 0
	if !m.IsStatic() {
		st.locals[0] = NewSet(Receiver)
		first = 1
	}
	for k, p := range typ.Params {
		if classfile.IsReferenceType(p) {
			st.locals[first+k] = NewSet(Parameter(first + k))
		}
	}
	return st
}

// step applies the transfer function of one instruction to its entry state.
func (it *Interpreter) step(m *classfile.Method, in bytecode.Instruction, cur *state) (*state, error) {
	out := cur.shallow()
	op := in.Op

	switch {
	case op.IsConstantLoad():
		c, err := it.pool.Constant(m.Class, in.Index())
		if err != nil {
			return nil, err
		}
		if c.IsReference() {
			out.push(NewSet(NewInstance(in.Offset)))
		} else {
			out.push(&Set{})
		}

	case in.IsLoad():
		v, err := out.local(in.Local())
		if err != nil {
			return nil, err
		}
		out.push(v)

	case in.IsStore():
		v, err := out.pop1()
		if err != nil {
			return nil, err
		}
		if err := out.setLocal(in.Local(), v); err != nil {
			return nil, err
		}

	case op == bytecode.OpAALoad:
		if _, err := out.pop(2); err != nil {
			return nil, err
		}
		out.push(it.oracle.Load(in))

	case op == bytecode.OpGetStatic, op == bytecode.OpGetField:
		if op == bytecode.OpGetField {
			if _, err := out.pop1(); err != nil {
				return nil, err
			}
		}
		v, err := it.load(m, in)
		if err != nil {
			return nil, err
		}
		out.push(v)

	case op.IsInvoke():
		if err := it.invoke(m, in, out); err != nil {
			return nil, err
		}

	case op == bytecode.OpDup:
		v, err := out.pop1()
		if err != nil {
			return nil, err
		}
		out.push(v)
		out.push(v)

	case op == bytecode.OpDupX1:
		vs, err := out.pop(2)
		if err != nil {
			return nil, err
		}
		out.push(vs[1])
		out.push(vs[0])
		out.push(vs[1])

	case op == bytecode.OpSwap:
		vs, err := out.pop(2)
		if err != nil {
			return nil, err
		}
		out.push(vs[1])
		out.push(vs[0])

	case op == bytecode.OpCheckCast:
		// The cast reference is the same object.
		v, err := out.pop1()
		if err != nil {
			return nil, err
		}
		out.push(v)

	case op == bytecode.OpNew:
		out.push(NewSet(NewInstance(in.Offset)))

	case op == bytecode.OpNewArray, op == bytecode.OpANewArray, op == bytecode.OpMultiANewArray:
		n := 1
		if op == bytecode.OpMultiANewArray {
			n = in.Dimensions()
		}
		if _, err := out.pop(n); err != nil {
			return nil, err
		}
		out.push(NewSet(NewInstance(in.Offset)))

	default:
		// Everything else pushes only primitives.
		info := bytecode.GetOpcodeInfo(op)
		if _, err := out.pop(info.StackPop); err != nil {
			return nil, err
		}
		for i := 0; i < info.StackPush; i++ {
			out.push(&Set{})
		}
	}
	return out, nil
}

// load classifies a static or instance field read. Primitive fields carry
// no origin.
func (it *Interpreter) load(m *classfile.Method, in bytecode.Instruction) (*Set, error) {
	c, err := it.pool.Constant(m.Class, in.Index())
	if err != nil {
		return nil, err
	}
	if c.Kind != classfile.ConstFieldRef {
		return nil, fmt.Errorf("#%d is %s: %w", in.Index(), c.Kind, classfile.ErrBadConstant)
	}
	if !classfile.IsReferenceType(c.Descriptor) {
		return &Set{}, nil
	}
	return it.oracle.Load(in), nil
}

func (it *Interpreter) invoke(m *classfile.Method, in bytecode.Instruction, out *state) error {
	callee, typ, err := it.pool.ResolveMethod(m.Class, in.Index())
	if err != nil {
		return err
	}
	args, err := out.pop(ArgCount(in.Op, typ))
	if err != nil {
		return err
	}
	switch {
	case typ.Return == "V":
	case !typ.ReturnsReference():
		out.push(&Set{})
	default:
		v := it.oracle.Invoke(in, callee, args)
		if v == nil {
			v = NewSet(Unknown)
		}
		out.push(v)
	}
	return nil
}

// ArgCount returns the number of stack values an invoke instruction with
// call-site type typ consumes, counting the receiver.
func ArgCount(op bytecode.Opcode, typ classfile.MethodType) int {
	n := len(typ.Params)
	if op != bytecode.OpInvokeStatic && op != bytecode.OpInvokeDynamic {
		n++
	}
	return n
}
