package origin

import (
	"errors"
	"testing"

	"github.com/chazu/optfacts/bytecode"
	"github.com/chazu/optfacts/classfile"
)

const objectDesc = "Ljava/lang/Object;"

// method builds a one-method pool. emit writes the body and may add
// constants through cb.
func method(t *testing.T, desc string, flags classfile.AccessFlags, maxLocals uint16,
	emit func(cb *classfile.ClassBuilder, c *bytecode.Code)) (*classfile.Pool, *classfile.Method) {
	t.Helper()
	b := classfile.NewBuilder()
	cb := b.Class("demo/A", classfile.ObjectClass, classfile.AccPublic)
	cb.Field("ref", objectDesc, 0)
	cb.Field("count", "I", 0)
	code := bytecode.NewCode(maxLocals)
	emit(cb, code)
	id := cb.Method("m", desc, flags, code)
	pool, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return pool, pool.Method(id)
}

func run(t *testing.T, pool *classfile.Pool, m *classfile.Method, oracle Oracle) *Frames {
	t.Helper()
	f, err := NewInterpreter(pool, oracle).Run(m)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return f
}

func wantSet(t *testing.T, what string, got *Set, want ...Origin) {
	t.Helper()
	if !got.Equals(NewSet(want...)) {
		t.Errorf("%s = %v, want %v", what, got, NewSet(want...))
	}
}

func TestOriginEncoding(t *testing.T) {
	tests := []struct {
		o     Origin
		kind  Kind
		index int
		site  int
	}{
		{Parameter(0), KindParameter, 0, -1},
		{Parameter(5), KindParameter, 5, -1},
		{Receiver, KindReceiver, 0, -1},
		{NewInstance(0), KindNewInstance, -1, 0},
		{NewInstance(300), KindNewInstance, -1, 300},
		{External, KindExternal, -1, -1},
		{Unknown, KindUnknown, -1, -1},
	}
	for _, tt := range tests {
		if tt.o.Kind() != tt.kind || tt.o.Index() != tt.index || tt.o.Site() != tt.site {
			t.Errorf("%v: kind=%s index=%d site=%d", tt.o, tt.o.Kind(), tt.o.Index(), tt.o.Site())
		}
	}
	if !Receiver.IsParameter() || External.IsParameter() {
		t.Error("IsParameter mismatch")
	}
}

func TestSetOperations(t *testing.T) {
	s := NewSet(Parameter(1))
	if !s.Add(External) || s.Add(External) {
		t.Error("Add must report growth once")
	}
	if !s.UnionWith(NewSet(Receiver, Parameter(1))) {
		t.Error("UnionWith must report growth")
	}
	if s.UnionWith(NewSet(Receiver)) {
		t.Error("UnionWith of a subset must not report growth")
	}
	if got := s.String(); got != "{this ext p1}" {
		t.Errorf("String() = %q", got)
	}
	c := s.Copy()
	c.Add(Unknown)
	if s.Has(Unknown) {
		t.Error("Copy shares storage")
	}
	var none *Set
	if !none.IsEmpty() || none.Len() != 0 || none.Has(External) || !none.Copy().IsEmpty() {
		t.Error("nil set must behave as empty")
	}
}

func TestStaticIdentity(t *testing.T) {
	pool, m := method(t, "("+objectDesc+")"+objectDesc, classfile.AccStatic, 1,
		func(cb *classfile.ClassBuilder, c *bytecode.Code) {
			c.Emit(bytecode.OpALoad0)
			c.Emit(bytecode.OpAReturn)
		})
	f := run(t, pool, m, nil)

	wantSet(t, "stack at ARETURN", f.Stack(1, 0), Parameter(0))
	if f.StackHeight(0) != 0 || f.StackHeight(1) != 1 {
		t.Errorf("stack heights = %d, %d", f.StackHeight(0), f.StackHeight(1))
	}
}

func TestInstanceEntryFrame(t *testing.T) {
	pool, m := method(t, "(I"+objectDesc+")V", classfile.AccPublic, 4,
		func(cb *classfile.ClassBuilder, c *bytecode.Code) {
			c.Emit(bytecode.OpReturn)
		})
	f := run(t, pool, m, nil)

	wantSet(t, "local 0", f.Local(0, 0), Receiver)
	wantSet(t, "local 1 (int)", f.Local(0, 1))
	wantSet(t, "local 2", f.Local(0, 2), Parameter(2))
	wantSet(t, "local 3", f.Local(0, 3))
	if f.Local(0, 4) != nil {
		t.Error("slot beyond the frame must be nil")
	}
}

func TestBranchJoin(t *testing.T) {
	var ret int
	pool, m := method(t, "("+objectDesc+objectDesc+")"+objectDesc, classfile.AccStatic, 2,
		func(cb *classfile.ClassBuilder, c *bytecode.Code) {
			c.Emit(bytecode.OpALoad0)
			skip := c.EmitJump(bytecode.OpIfNull)
			c.Emit(bytecode.OpALoad0)
			end := c.EmitJump(bytecode.OpGoto)
			c.PatchJump(skip)
			c.Emit(bytecode.OpALoad1)
			c.PatchJump(end)
			ret = c.Emit(bytecode.OpAReturn)
		})
	f := run(t, pool, m, nil)

	wantSet(t, "returned value", f.Stack(ret, 0), Parameter(0), Parameter(1))
}

func TestLoopReachesFixedPoint(t *testing.T) {
	var head, site, ret int
	pool, m := method(t, "("+objectDesc+")"+objectDesc, classfile.AccStatic, 2,
		func(cb *classfile.ClassBuilder, c *bytecode.Code) {
			cls := cb.ClassRef("demo/A")
			c.Emit(bytecode.OpALoad0)
			c.Emit(bytecode.OpAStore1)
			head = c.Emit(bytecode.OpALoad1)
			exit := c.EmitJump(bytecode.OpIfNull)
			site = c.EmitIndex(bytecode.OpNew, cls)
			c.Emit(bytecode.OpAStore1)
			back := c.EmitJump(bytecode.OpGoto)
			c.PatchJumpTo(back, head)
			c.PatchJump(exit)
			c.Emit(bytecode.OpALoad1)
			ret = c.Emit(bytecode.OpAReturn)
		})
	f := run(t, pool, m, nil)

	wantSet(t, "local 1 at loop head", f.Local(head, 1), Parameter(0), NewInstance(site))
	wantSet(t, "returned value", f.Stack(ret, 0), Parameter(0), NewInstance(site))
}

func TestNewDupAndConstructor(t *testing.T) {
	var ret int
	pool, m := method(t, "()"+objectDesc, classfile.AccStatic, 0,
		func(cb *classfile.ClassBuilder, c *bytecode.Code) {
			cls := cb.ClassRef("demo/A")
			ctor := cb.MethodRef("demo/A", "<init>", "()V")
			c.EmitIndex(bytecode.OpNew, cls)
			c.Emit(bytecode.OpDup)
			c.EmitInvoke(bytecode.OpInvokeSpecial, ctor, 0)
			ret = c.Emit(bytecode.OpAReturn)
		})
	f := run(t, pool, m, nil)

	wantSet(t, "returned value", f.Stack(ret, 0), NewInstance(0))
	if f.StackHeight(ret) != 1 {
		t.Errorf("stack height at return = %d, want 1", f.StackHeight(ret))
	}
}

func TestFieldLoads(t *testing.T) {
	var afterRef, afterCount int
	pool, m := method(t, "()V", classfile.AccPublic, 1,
		func(cb *classfile.ClassBuilder, c *bytecode.Code) {
			ref := cb.FieldRef("demo/A", "ref", objectDesc)
			count := cb.FieldRef("demo/A", "count", "I")
			c.Emit(bytecode.OpALoad0)
			c.EmitIndex(bytecode.OpGetField, ref)
			afterRef = c.Emit(bytecode.OpPop)
			c.EmitIndex(bytecode.OpGetStatic, count)
			afterCount = c.Emit(bytecode.OpPop)
			c.Emit(bytecode.OpReturn)
		})
	f := run(t, pool, m, nil)

	wantSet(t, "reference field", f.Stack(afterRef, 0), External)
	wantSet(t, "int field", f.Stack(afterCount, 0))
}

func TestConstantLoads(t *testing.T) {
	var str, after int
	pool, m := method(t, "()V", classfile.AccStatic, 0,
		func(cb *classfile.ClassBuilder, c *bytecode.Code) {
			s := cb.StringConst("x")
			n := cb.Constant(classfile.IntConstant(7))
			str = c.EmitWithOperand(bytecode.OpLdc, byte(s))
			c.EmitIndex(bytecode.OpLdcW, n)
			after = c.Emit(bytecode.OpPop2)
			c.Emit(bytecode.OpReturn)
		})
	f := run(t, pool, m, nil)

	wantSet(t, "string constant", f.Stack(after, 1), NewInstance(str))
	wantSet(t, "int constant", f.Stack(after, 0))
}

func TestStackShuffles(t *testing.T) {
	var swapped, duped int
	pool, m := method(t, "("+objectDesc+objectDesc+")V", classfile.AccStatic, 2,
		func(cb *classfile.ClassBuilder, c *bytecode.Code) {
			c.Emit(bytecode.OpALoad0)
			c.Emit(bytecode.OpALoad1)
			c.Emit(bytecode.OpSwap)
			swapped = c.Emit(bytecode.OpDupX1)
			duped = c.Emit(bytecode.OpPop)
			c.Emit(bytecode.OpPop2)
			c.Emit(bytecode.OpReturn)
		})
	f := run(t, pool, m, nil)

	wantSet(t, "top after SWAP", f.Stack(swapped, 0), Parameter(0))
	wantSet(t, "below top after SWAP", f.Stack(swapped, 1), Parameter(1))
	// p1 p0 -> p0 p1 p0
	wantSet(t, "DUP_X1 depth 0", f.Stack(duped, 0), Parameter(0))
	wantSet(t, "DUP_X1 depth 1", f.Stack(duped, 1), Parameter(1))
	wantSet(t, "DUP_X1 depth 2", f.Stack(duped, 2), Parameter(0))
}

func TestExceptionHandlerEdge(t *testing.T) {
	var handler int
	pool, m := method(t, "("+objectDesc+")"+objectDesc, classfile.AccStatic, 2,
		func(cb *classfile.ClassBuilder, c *bytecode.Code) {
			hash := cb.MethodRef(classfile.ObjectClass, "hashCode", "()I")
			c.Emit(bytecode.OpALoad0)
			c.EmitInvoke(bytecode.OpInvokeVirtual, hash, 0)
			c.Emit(bytecode.OpPop)
			c.Emit(bytecode.OpALoad0)
			end := c.Emit(bytecode.OpAReturn)
			handler = c.Emit(bytecode.OpAStore1)
			c.Emit(bytecode.OpALoad1)
			c.Emit(bytecode.OpAReturn)
			c.AddHandler(0, end, handler, 0)
		})
	f := run(t, pool, m, nil)

	if !f.Reachable(handler) {
		t.Fatal("handler must be reachable through the throwing invoke")
	}
	wantSet(t, "caught exception", f.Stack(handler, 0), External)
	wantSet(t, "local 0 in handler", f.Local(handler, 0), Parameter(0))
}

func TestHandlerUnreachableWithoutThrowingInstruction(t *testing.T) {
	var handler int
	pool, m := method(t, "("+objectDesc+")"+objectDesc, classfile.AccStatic, 1,
		func(cb *classfile.ClassBuilder, c *bytecode.Code) {
			c.Emit(bytecode.OpALoad0)
			end := c.Emit(bytecode.OpAReturn)
			handler = c.Emit(bytecode.OpAReturn)
			c.AddHandler(0, end, handler, 0)
		})
	f := run(t, pool, m, nil)

	if f.Reachable(handler) {
		t.Error("loads and returns do not throw")
	}
	if len(f.Instructions()) != 2 {
		t.Errorf("reachable instructions = %d, want 2", len(f.Instructions()))
	}
}

type recordingOracle struct {
	calls int
}

func (o *recordingOracle) Load(bytecode.Instruction) *Set { return NewSet(External) }

func (o *recordingOracle) Invoke(in bytecode.Instruction, callee *classfile.Method, args []*Set) *Set {
	o.calls++
	out := &Set{}
	for _, a := range args {
		out.UnionWith(a)
	}
	return out
}

func TestOracleInvoke(t *testing.T) {
	var ret int
	pool, m := method(t, "("+objectDesc+objectDesc+")"+objectDesc, classfile.AccStatic, 2,
		func(cb *classfile.ClassBuilder, c *bytecode.Code) {
			pick := cb.MethodRef("demo/A", "pick", "("+objectDesc+objectDesc+")"+objectDesc)
			c.Emit(bytecode.OpALoad0)
			c.Emit(bytecode.OpALoad1)
			c.EmitInvoke(bytecode.OpInvokeStatic, pick, 0)
			ret = c.Emit(bytecode.OpAReturn)
		})
	oracle := &recordingOracle{}
	f := run(t, pool, m, oracle)

	if oracle.calls == 0 {
		t.Fatal("oracle was not consulted")
	}
	wantSet(t, "call result", f.Stack(ret, 0), Parameter(0), Parameter(1))
}

func TestDefaultOracleInvoke(t *testing.T) {
	var ret int
	pool, m := method(t, "()"+objectDesc, classfile.AccStatic, 0,
		func(cb *classfile.ClassBuilder, c *bytecode.Code) {
			indy := cb.Constant(classfile.InvokeDynamicConstant("make", "()"+objectDesc))
			c.EmitInvoke(bytecode.OpInvokeDynamic, indy, 0)
			ret = c.Emit(bytecode.OpAReturn)
		})
	f := run(t, pool, m, nil)

	wantSet(t, "dynamic call result", f.Stack(ret, 0), Unknown)
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		emit func(cb *classfile.ClassBuilder, c *bytecode.Code)
		want error
	}{
		{"underflow", func(cb *classfile.ClassBuilder, c *bytecode.Code) {
			c.Emit(bytecode.OpAReturn)
		}, ErrStackUnderflow},
		{"mismatch", func(cb *classfile.ClassBuilder, c *bytecode.Code) {
			c.Emit(bytecode.OpALoad0)
			skip := c.EmitJump(bytecode.OpIfNull)
			c.Emit(bytecode.OpALoad0)
			c.PatchJump(skip)
			c.Emit(bytecode.OpReturn)
		}, ErrStackMismatch},
		{"fall off", func(cb *classfile.ClassBuilder, c *bytecode.Code) {
			c.Emit(bytecode.OpNop)
		}, ErrBadTarget},
		{"bad local", func(cb *classfile.ClassBuilder, c *bytecode.Code) {
			c.EmitWithOperand(bytecode.OpALoad, 9)
			c.Emit(bytecode.OpAReturn)
		}, ErrBadLocal},
		{"bad constant", func(cb *classfile.ClassBuilder, c *bytecode.Code) {
			c.EmitIndex(bytecode.OpGetStatic, 42)
			c.Emit(bytecode.OpAReturn)
		}, classfile.ErrBadConstant},
		{"truncated", func(cb *classfile.ClassBuilder, c *bytecode.Code) {
			c.Emit(bytecode.OpGetStatic)
		}, bytecode.ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, m := method(t, "("+objectDesc+")"+objectDesc, classfile.AccStatic, 1, tt.emit)
			_, err := NewInterpreter(pool, nil).Run(m)
			if !errors.Is(err, tt.want) {
				t.Errorf("Run() error = %v, want %v", err, tt.want)
			}
		})
	}
}
