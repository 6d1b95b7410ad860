package bytecode

import (
	"errors"
	"testing"
)

func TestCodeEmit(t *testing.T) {
	c := NewCode(2)

	if off := c.Emit(OpALoad0); off != 0 {
		t.Errorf("First emit offset = %d, want 0", off)
	}
	if off := c.EmitIndex(OpGetField, 0x0102); off != 1 {
		t.Errorf("Second emit offset = %d, want 1", off)
	}
	if off := c.Emit(OpAReturn); off != 4 {
		t.Errorf("Third emit offset = %d, want 4", off)
	}

	want := []byte{byte(OpALoad0), byte(OpGetField), 0x01, 0x02, byte(OpAReturn)}
	if string(c.Bytes) != string(want) {
		t.Errorf("Bytes = %v, want %v", c.Bytes, want)
	}
}

func TestCodeEmitInvoke(t *testing.T) {
	c := NewCode(1)
	c.EmitInvoke(OpInvokeStatic, 7, 0)
	c.EmitInvoke(OpInvokeInterface, 8, 2)
	c.EmitInvoke(OpInvokeDynamic, 9, 0)

	ins, err := c.Instructions()
	if err != nil {
		t.Fatalf("Instructions() error: %v", err)
	}
	if len(ins) != 3 {
		t.Fatalf("decoded %d instructions, want 3", len(ins))
	}
	if ins[0].Index() != 7 || ins[0].Len() != 3 {
		t.Errorf("invokestatic = %+v", ins[0])
	}
	if ins[1].Index() != 8 || ins[1].Operands[2] != 2 || ins[1].Len() != 5 {
		t.Errorf("invokeinterface = %+v", ins[1])
	}
	if ins[2].Index() != 9 || ins[2].Offset != 8 {
		t.Errorf("invokedynamic = %+v", ins[2])
	}
}

func TestCodePatchJump(t *testing.T) {
	c := NewCode(1)
	c.Emit(OpALoad0)
	placeholder := c.EmitJump(OpIfNull)
	c.Emit(OpALoad0)
	c.Emit(OpAReturn)
	c.PatchJump(placeholder)
	target := c.CurrentOffset()
	c.Emit(OpAConstNull)
	c.Emit(OpAReturn)

	in, err := c.Decode(1)
	if err != nil {
		t.Fatalf("Decode(1) error: %v", err)
	}
	if in.Op != OpIfNull {
		t.Fatalf("Op = %s, want IFNULL", in.Op)
	}
	if got := in.BranchTarget(); got != target {
		t.Errorf("BranchTarget() = %d, want %d", got, target)
	}
}

func TestCodeBackwardJump(t *testing.T) {
	c := NewCode(1)
	loop := c.CurrentOffset()
	c.Emit(OpNop)
	placeholder := c.EmitJump(OpGoto)
	c.PatchJumpTo(placeholder, loop)

	in, err := c.Decode(1)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if got := in.BranchTarget(); got != loop {
		t.Errorf("BranchTarget() = %d, want %d", got, loop)
	}
}

func TestInstructionLocal(t *testing.T) {
	tests := []struct {
		code []byte
		want int
	}{
		{[]byte{byte(OpALoad0)}, 0},
		{[]byte{byte(OpALoad3)}, 3},
		{[]byte{byte(OpILoad2)}, 2},
		{[]byte{byte(OpAStore1)}, 1},
		{[]byte{byte(OpIStore3)}, 3},
		{[]byte{byte(OpALoad), 9}, 9},
		{[]byte{byte(OpAStore), 12}, 12},
		{[]byte{byte(OpIInc), 4, 1}, 4},
	}

	for _, tt := range tests {
		c := &Code{Bytes: tt.code}
		in, err := c.Decode(0)
		if err != nil {
			t.Fatalf("Decode(%v) error: %v", tt.code, err)
		}
		if got := in.Local(); got != tt.want {
			t.Errorf("%s.Local() = %d, want %d", in.Op, got, tt.want)
		}
	}
}

func TestInstructionLdcIndex(t *testing.T) {
	c := &Code{Bytes: []byte{byte(OpLdc), 0xFE, byte(OpLdcW), 0x01, 0x00}}
	ins, err := c.Instructions()
	if err != nil {
		t.Fatalf("Instructions() error: %v", err)
	}
	if ins[0].Index() != 0xFE {
		t.Errorf("LDC index = %d, want 254", ins[0].Index())
	}
	if ins[1].Index() != 0x100 {
		t.Errorf("LDC_W index = %d, want 256", ins[1].Index())
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want error
	}{
		{"truncated index", []byte{byte(OpGetField), 0x00}, ErrTruncated},
		{"truncated interface", []byte{byte(OpInvokeInterface), 0, 1, 1}, ErrTruncated},
		{"unknown opcode", []byte{0xEE}, ErrUnknownOpcode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Code{Bytes: tt.code}
			_, err := c.Instructions()
			if !errors.Is(err, tt.want) {
				t.Errorf("Instructions() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHandlerCovers(t *testing.T) {
	c := NewCode(1)
	c.AddHandler(2, 6, 10, 0)
	h := c.Handlers[0]

	for offset, want := range map[int]bool{1: false, 2: true, 5: true, 6: false} {
		if got := h.Covers(offset); got != want {
			t.Errorf("Covers(%d) = %v, want %v", offset, got, want)
		}
	}
}
