package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncated is returned when an instruction's operands run past the end
// of the code section.
var ErrTruncated = errors.New("bytecode: truncated instruction")

// ErrUnknownOpcode is returned when decoding meets a byte with no opcode entry.
var ErrUnknownOpcode = errors.New("bytecode: unknown opcode")

// Handler is one entry of a method's exception table. Instructions in
// [StartPC, EndPC) that may throw continue at HandlerPC.
type Handler struct {
	StartPC   uint16 `cbor:"start"`
	EndPC     uint16 `cbor:"end"`
	HandlerPC uint16 `cbor:"handler"`
	CatchType uint16 `cbor:"catch"` // constant pool class index, 0 catches everything
}

// Covers reports whether the handler protects the instruction at offset.
func (h Handler) Covers(offset int) bool {
	return offset >= int(h.StartPC) && offset < int(h.EndPC)
}

// Code is the code attribute of a method: the instruction bytes plus the
// exception table. Constant pool indices inside instructions refer to the
// pool of the declaring class.
type Code struct {
	MaxStack  uint16    `cbor:"max_stack"`
	MaxLocals uint16    `cbor:"max_locals"`
	Bytes     []byte    `cbor:"bytes"`
	Handlers  []Handler `cbor:"handlers,omitempty"`
}

// NewCode creates an empty code attribute.
func NewCode(maxLocals uint16) *Code {
	return &Code{
		MaxLocals: maxLocals,
		Bytes:     make([]byte, 0, 64),
	}
}

// Emit appends a single-byte opcode to the code section.
func (c *Code) Emit(op Opcode) int {
	offset := len(c.Bytes)
	c.Bytes = append(c.Bytes, byte(op))
	return offset
}

// EmitWithOperand appends an opcode with operand bytes.
func (c *Code) EmitWithOperand(op Opcode, operands ...byte) int {
	offset := len(c.Bytes)
	c.Bytes = append(c.Bytes, byte(op))
	c.Bytes = append(c.Bytes, operands...)
	return offset
}

// EmitIndex appends an opcode followed by a big-endian u16 operand, the
// shape of every constant-pool referencing instruction.
func (c *Code) EmitIndex(op Opcode, index uint16) int {
	return c.EmitWithOperand(op, byte(index>>8), byte(index))
}

// EmitInvoke appends an invocation. INVOKEINTERFACE and INVOKEDYNAMIC get
// their two trailing operand bytes; count is only meaningful for the former.
func (c *Code) EmitInvoke(op Opcode, index uint16, count uint8) int {
	switch op {
	case OpInvokeInterface:
		return c.EmitWithOperand(op, byte(index>>8), byte(index), count, 0)
	case OpInvokeDynamic:
		return c.EmitWithOperand(op, byte(index>>8), byte(index), 0, 0)
	}
	return c.EmitIndex(op, index)
}

// EmitJump emits a branch instruction with a placeholder offset.
// Returns the offset of the placeholder for later patching.
func (c *Code) EmitJump(op Opcode) int {
	offset := len(c.Bytes)
	c.Bytes = append(c.Bytes, byte(op), 0xFF, 0xFF)
	return offset + 1
}

// PatchJump patches a branch to jump to the current position.
// Branch offsets are relative to the branch opcode itself.
func (c *Code) PatchJump(placeholderOffset int) {
	c.PatchJumpTo(placeholderOffset, len(c.Bytes))
}

// PatchJumpTo patches a branch to go to a specific offset.
func (c *Code) PatchJumpTo(placeholderOffset int, target int) {
	delta := target - (placeholderOffset - 1)
	c.Bytes[placeholderOffset] = byte(delta >> 8)
	c.Bytes[placeholderOffset+1] = byte(delta)
}

// AddHandler appends an exception table entry.
func (c *Code) AddHandler(start, end, handler int, catchType uint16) {
	c.Handlers = append(c.Handlers, Handler{
		StartPC:   uint16(start),
		EndPC:     uint16(end),
		HandlerPC: uint16(handler),
		CatchType: catchType,
	})
}

// CurrentOffset returns the current offset in the code section.
func (c *Code) CurrentOffset() int {
	return len(c.Bytes)
}

// Instruction is a decoded instruction.
type Instruction struct {
	Offset   int
	Op       Opcode
	Operands []byte
}

// Len returns the encoded length of the instruction.
func (in Instruction) Len() int {
	return 1 + len(in.Operands)
}

// Next returns the offset of the following instruction.
func (in Instruction) Next() int {
	return in.Offset + in.Len()
}

// Index returns the constant pool index operand. LDC carries a one-byte
// index, every other pool-referencing instruction a two-byte one.
func (in Instruction) Index() uint16 {
	if in.Op == OpLdc {
		return uint16(in.Operands[0])
	}
	return binary.BigEndian.Uint16(in.Operands)
}

// Local returns the local variable slot read or written by a load, store
// or IINC instruction.
func (in Instruction) Local() int {
	switch in.Op {
	case OpILoad0, OpILoad1, OpILoad2, OpILoad3:
		return int(in.Op - OpILoad0)
	case OpALoad0, OpALoad1, OpALoad2, OpALoad3:
		return int(in.Op - OpALoad0)
	case OpIStore0, OpIStore1, OpIStore2, OpIStore3:
		return int(in.Op - OpIStore0)
	case OpAStore0, OpAStore1, OpAStore2, OpAStore3:
		return int(in.Op - OpAStore0)
	}
	return int(in.Operands[0])
}

// IsLoad returns true for the local variable load family.
func (in Instruction) IsLoad() bool {
	return (in.Op >= OpILoad && in.Op <= OpILoad3) || (in.Op >= OpALoad0 && in.Op <= OpALoad3)
}

// IsStore returns true for the local variable store family.
func (in Instruction) IsStore() bool {
	return in.Op == OpIStore || in.Op == OpAStore ||
		(in.Op >= OpIStore0 && in.Op <= OpIStore3) || (in.Op >= OpAStore0 && in.Op <= OpAStore3)
}

// BranchTarget returns the absolute target of a branch instruction.
func (in Instruction) BranchTarget() int {
	delta := int16(binary.BigEndian.Uint16(in.Operands))
	return in.Offset + int(delta)
}

// Dimensions returns the dimension count of MULTIANEWARRAY.
func (in Instruction) Dimensions() int {
	return int(in.Operands[2])
}

// Decode decodes the instruction at offset.
func (c *Code) Decode(offset int) (Instruction, error) {
	if offset < 0 || offset >= len(c.Bytes) {
		return Instruction{}, fmt.Errorf("decode at %d: %w", offset, ErrTruncated)
	}
	op := Opcode(c.Bytes[offset])
	if !op.IsDefined() {
		return Instruction{}, fmt.Errorf("decode at %d: 0x%02X: %w", offset, byte(op), ErrUnknownOpcode)
	}
	end := offset + op.InstructionLen()
	if end > len(c.Bytes) {
		return Instruction{}, fmt.Errorf("decode %s at %d: %w", op, offset, ErrTruncated)
	}
	return Instruction{Offset: offset, Op: op, Operands: c.Bytes[offset+1 : end]}, nil
}

// Instructions decodes the whole code section in order.
func (c *Code) Instructions() ([]Instruction, error) {
	var out []Instruction
	for offset := 0; offset < len(c.Bytes); {
		in, err := c.Decode(offset)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
		offset = in.Next()
	}
	return out, nil
}
