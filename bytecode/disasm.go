package bytecode

import (
	"fmt"
	"strings"
)

// ConstantNamer renders the constant pool entry at index for listings.
// It returns "" when the index does not resolve.
type ConstantNamer func(index uint16) string

// Disassemble returns a human-readable bytecode listing for the code attribute.
func (c *Code) Disassemble() string {
	return c.DisassembleWithName("", nil)
}

// DisassembleWithName returns a listing with a name header, resolving
// constant pool operands through names when it is non-nil.
func (c *Code) DisassembleWithName(name string, names ConstantNamer) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; max_stack=%d max_locals=%d\n", c.MaxStack, c.MaxLocals))

	if len(c.Handlers) > 0 {
		sb.WriteString("; Handlers:\n")
		for _, h := range c.Handlers {
			catch := "any"
			if h.CatchType != 0 {
				catch = fmt.Sprintf("#%d", h.CatchType)
				if names != nil {
					if n := names(h.CatchType); n != "" {
						catch = n
					}
				}
			}
			sb.WriteString(fmt.Sprintf(";   [%04X, %04X) -> %04X %s\n", h.StartPC, h.EndPC, h.HandlerPC, catch))
		}
	}
	sb.WriteString("\n")

	sb.WriteString("; Code:\n")
	offset := 0
	for offset < len(c.Bytes) {
		in, err := c.Decode(offset)
		if err != nil {
			sb.WriteString(fmt.Sprintf("%04X  <%v>\n", offset, err))
			break
		}
		sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, disassembleInstruction(in, names)))
		offset = in.Next()
	}

	return sb.String()
}

// disassembleInstruction formats a single decoded instruction.
func disassembleInstruction(in Instruction, names ConstantNamer) string {
	op := in.Op
	switch {
	case op.IsBranch():
		delta := in.BranchTarget() - in.Offset
		return fmt.Sprintf("%s %+d (-> %04X)", op, delta, in.BranchTarget())

	case op.IsConstantLoad(), op.IsFieldAccess(), op == OpNew, op == OpANewArray,
		op == OpCheckCast, op == OpInstanceOf:
		return withConstant(op.String(), in.Index(), names)

	case op.IsInvoke():
		s := withConstant(op.String(), in.Index(), names)
		if op == OpInvokeInterface {
			s += fmt.Sprintf(" count=%d", in.Operands[2])
		}
		return s

	case op == OpMultiANewArray:
		return withConstant(op.String(), in.Index(), names) + fmt.Sprintf(" dims=%d", in.Dimensions())

	case op == OpIInc:
		return fmt.Sprintf("IINC %d %+d", in.Operands[0], int8(in.Operands[1]))

	case op == OpBIPush:
		return fmt.Sprintf("BIPUSH %d", int8(in.Operands[0]))

	case op == OpSIPush:
		return fmt.Sprintf("SIPUSH %d", int16(uint16(in.Operands[0])<<8|uint16(in.Operands[1])))

	case op == OpNewArray:
		return fmt.Sprintf("NEWARRAY %d", in.Operands[0])

	case op.OperandLen() == 1:
		// Wide-form local loads and stores.
		return fmt.Sprintf("%s %d", op, in.Operands[0])
	}
	return op.String()
}

func withConstant(opName string, index uint16, names ConstantNamer) string {
	if names != nil {
		if n := names(index); n != "" {
			return fmt.Sprintf("%s #%d ; %s", opName, index, n)
		}
	}
	return fmt.Sprintf("%s #%d", opName, index)
}
