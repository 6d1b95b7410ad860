package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcode values follow the classic class-file numbering so that listings
// produced by other tools can be compared byte for byte.
type Opcode byte

const (
	// ========================================================================
	// Constants (0x00-0x14)
	// ========================================================================

	OpNop        Opcode = 0x00 // No operation
	OpAConstNull Opcode = 0x01 // Push null reference
	OpIConstM1   Opcode = 0x02 // Push int -1
	OpIConst0    Opcode = 0x03 // Push int 0
	OpIConst1    Opcode = 0x04 // Push int 1
	OpIConst2    Opcode = 0x05 // Push int 2
	OpIConst3    Opcode = 0x06 // Push int 3
	OpIConst4    Opcode = 0x07 // Push int 4
	OpIConst5    Opcode = 0x08 // Push int 5
	OpLConst0    Opcode = 0x09 // Push long 0
	OpLConst1    Opcode = 0x0A // Push long 1
	OpBIPush     Opcode = 0x10 // Push byte: OpBIPush <value:i8>
	OpSIPush     Opcode = 0x11 // Push short: OpSIPush <value:i16>
	OpLdc        Opcode = 0x12 // Push constant: OpLdc <index:u8>
	OpLdcW       Opcode = 0x13 // Push constant: OpLdcW <index:u16>
	OpLdc2W      Opcode = 0x14 // Push wide constant: OpLdc2W <index:u16>

	// ========================================================================
	// Local loads (0x15-0x2D)
	// ========================================================================

	OpILoad  Opcode = 0x15 // Push int local: OpILoad <slot:u8>
	OpLLoad  Opcode = 0x16 // Push long local: OpLLoad <slot:u8>
	OpFLoad  Opcode = 0x17 // Push float local: OpFLoad <slot:u8>
	OpDLoad  Opcode = 0x18 // Push double local: OpDLoad <slot:u8>
	OpALoad  Opcode = 0x19 // Push reference local: OpALoad <slot:u8>
	OpILoad0 Opcode = 0x1A
	OpILoad1 Opcode = 0x1B
	OpILoad2 Opcode = 0x1C
	OpILoad3 Opcode = 0x1D
	OpALoad0 Opcode = 0x2A
	OpALoad1 Opcode = 0x2B
	OpALoad2 Opcode = 0x2C
	OpALoad3 Opcode = 0x2D

	// ========================================================================
	// Array loads (0x2E-0x35)
	// ========================================================================

	OpIALoad Opcode = 0x2E // array index -> int element
	OpAALoad Opcode = 0x32 // array index -> reference element

	// ========================================================================
	// Local stores (0x36-0x4E)
	// ========================================================================

	OpIStore  Opcode = 0x36 // Pop int to local: OpIStore <slot:u8>
	OpAStore  Opcode = 0x3A // Pop reference to local: OpAStore <slot:u8>
	OpIStore0 Opcode = 0x3B
	OpIStore1 Opcode = 0x3C
	OpIStore2 Opcode = 0x3D
	OpIStore3 Opcode = 0x3E
	OpAStore0 Opcode = 0x4B
	OpAStore1 Opcode = 0x4C
	OpAStore2 Opcode = 0x4D
	OpAStore3 Opcode = 0x4E

	// ========================================================================
	// Array stores (0x4F-0x56)
	// ========================================================================

	OpIAStore Opcode = 0x4F // array index value ->
	OpAAStore Opcode = 0x53 // array index reference ->

	// ========================================================================
	// Stack manipulation (0x57-0x5F)
	// ========================================================================

	OpPop   Opcode = 0x57 // Pop top of stack
	OpPop2  Opcode = 0x58 // Pop top two stack elements
	OpDup   Opcode = 0x59 // Duplicate top of stack
	OpDupX1 Opcode = 0x5A // a b -> b a b
	OpSwap  Opcode = 0x5F // Swap top two stack elements

	// ========================================================================
	// Arithmetic (0x60-0x84)
	// ========================================================================

	OpIAdd Opcode = 0x60
	OpISub Opcode = 0x64
	OpIMul Opcode = 0x68
	OpIDiv Opcode = 0x6C
	OpIRem Opcode = 0x70
	OpINeg Opcode = 0x74
	OpIInc Opcode = 0x84 // Increment local: OpIInc <slot:u8> <delta:i8>

	// ========================================================================
	// Control flow (0x99-0xA7, 0xC6-0xC7)
	// ========================================================================

	OpIfEq      Opcode = 0x99 // Branch if int == 0: <offset:i16>
	OpIfNe      Opcode = 0x9A
	OpIfLt      Opcode = 0x9B
	OpIfGe      Opcode = 0x9C
	OpIfGt      Opcode = 0x9D
	OpIfLe      Opcode = 0x9E
	OpIfICmpEq  Opcode = 0x9F
	OpIfICmpNe  Opcode = 0xA0
	OpIfACmpEq  Opcode = 0xA5
	OpIfACmpNe  Opcode = 0xA6
	OpGoto      Opcode = 0xA7 // Unconditional branch: <offset:i16>
	OpIfNull    Opcode = 0xC6
	OpIfNonNull Opcode = 0xC7

	// ========================================================================
	// Return (0xAC-0xB1)
	// ========================================================================

	OpIReturn Opcode = 0xAC
	OpLReturn Opcode = 0xAD
	OpFReturn Opcode = 0xAE
	OpDReturn Opcode = 0xAF
	OpAReturn Opcode = 0xB0 // Return reference on top of stack
	OpReturn  Opcode = 0xB1 // Return void

	// ========================================================================
	// Field access (0xB2-0xB5)
	// ========================================================================

	OpGetStatic Opcode = 0xB2 // Push static field: <fieldref:u16>
	OpPutStatic Opcode = 0xB3 // Pop into static field: <fieldref:u16>
	OpGetField  Opcode = 0xB4 // object -> field value: <fieldref:u16>
	OpPutField  Opcode = 0xB5 // object value ->: <fieldref:u16>

	// ========================================================================
	// Invocation (0xB6-0xBA)
	// ========================================================================

	OpInvokeVirtual   Opcode = 0xB6 // <methodref:u16>
	OpInvokeSpecial   Opcode = 0xB7 // <methodref:u16>
	OpInvokeStatic    Opcode = 0xB8 // <methodref:u16>
	OpInvokeInterface Opcode = 0xB9 // <methodref:u16> <count:u8> <0:u8>
	OpInvokeDynamic   Opcode = 0xBA // <callsite:u16> <0:u8> <0:u8>

	// ========================================================================
	// Objects and arrays (0xBB-0xC5)
	// ========================================================================

	OpNew            Opcode = 0xBB // Push new instance: <class:u16>
	OpNewArray       Opcode = 0xBC // count -> primitive array: <atype:u8>
	OpANewArray      Opcode = 0xBD // count -> reference array: <class:u16>
	OpArrayLength    Opcode = 0xBE // array -> length
	OpAThrow         Opcode = 0xBF // Throw reference on top of stack
	OpCheckCast      Opcode = 0xC0 // object -> object: <class:u16>
	OpInstanceOf     Opcode = 0xC1 // object -> int: <class:u16>
	OpMonitorEnter   Opcode = 0xC2
	OpMonitorExit    Opcode = 0xC3
	OpMultiANewArray Opcode = 0xC5 // counts... -> array: <class:u16> <dims:u8>
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // How many values popped from stack (-1 = variable)
	StackPush  int    // How many values pushed to stack (-1 = variable)
	OperandLen int    // Number of operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
// Every value occupies a single stack and local slot, wide values included.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Constants
	OpNop:        {"NOP", 0, 0, 0},
	OpAConstNull: {"ACONST_NULL", 0, 1, 0},
	OpIConstM1:   {"ICONST_M1", 0, 1, 0},
	OpIConst0:    {"ICONST_0", 0, 1, 0},
	OpIConst1:    {"ICONST_1", 0, 1, 0},
	OpIConst2:    {"ICONST_2", 0, 1, 0},
	OpIConst3:    {"ICONST_3", 0, 1, 0},
	OpIConst4:    {"ICONST_4", 0, 1, 0},
	OpIConst5:    {"ICONST_5", 0, 1, 0},
	OpLConst0:    {"LCONST_0", 0, 1, 0},
	OpLConst1:    {"LCONST_1", 0, 1, 0},
	OpBIPush:     {"BIPUSH", 0, 1, 1},
	OpSIPush:     {"SIPUSH", 0, 1, 2},
	OpLdc:        {"LDC", 0, 1, 1},
	OpLdcW:       {"LDC_W", 0, 1, 2},
	OpLdc2W:      {"LDC2_W", 0, 1, 2},

	// Local loads
	OpILoad:  {"ILOAD", 0, 1, 1},
	OpLLoad:  {"LLOAD", 0, 1, 1},
	OpFLoad:  {"FLOAD", 0, 1, 1},
	OpDLoad:  {"DLOAD", 0, 1, 1},
	OpALoad:  {"ALOAD", 0, 1, 1},
	OpILoad0: {"ILOAD_0", 0, 1, 0},
	OpILoad1: {"ILOAD_1", 0, 1, 0},
	OpILoad2: {"ILOAD_2", 0, 1, 0},
	OpILoad3: {"ILOAD_3", 0, 1, 0},
	OpALoad0: {"ALOAD_0", 0, 1, 0},
	OpALoad1: {"ALOAD_1", 0, 1, 0},
	OpALoad2: {"ALOAD_2", 0, 1, 0},
	OpALoad3: {"ALOAD_3", 0, 1, 0},

	// Array loads
	OpIALoad: {"IALOAD", 2, 1, 0},
	OpAALoad: {"AALOAD", 2, 1, 0},

	// Local stores
	OpIStore:  {"ISTORE", 1, 0, 1},
	OpAStore:  {"ASTORE", 1, 0, 1},
	OpIStore0: {"ISTORE_0", 1, 0, 0},
	OpIStore1: {"ISTORE_1", 1, 0, 0},
	OpIStore2: {"ISTORE_2", 1, 0, 0},
	OpIStore3: {"ISTORE_3", 1, 0, 0},
	OpAStore0: {"ASTORE_0", 1, 0, 0},
	OpAStore1: {"ASTORE_1", 1, 0, 0},
	OpAStore2: {"ASTORE_2", 1, 0, 0},
	OpAStore3: {"ASTORE_3", 1, 0, 0},

	// Array stores
	OpIAStore: {"IASTORE", 3, 0, 0},
	OpAAStore: {"AASTORE", 3, 0, 0},

	// Stack manipulation
	OpPop:   {"POP", 1, 0, 0},
	OpPop2:  {"POP2", 2, 0, 0},
	OpDup:   {"DUP", 1, 2, 0},
	OpDupX1: {"DUP_X1", 2, 3, 0},
	OpSwap:  {"SWAP", 2, 2, 0},

	// Arithmetic
	OpIAdd: {"IADD", 2, 1, 0},
	OpISub: {"ISUB", 2, 1, 0},
	OpIMul: {"IMUL", 2, 1, 0},
	OpIDiv: {"IDIV", 2, 1, 0},
	OpIRem: {"IREM", 2, 1, 0},
	OpINeg: {"INEG", 1, 1, 0},
	OpIInc: {"IINC", 0, 0, 2},

	// Control flow
	OpIfEq:      {"IFEQ", 1, 0, 2},
	OpIfNe:      {"IFNE", 1, 0, 2},
	OpIfLt:      {"IFLT", 1, 0, 2},
	OpIfGe:      {"IFGE", 1, 0, 2},
	OpIfGt:      {"IFGT", 1, 0, 2},
	OpIfLe:      {"IFLE", 1, 0, 2},
	OpIfICmpEq:  {"IF_ICMPEQ", 2, 0, 2},
	OpIfICmpNe:  {"IF_ICMPNE", 2, 0, 2},
	OpIfACmpEq:  {"IF_ACMPEQ", 2, 0, 2},
	OpIfACmpNe:  {"IF_ACMPNE", 2, 0, 2},
	OpGoto:      {"GOTO", 0, 0, 2},
	OpIfNull:    {"IFNULL", 1, 0, 2},
	OpIfNonNull: {"IFNONNULL", 1, 0, 2},

	// Return
	OpIReturn: {"IRETURN", 1, 0, 0},
	OpLReturn: {"LRETURN", 1, 0, 0},
	OpFReturn: {"FRETURN", 1, 0, 0},
	OpDReturn: {"DRETURN", 1, 0, 0},
	OpAReturn: {"ARETURN", 1, 0, 0},
	OpReturn:  {"RETURN", 0, 0, 0},

	// Field access
	OpGetStatic: {"GETSTATIC", 0, 1, 2},
	OpPutStatic: {"PUTSTATIC", 1, 0, 2},
	OpGetField:  {"GETFIELD", 1, 1, 2},
	OpPutField:  {"PUTFIELD", 2, 0, 2},

	// Invocation: stack effect depends on the method descriptor
	OpInvokeVirtual:   {"INVOKEVIRTUAL", -1, -1, 2},
	OpInvokeSpecial:   {"INVOKESPECIAL", -1, -1, 2},
	OpInvokeStatic:    {"INVOKESTATIC", -1, -1, 2},
	OpInvokeInterface: {"INVOKEINTERFACE", -1, -1, 4},
	OpInvokeDynamic:   {"INVOKEDYNAMIC", -1, -1, 4},

	// Objects and arrays
	OpNew:            {"NEW", 0, 1, 2},
	OpNewArray:       {"NEWARRAY", 1, 1, 1},
	OpANewArray:      {"ANEWARRAY", 1, 1, 2},
	OpArrayLength:    {"ARRAYLENGTH", 1, 1, 0},
	OpAThrow:         {"ATHROW", 1, 0, 0},
	OpCheckCast:      {"CHECKCAST", 1, 1, 2},
	OpInstanceOf:     {"INSTANCEOF", 1, 1, 2},
	OpMonitorEnter:   {"MONITORENTER", 1, 0, 0},
	OpMonitorExit:    {"MONITOREXIT", 1, 0, 0},
	OpMultiANewArray: {"MULTIANEWARRAY", -1, 1, 3}, // Pops <dims> counts
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op)), StackPop: 0, StackPush: 0, OperandLen: 0}
}

// IsDefined reports whether op has an entry in the opcode table.
func (op Opcode) IsDefined() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsBranch returns true if this opcode carries a relative branch offset.
func (op Opcode) IsBranch() bool {
	return (op >= OpIfEq && op <= OpGoto) || op == OpIfNull || op == OpIfNonNull
}

// IsReturn returns true if this opcode terminates execution normally.
func (op Opcode) IsReturn() bool {
	return op >= OpIReturn && op <= OpReturn
}

// IsInvoke returns true if this opcode is a method invocation.
func (op Opcode) IsInvoke() bool {
	return op >= OpInvokeVirtual && op <= OpInvokeDynamic
}

// IsFieldAccess returns true for the four field get/put instructions.
func (op Opcode) IsFieldAccess() bool {
	return op >= OpGetStatic && op <= OpPutField
}

// IsConstantLoad returns true for the constant pool load instructions.
func (op Opcode) IsConstantLoad() bool {
	return op == OpLdc || op == OpLdcW || op == OpLdc2W
}

// EndsBlock returns true if control never falls through to the next instruction.
func (op Opcode) EndsBlock() bool {
	return op == OpGoto || op == OpAThrow || op.IsReturn()
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
