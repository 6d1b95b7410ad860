package bytecode

// MayThrow reports whether executing op can transfer control to an
// exception handler. Control-flow graph construction adds an implicit edge
// from every such instruction to each handler whose range covers it.
//
// Constant loads never throw here: resolution failures of the constant pool
// are linkage errors, not handler-visible exceptions.
func MayThrow(op Opcode) bool {
	switch op {
	case OpGetStatic, OpPutStatic, OpGetField, OpPutField:
		return true
	case OpInvokeVirtual, OpInvokeSpecial, OpInvokeStatic, OpInvokeInterface, OpInvokeDynamic:
		return true
	case OpNew, OpANewArray, OpMultiANewArray:
		return true
	case OpCheckCast, OpInstanceOf:
		return true
	}
	return false
}
