package bytecode

import (
	"strings"
	"testing"
)

func TestDisassembleEmpty(t *testing.T) {
	c := NewCode(0)
	output := c.Disassemble()

	if !strings.Contains(output, "max_locals=0") {
		t.Error("Disassembly missing header")
	}
	if !strings.Contains(output, "; Code:") {
		t.Error("Disassembly missing code section")
	}
}

func TestDisassembleSimple(t *testing.T) {
	c := NewCode(2)
	c.Emit(OpALoad0)
	c.Emit(OpALoad1)
	c.EmitIndex(OpPutField, 3)
	c.Emit(OpReturn)

	output := c.Disassemble()

	for _, want := range []string{"0000  ALOAD_0", "0001  ALOAD_1", "0002  PUTFIELD #3", "0005  RETURN"} {
		if !strings.Contains(output, want) {
			t.Errorf("Missing %q in:\n%s", want, output)
		}
	}
}

func TestDisassembleResolvesConstants(t *testing.T) {
	c := NewCode(1)
	c.EmitInvoke(OpInvokeVirtual, 4, 0)
	c.Emit(OpReturn)

	names := func(index uint16) string {
		if index == 4 {
			return "java/lang/StringBuilder.append"
		}
		return ""
	}
	output := c.DisassembleWithName("Demo.run", names)

	if !strings.Contains(output, "; === Demo.run ===") {
		t.Error("Missing name header")
	}
	if !strings.Contains(output, "INVOKEVIRTUAL #4 ; java/lang/StringBuilder.append") {
		t.Errorf("Missing resolved invoke in:\n%s", output)
	}
}

func TestDisassembleBranchAndHandlers(t *testing.T) {
	c := NewCode(1)
	c.Emit(OpALoad0)
	placeholder := c.EmitJump(OpIfNonNull)
	c.Emit(OpReturn)
	c.PatchJump(placeholder)
	c.Emit(OpReturn)
	c.AddHandler(0, 4, 5, 0)

	output := c.Disassemble()

	if !strings.Contains(output, "IFNONNULL +4 (-> 0005)") {
		t.Errorf("Missing branch target in:\n%s", output)
	}
	if !strings.Contains(output, "[0000, 0004) -> 0005 any") {
		t.Errorf("Missing handler in:\n%s", output)
	}
}

func TestDisassembleTruncated(t *testing.T) {
	c := &Code{Bytes: []byte{byte(OpNop), byte(OpGetField)}}
	output := c.Disassemble()
	if !strings.Contains(output, "truncated") {
		t.Errorf("Expected truncation marker in:\n%s", output)
	}
}
