package classfile

import (
	"errors"
	"fmt"
)

// ErrBadConstant is returned when an instruction refers to a constant pool
// entry that is missing or of the wrong kind.
var ErrBadConstant = errors.New("classfile: bad constant")

// ConstantKind tags a constant pool entry.
type ConstantKind uint8

const (
	ConstInvalid ConstantKind = iota
	ConstInteger
	ConstFloat
	ConstLong
	ConstDouble
	ConstString
	ConstClass
	ConstFieldRef
	ConstMethodRef
	ConstInterfaceMethodRef
	ConstMethodHandle
	ConstMethodType
	ConstInvokeDynamic
)

var constantKindNames = map[ConstantKind]string{
	ConstInvalid:            "Invalid",
	ConstInteger:            "Integer",
	ConstFloat:              "Float",
	ConstLong:               "Long",
	ConstDouble:             "Double",
	ConstString:             "String",
	ConstClass:              "Class",
	ConstFieldRef:           "Fieldref",
	ConstMethodRef:          "Methodref",
	ConstInterfaceMethodRef: "InterfaceMethodref",
	ConstMethodHandle:       "MethodHandle",
	ConstMethodType:         "MethodType",
	ConstInvokeDynamic:      "InvokeDynamic",
}

func (k ConstantKind) String() string {
	if s, ok := constantKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ConstantKind(%d)", uint8(k))
}

// Method handle reference kinds.
const (
	RefGetField         uint8 = 1
	RefGetStatic        uint8 = 2
	RefPutField         uint8 = 3
	RefPutStatic        uint8 = 4
	RefInvokeVirtual    uint8 = 5
	RefInvokeStatic     uint8 = 6
	RefInvokeSpecial    uint8 = 7
	RefNewInvokeSpecial uint8 = 8
	RefInvokeInterface  uint8 = 9
)

// Constant is one constant pool entry with its symbolic references already
// expanded to strings. Which fields are meaningful depends on Kind:
//
//	Integer..Double, String   Value
//	Class                     Class
//	Fieldref, Methodref, ...  Class, Name, Descriptor
//	MethodHandle              RefKind, Ref (index of the referenced member)
//	MethodType                Descriptor
//	InvokeDynamic             Name, Descriptor
type Constant struct {
	Kind       ConstantKind `cbor:"k"`
	Class      string       `cbor:"c,omitempty"`
	Name       string       `cbor:"n,omitempty"`
	Descriptor string       `cbor:"d,omitempty"`
	Value      string       `cbor:"v,omitempty"`
	RefKind    uint8        `cbor:"rk,omitempty"`
	Ref        uint16       `cbor:"r,omitempty"`
}

// IsReference reports whether loading the constant pushes a reference.
func (c Constant) IsReference() bool {
	switch c.Kind {
	case ConstString, ConstClass, ConstMethodHandle, ConstMethodType:
		return true
	}
	return false
}

// IsMemberRef reports whether the constant names a field or method.
func (c Constant) IsMemberRef() bool {
	return c.Kind == ConstFieldRef || c.Kind == ConstMethodRef || c.Kind == ConstInterfaceMethodRef
}

func (c Constant) String() string {
	switch c.Kind {
	case ConstClass:
		return c.Class
	case ConstString:
		return fmt.Sprintf("%q", c.Value)
	case ConstFieldRef, ConstMethodRef, ConstInterfaceMethodRef:
		return c.Class + "." + c.Name + ":" + c.Descriptor
	case ConstMethodHandle:
		return fmt.Sprintf("MethodHandle(%d, #%d)", c.RefKind, c.Ref)
	case ConstMethodType:
		return c.Descriptor
	case ConstInvokeDynamic:
		return c.Name + c.Descriptor
	}
	return c.Value
}

func IntConstant(v int32) Constant {
	return Constant{Kind: ConstInteger, Value: fmt.Sprint(v)}
}

func StringConstant(s string) Constant {
	return Constant{Kind: ConstString, Value: s}
}

func ClassConstant(name string) Constant {
	return Constant{Kind: ConstClass, Class: name}
}

func FieldRefConstant(class, name, descriptor string) Constant {
	return Constant{Kind: ConstFieldRef, Class: class, Name: name, Descriptor: descriptor}
}

func MethodRefConstant(class, name, descriptor string) Constant {
	return Constant{Kind: ConstMethodRef, Class: class, Name: name, Descriptor: descriptor}
}

func InterfaceMethodRefConstant(class, name, descriptor string) Constant {
	return Constant{Kind: ConstInterfaceMethodRef, Class: class, Name: name, Descriptor: descriptor}
}

func MethodHandleConstant(refKind uint8, ref uint16) Constant {
	return Constant{Kind: ConstMethodHandle, RefKind: refKind, Ref: ref}
}

func InvokeDynamicConstant(name, descriptor string) Constant {
	return Constant{Kind: ConstInvokeDynamic, Name: name, Descriptor: descriptor}
}

// ConstantPool is a class's constant pool, indexed from zero.
type ConstantPool []Constant

// At returns the constant at index.
func (cp ConstantPool) At(index uint16) (Constant, error) {
	if int(index) >= len(cp) || cp[index].Kind == ConstInvalid {
		return Constant{}, fmt.Errorf("constant #%d of %d: %w", index, len(cp), ErrBadConstant)
	}
	return cp[index], nil
}

// Add appends c, returning the index of an identical existing entry instead
// when there is one.
func (cp *ConstantPool) Add(c Constant) uint16 {
	for i, existing := range *cp {
		if existing == c {
			return uint16(i)
		}
	}
	*cp = append(*cp, c)
	return uint16(len(*cp) - 1)
}
