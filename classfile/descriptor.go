package classfile

import (
	"errors"
	"fmt"
)

// ErrBadDescriptor is returned for a malformed field or method descriptor.
var ErrBadDescriptor = errors.New("classfile: bad descriptor")

// MethodType is a parsed method descriptor.
type MethodType struct {
	Params []string // field descriptors, one per declared parameter
	Return string   // field descriptor, or "V"
}

// ReturnsReference reports whether the method returns an object or array.
func (t MethodType) ReturnsReference() bool {
	return IsReferenceType(t.Return)
}

// IsReferenceType reports whether a field descriptor names an object or array type.
func IsReferenceType(descriptor string) bool {
	return len(descriptor) > 0 && (descriptor[0] == 'L' || descriptor[0] == '[')
}

// ClassNameOf returns the internal class name of an object descriptor
// such as "Ljava/lang/String;".
func ClassNameOf(descriptor string) (string, bool) {
	if len(descriptor) < 3 || descriptor[0] != 'L' || descriptor[len(descriptor)-1] != ';' {
		return "", false
	}
	return descriptor[1 : len(descriptor)-1], true
}

// ParseMethodDescriptor parses a descriptor like "(ILjava/lang/Object;)V".
func ParseMethodDescriptor(desc string) (MethodType, error) {
	if len(desc) < 3 || desc[0] != '(' {
		return MethodType{}, fmt.Errorf("%q: %w", desc, ErrBadDescriptor)
	}
	var t MethodType
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := fieldTypeLen(desc, i)
		if err != nil {
			return MethodType{}, err
		}
		t.Params = append(t.Params, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return MethodType{}, fmt.Errorf("%q: missing ')': %w", desc, ErrBadDescriptor)
	}
	i++
	if desc[i:] == "V" {
		t.Return = "V"
		return t, nil
	}
	n, err := fieldTypeLen(desc, i)
	if err != nil {
		return MethodType{}, err
	}
	if i+n != len(desc) {
		return MethodType{}, fmt.Errorf("%q: trailing bytes: %w", desc, ErrBadDescriptor)
	}
	t.Return = desc[i:]
	return t, nil
}

// fieldTypeLen returns the length of the field descriptor starting at i.
func fieldTypeLen(desc string, i int) (int, error) {
	start := i
	for i < len(desc) && desc[i] == '[' {
		i++
	}
	if i >= len(desc) {
		return 0, fmt.Errorf("%q at %d: %w", desc, start, ErrBadDescriptor)
	}
	switch desc[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1 - start, nil
	case 'L':
		for j := i + 1; j < len(desc); j++ {
			if desc[j] == ';' {
				if j == i+1 {
					break
				}
				return j + 1 - start, nil
			}
		}
	}
	return 0, fmt.Errorf("%q at %d: %w", desc, start, ErrBadDescriptor)
}
