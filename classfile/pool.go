package classfile

import (
	"fmt"

	"github.com/chazu/optfacts/bytecode"
)

// ClassID, MethodID and FieldID are stable arena handles into a Pool.
// They are dense from zero and usable as map keys or slice indices.
type (
	ClassID  int32
	MethodID int32
	FieldID  int32
)

const (
	NoClass  ClassID  = -1
	NoMethod MethodID = -1
	NoField  FieldID  = -1
)

// ObjectClass is the root of every superclass chain.
const ObjectClass = "java/lang/Object"

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

// Class is a class or interface in the pool.
type Class struct {
	ID        ClassID
	Name      string
	Super     string // "" for the root class
	Flags     AccessFlags
	Library   bool // present for resolution only, never analysed
	Constants ConstantPool
	Fields    []FieldID
	Methods   []MethodID
}

// Field is a field declared by a class.
type Field struct {
	ID         FieldID
	Class      ClassID
	Owner      string
	Name       string
	Descriptor string
	Flags      AccessFlags
}

func (f *Field) IsStatic() bool { return f.Flags.IsStatic() }

func (f *Field) String() string {
	return f.Owner + "." + f.Name + ":" + f.Descriptor
}

// Method is a method declared by a class. Code is nil for abstract and
// native methods and for library methods whose body is not available.
type Method struct {
	ID         MethodID
	Class      ClassID
	Owner      string
	Name       string
	Descriptor string
	Flags      AccessFlags
	Code       *bytecode.Code

	typ MethodType
}

func (m *Method) IsStatic() bool { return m.Flags.IsStatic() }

// Type returns the parsed descriptor.
func (m *Method) Type() MethodType { return m.typ }

// ArgCount returns the number of logical arguments, counting the receiver
// of an instance method as argument 0.
func (m *Method) ArgCount() int {
	n := len(m.typ.Params)
	if !m.IsStatic() {
		n++
	}
	return n
}

// Signature returns "owner.name(descriptor)", the key used by seeds and
// fact export.
func (m *Method) Signature() string {
	return m.Owner + "." + m.Name + m.Descriptor
}

func (m *Method) String() string { return m.Signature() }

// ---------------------------------------------------------------------------
// Pool
// ---------------------------------------------------------------------------

// Pool is the whole program plus any library classes it references.
// A Pool is built once and then only read, so it is safe for concurrent
// readers.
type Pool struct {
	classes []*Class
	fields  []*Field
	methods []*Method
	byName  map[string]ClassID
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{byName: make(map[string]ClassID)}
}

// AddClass defines a class. If the name is already taken the existing class
// is returned unchanged.
func (p *Pool) AddClass(name, super string, flags AccessFlags) *Class {
	if id, ok := p.byName[name]; ok {
		return p.classes[id]
	}
	c := &Class{
		ID:    ClassID(len(p.classes)),
		Name:  name,
		Super: super,
		Flags: flags,
	}
	p.classes = append(p.classes, c)
	p.byName[name] = c.ID
	return c
}

// AddField declares a field on c.
func (p *Pool) AddField(c *Class, name, descriptor string, flags AccessFlags) *Field {
	f := &Field{
		ID:         FieldID(len(p.fields)),
		Class:      c.ID,
		Owner:      c.Name,
		Name:       name,
		Descriptor: descriptor,
		Flags:      flags,
	}
	p.fields = append(p.fields, f)
	c.Fields = append(c.Fields, f.ID)
	return f
}

// AddMethod declares a method on c.
func (p *Pool) AddMethod(c *Class, name, descriptor string, flags AccessFlags, code *bytecode.Code) (*Method, error) {
	typ, err := ParseMethodDescriptor(descriptor)
	if err != nil {
		return nil, fmt.Errorf("method %s.%s: %w", c.Name, name, err)
	}
	m := &Method{
		ID:         MethodID(len(p.methods)),
		Class:      c.ID,
		Owner:      c.Name,
		Name:       name,
		Descriptor: descriptor,
		Flags:      flags,
		Code:       code,
		typ:        typ,
	}
	p.methods = append(p.methods, m)
	c.Methods = append(c.Methods, m.ID)
	return m, nil
}

// Class returns the class with the given handle.
func (p *Pool) Class(id ClassID) *Class { return p.classes[id] }

// Method returns the method with the given handle.
func (p *Pool) Method(id MethodID) *Method { return p.methods[id] }

// Field returns the field with the given handle.
func (p *Pool) Field(id FieldID) *Field { return p.fields[id] }

// ClassByName looks up a class by internal name.
func (p *Pool) ClassByName(name string) (*Class, bool) {
	id, ok := p.byName[name]
	if !ok {
		return nil, false
	}
	return p.classes[id], true
}

// Classes returns all classes in definition order.
func (p *Pool) Classes() []*Class { return p.classes }

// Methods returns all methods in definition order.
func (p *Pool) Methods() []*Method { return p.methods }

func (p *Pool) NumClasses() int { return len(p.classes) }
func (p *Pool) NumMethods() int { return len(p.methods) }
func (p *Pool) NumFields() int  { return len(p.fields) }

// ProgramMethods returns every method with a body declared by a
// non-library class. These are the methods the analysis refines.
func (p *Pool) ProgramMethods() []*Method {
	var out []*Method
	for _, m := range p.methods {
		if m.Code != nil && !p.classes[m.Class].Library {
			out = append(out, m)
		}
	}
	return out
}

// MethodBySignature finds a declared method by its Signature string.
func (p *Pool) MethodBySignature(sig string) (*Method, bool) {
	for _, m := range p.methods {
		if m.Signature() == sig {
			return m, true
		}
	}
	return nil, false
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

// superChain calls fn for className and each superclass present in the
// pool until fn returns true. The walk stops at classes missing from the
// pool and never visits more classes than the pool holds, so cyclic input
// terminates.
func (p *Pool) superChain(className string, fn func(*Class) bool) {
	name := className
	for steps := 0; steps <= len(p.classes) && name != ""; steps++ {
		c, ok := p.ClassByName(name)
		if !ok || fn(c) {
			return
		}
		name = c.Super
	}
}

// LookupField finds the field name:descriptor declared by className or one
// of its superclasses.
func (p *Pool) LookupField(className, name, descriptor string) (*Field, bool) {
	var found *Field
	p.superChain(className, func(c *Class) bool {
		for _, id := range c.Fields {
			if f := p.fields[id]; f.Name == name && f.Descriptor == descriptor {
				found = f
				return true
			}
		}
		return false
	})
	return found, found != nil
}

// LookupMethod finds the method name+descriptor declared by className or
// one of its superclasses.
func (p *Pool) LookupMethod(className, name, descriptor string) (*Method, bool) {
	var found *Method
	p.superChain(className, func(c *Class) bool {
		for _, id := range c.Methods {
			if m := p.methods[id]; m.Name == name && m.Descriptor == descriptor {
				found = m
				return true
			}
		}
		return false
	})
	return found, found != nil
}

// IsSubclassOf reports whether className is super or inherits from it.
func (p *Pool) IsSubclassOf(className, super string) bool {
	name := className
	for steps := 0; steps <= len(p.classes) && name != ""; steps++ {
		if name == super {
			return true
		}
		c, ok := p.ClassByName(name)
		if !ok {
			return false
		}
		name = c.Super
	}
	return false
}

// Constant returns constant index of class cls.
func (p *Pool) Constant(cls ClassID, index uint16) (Constant, error) {
	c, err := p.classes[cls].Constants.At(index)
	if err != nil {
		return Constant{}, fmt.Errorf("%s: %w", p.classes[cls].Name, err)
	}
	return c, nil
}

// ResolveField resolves a Fieldref constant of class cls. The field is nil
// when the reference names a member outside the pool.
func (p *Pool) ResolveField(cls ClassID, index uint16) (*Field, Constant, error) {
	c, err := p.Constant(cls, index)
	if err != nil {
		return nil, Constant{}, err
	}
	if c.Kind != ConstFieldRef {
		return nil, c, fmt.Errorf("%s: #%d is %s, want Fieldref: %w", p.classes[cls].Name, index, c.Kind, ErrBadConstant)
	}
	f, _ := p.LookupField(c.Class, c.Name, c.Descriptor)
	return f, c, nil
}

// ResolveMethod resolves the call-site constant of an invoke instruction.
// The returned MethodType always reflects the call-site descriptor; the
// method is nil for dynamic call sites and for targets outside the pool.
func (p *Pool) ResolveMethod(cls ClassID, index uint16) (*Method, MethodType, error) {
	c, err := p.Constant(cls, index)
	if err != nil {
		return nil, MethodType{}, err
	}
	switch c.Kind {
	case ConstMethodRef, ConstInterfaceMethodRef, ConstInvokeDynamic:
	default:
		return nil, MethodType{}, fmt.Errorf("%s: #%d is %s, want a method reference: %w", p.classes[cls].Name, index, c.Kind, ErrBadConstant)
	}
	typ, err := ParseMethodDescriptor(c.Descriptor)
	if err != nil {
		return nil, MethodType{}, fmt.Errorf("%s: #%d: %w", p.classes[cls].Name, index, err)
	}
	if c.Kind == ConstInvokeDynamic {
		return nil, typ, nil
	}
	m, _ := p.LookupMethod(c.Class, c.Name, c.Descriptor)
	return m, typ, nil
}

// ConstantName renders constants of class cls for disassembly listings.
func (p *Pool) ConstantName(cls ClassID) bytecode.ConstantNamer {
	return func(index uint16) string {
		c, err := p.classes[cls].Constants.At(index)
		if err != nil {
			return ""
		}
		return c.String()
	}
}
