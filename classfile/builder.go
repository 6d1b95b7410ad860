package classfile

import "github.com/chazu/optfacts/bytecode"

// Builder assembles a Pool. The first error is kept and reported by Build,
// so definitions can be chained without checking each step.
type Builder struct {
	pool *Pool
	err  error
}

// NewBuilder creates a builder over an empty pool.
func NewBuilder() *Builder {
	return &Builder{pool: NewPool()}
}

// Class starts (or reopens) a program class.
func (b *Builder) Class(name, super string, flags AccessFlags) *ClassBuilder {
	return &ClassBuilder{b: b, c: b.pool.AddClass(name, super, flags)}
}

// LibraryClass starts a class that is available for resolution only.
func (b *Builder) LibraryClass(name, super string, flags AccessFlags) *ClassBuilder {
	cb := b.Class(name, super, flags)
	cb.c.Library = true
	return cb
}

// Build returns the pool, or the first definition error.
func (b *Builder) Build() (*Pool, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.pool, nil
}

// ClassBuilder adds members and constants to one class.
type ClassBuilder struct {
	b *Builder
	c *Class
}

// ID returns the class handle.
func (cb *ClassBuilder) ID() ClassID { return cb.c.ID }

// Field declares a field.
func (cb *ClassBuilder) Field(name, descriptor string, flags AccessFlags) FieldID {
	return cb.b.pool.AddField(cb.c, name, descriptor, flags).ID
}

// Method declares a method. code may be nil.
func (cb *ClassBuilder) Method(name, descriptor string, flags AccessFlags, code *bytecode.Code) MethodID {
	m, err := cb.b.pool.AddMethod(cb.c, name, descriptor, flags, code)
	if err != nil {
		if cb.b.err == nil {
			cb.b.err = err
		}
		return NoMethod
	}
	return m.ID
}

// Constant adds c to the class constant pool and returns its index.
func (cb *ClassBuilder) Constant(c Constant) uint16 {
	return cb.c.Constants.Add(c)
}

func (cb *ClassBuilder) FieldRef(class, name, descriptor string) uint16 {
	return cb.Constant(FieldRefConstant(class, name, descriptor))
}

func (cb *ClassBuilder) MethodRef(class, name, descriptor string) uint16 {
	return cb.Constant(MethodRefConstant(class, name, descriptor))
}

func (cb *ClassBuilder) InterfaceMethodRef(class, name, descriptor string) uint16 {
	return cb.Constant(InterfaceMethodRefConstant(class, name, descriptor))
}

func (cb *ClassBuilder) StringConst(s string) uint16 {
	return cb.Constant(StringConstant(s))
}

func (cb *ClassBuilder) ClassRef(name string) uint16 {
	return cb.Constant(ClassConstant(name))
}
