package facts

import "github.com/chazu/optfacts/classfile"

// ClassFacts holds the structural facts of one class.
type ClassFacts struct {
	policy         Policy
	packageVisible bool
	simpleEnum     bool
	wrapped        classfile.ClassID
}

// NewClassFacts creates an unmarked record with the given policy.
func NewClassFacts(p Policy) *ClassFacts {
	return &ClassFacts{policy: p, wrapped: classfile.NoClass}
}

func (c *ClassFacts) Policy() Policy { return c.policy }

// SetContainsPackageVisibleMembers marks the class. It reports whether the
// mark is new.
func (c *ClassFacts) SetContainsPackageVisibleMembers() bool {
	return setFlag(&c.packageVisible)
}

// ContainsPackageVisibleMembers is always true for classes that were never
// analysed.
func (c *ClassFacts) ContainsPackageVisibleMembers() bool {
	return c.policy == Conservative || c.packageVisible
}

func (c *ClassFacts) SetSimpleEnum(v bool) { c.simpleEnum = v }
func (c *ClassFacts) IsSimpleEnum() bool   { return c.simpleEnum }

// SetWrappedClass records the class this one purely wraps, or NoClass.
func (c *ClassFacts) SetWrappedClass(id classfile.ClassID) { c.wrapped = id }
func (c *ClassFacts) WrappedClass() classfile.ClassID     { return c.wrapped }
