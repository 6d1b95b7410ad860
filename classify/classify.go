// Package classify derives class and method facts directly from static
// structure. None of these classifiers iterate: each visits its target once
// and records a verdict.
package classify

import (
	"github.com/chazu/optfacts/classfile"
	"github.com/chazu/optfacts/facts"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("optfacts.classify")

// EnumClass is the superclass of every enum.
const EnumClass = "java/lang/Enum"

// MarkPackageVisibility marks cls as containing package-visible members if
// the class itself is not public, or if any of its fields or methods is
// neither public nor private. A member carrying both the public and the
// private bit is treated as not package-visible.
func MarkPackageVisibility(pool *classfile.Pool, table *facts.Table, cls *classfile.Class) bool {
	cf := table.Class(cls.ID)
	if !cls.Flags.IsPublic() {
		return cf.SetContainsPackageVisibleMembers()
	}
	for _, id := range cls.Fields {
		if f := pool.Field(id); f.Flags.IsPackageVisible() {
			log.Debugf("%s: package-visible field %s", cls.Name, f.Name)
			return cf.SetContainsPackageVisibleMembers()
		}
	}
	for _, id := range cls.Methods {
		if m := pool.Method(id); m.Flags.IsPackageVisible() {
			log.Debugf("%s: package-visible method %s%s", cls.Name, m.Name, m.Descriptor)
			return cf.SetContainsPackageVisibleMembers()
		}
	}
	return false
}

// SetSimpleEnum records the simple-enum verdict for a class, replacing any
// earlier one.
func SetSimpleEnum(table *facts.Table, id classfile.ClassID, simple bool) {
	table.Class(id).SetSimpleEnum(simple)
}

// SetWrappedClass records the class that id purely wraps. Pass
// classfile.NoClass to clear it.
func SetWrappedClass(table *facts.Table, id, wrapped classfile.ClassID) {
	table.Class(id).SetWrappedClass(wrapped)
}

// DetectSimpleEnum reports whether cls is an enum whose constants carry no
// state of their own: it extends Enum directly and declares no instance
// fields.
func DetectSimpleEnum(pool *classfile.Pool, cls *classfile.Class) bool {
	if !cls.Flags.Has(classfile.AccEnum) || cls.Super != EnumClass {
		return false
	}
	for _, id := range cls.Fields {
		if !pool.Field(id).IsStatic() {
			return false
		}
	}
	return true
}

// DetectWrappedClass returns the class that cls purely wraps: a concrete
// class whose only instance field holds an instance of another pool class.
// It returns classfile.NoClass otherwise.
func DetectWrappedClass(pool *classfile.Pool, cls *classfile.Class) classfile.ClassID {
	if cls.Flags.Has(classfile.AccInterface) || cls.Flags.IsAbstract() {
		return classfile.NoClass
	}
	var only *classfile.Field
	for _, id := range cls.Fields {
		f := pool.Field(id)
		if f.IsStatic() {
			continue
		}
		if only != nil {
			return classfile.NoClass
		}
		only = f
	}
	if only == nil {
		return classfile.NoClass
	}
	name, ok := classfile.ClassNameOf(only.Descriptor)
	if !ok || name == cls.Name {
		return classfile.NoClass
	}
	wrapped, ok := pool.ClassByName(name)
	if !ok {
		return classfile.NoClass
	}
	return wrapped.ID
}

// Classes runs every structural classifier over the program classes of
// pool and returns how many classes were newly marked package-visible.
func Classes(pool *classfile.Pool, table *facts.Table) int {
	marked := 0
	for _, cls := range pool.Classes() {
		if cls.Library {
			continue
		}
		table.RegisterProgramClass(cls.ID)
		if MarkPackageVisibility(pool, table, cls) {
			marked++
		}
		SetSimpleEnum(table, cls.ID, DetectSimpleEnum(pool, cls))
		SetWrappedClass(table, cls.ID, DetectWrappedClass(pool, cls))
	}
	log.Infof("classified %d classes, %d with package-visible members", pool.NumClasses(), marked)
	return marked
}
