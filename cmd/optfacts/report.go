package main

import (
	"fmt"
	"io"

	"github.com/chazu/optfacts/classfile"
	"github.com/chazu/optfacts/facts"
)

// writeReport prints one line per program class, method and field.
func writeReport(w io.Writer, pool *classfile.Pool, table *facts.Table) {
	fields := table.Fields()
	for _, cls := range pool.Classes() {
		if cls.Library {
			continue
		}
		cf := table.Class(cls.ID)
		fmt.Fprintf(w, "class %s", cls.Name)
		if cf.ContainsPackageVisibleMembers() {
			fmt.Fprint(w, " package-visible")
		}
		if cf.IsSimpleEnum() {
			fmt.Fprint(w, " simple-enum")
		}
		if id := cf.WrappedClass(); id != classfile.NoClass {
			fmt.Fprintf(w, " wraps=%s", pool.Class(id).Name)
		}
		fmt.Fprintln(w)

		for _, id := range cls.Fields {
			f := pool.Field(id)
			fmt.Fprintf(w, "  field %s %s read=%v written=%v\n", f.Name, f.Descriptor, fields.IsRead(id), fields.IsWritten(id))
		}
		for _, id := range cls.Methods {
			m := pool.Method(id)
			if m.Code == nil {
				continue
			}
			fmt.Fprintf(w, "  method %s%s %s\n", m.Name, m.Descriptor, table.Method(id))
		}
	}
	read, written := fields.Counts()
	fmt.Fprintf(w, "fields: %d read, %d written of %d\n", read, written, pool.NumFields())
}

func writeDisassembly(w io.Writer, pool *classfile.Pool) {
	for _, m := range pool.ProgramMethods() {
		fmt.Fprintln(w, m.Code.DisassembleWithName(m.Signature(), pool.ConstantName(m.Class)))
	}
}
