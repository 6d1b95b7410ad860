package facts

// Change counts the facts that went from false to true during one visit or
// one pass. The driver has converged once a whole pass reports no change.
type Change struct {
	Methods int
	Fields  int
}

// Any reports whether anything changed.
func (c Change) Any() bool { return c.Methods > 0 || c.Fields > 0 }

// Add accumulates o into c.
func (c *Change) Add(o Change) {
	c.Methods += o.Methods
	c.Fields += o.Fields
}

// Method counts one method fact if changed is true.
func (c *Change) Method(changed bool) {
	if changed {
		c.Methods++
	}
}

// Field counts one field fact if changed is true.
func (c *Change) Field(changed bool) {
	if changed {
		c.Fields++
	}
}
