package facts

import (
	"fmt"
	"math/bits"
	"strings"
)

// MaxParameters is the number of parameters a MethodFacts mask can describe.
// Queries about higher indices always get the worst-case answer.
const MaxParameters = 64

// Policy is the default a MethodFacts record falls back to for anything
// that has not been explicitly marked.
type Policy uint8

const (
	// Conservative assumes every bad thing happens. It is the zero value,
	// so an uninitialized record is always safe to consult.
	Conservative Policy = iota
	// Refined assumes nothing happens until evidence is marked.
	Refined
)

func (p Policy) String() string {
	if p == Refined {
		return "refined"
	}
	return "conservative"
}

// MethodFacts records what a method may do to its parameters and the heap.
// Parameter 0 is the receiver of an instance method.
//
// Marks only ever go from false to true. Every setter reports whether it
// changed anything so callers can feed the driver's convergence test.
type MethodFacts struct {
	policy Policy

	noSideEffects          bool
	noExternalSideEffects  bool
	modifiesAnything       bool
	returnsExternalValues  bool
	noExternalReturnValues bool

	modified uint64
	returned uint64
	escaped  uint64
}

// NewMethodFacts creates an unmarked record with the given policy.
func NewMethodFacts(p Policy) *MethodFacts {
	return &MethodFacts{policy: p}
}

func (f *MethodFacts) Policy() Policy { return f.policy }

func (f *MethodFacts) conservative() bool { return f.policy == Conservative }

func setFlag(flag *bool) bool {
	if *flag {
		return false
	}
	*flag = true
	return true
}

func setBit(mask *uint64, i int) bool {
	if i < 0 || i >= MaxParameters {
		return false
	}
	bit := uint64(1) << uint(i)
	if *mask&bit != 0 {
		return false
	}
	*mask |= bit
	return true
}

func hasBit(mask uint64, i int) bool {
	return mask&(uint64(1)<<uint(i)) != 0
}

func inRange(i int) bool { return i >= 0 && i < MaxParameters }

// ---------------------------------------------------------------------------
// Setters
// ---------------------------------------------------------------------------

func (f *MethodFacts) SetNoSideEffects() bool         { return setFlag(&f.noSideEffects) }
func (f *MethodFacts) SetNoExternalSideEffects() bool { return setFlag(&f.noExternalSideEffects) }
func (f *MethodFacts) SetModifiesAnything() bool      { return setFlag(&f.modifiesAnything) }
func (f *MethodFacts) SetReturnsExternalValues() bool { return setFlag(&f.returnsExternalValues) }

// SetNoExternalReturnValues overrides any past or future
// SetReturnsExternalValues.
func (f *MethodFacts) SetNoExternalReturnValues() bool {
	return setFlag(&f.noExternalReturnValues)
}

func (f *MethodFacts) SetParameterModified(i int) bool { return setBit(&f.modified, i) }
func (f *MethodFacts) SetParameterReturned(i int) bool { return setBit(&f.returned, i) }
func (f *MethodFacts) SetParameterEscaped(i int) bool  { return setBit(&f.escaped, i) }

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

func (f *MethodFacts) HasNoSideEffects() bool { return f.noSideEffects }

// HasNoExternalSideEffects is implied by HasNoSideEffects.
func (f *MethodFacts) HasNoExternalSideEffects() bool {
	return f.noSideEffects || f.noExternalSideEffects
}

func (f *MethodFacts) HasNoExternalReturnValues() bool { return f.noExternalReturnValues }

// IsParameterModified reports whether the contents of parameter i may be
// mutated. Under noExternalSideEffects only the receiver can be.
func (f *MethodFacts) IsParameterModified(i int) bool {
	if f.noSideEffects {
		return false
	}
	if f.noExternalSideEffects && i != 0 {
		return false
	}
	if f.conservative() || !inRange(i) {
		return true
	}
	return hasBit(f.modified, i) || (f.modifiesAnything && hasBit(f.escaped, i))
}

// IsParameterEscaped reports whether parameter i may become reachable from
// outside the method.
func (f *MethodFacts) IsParameterEscaped(i int) bool {
	if f.noSideEffects || f.noExternalSideEffects {
		return false
	}
	if f.conservative() || !inRange(i) {
		return true
	}
	return hasBit(f.escaped, i)
}

// IsParameterReturned reports whether the method may return parameter i.
func (f *MethodFacts) IsParameterReturned(i int) bool {
	if f.conservative() || !inRange(i) {
		return true
	}
	return hasBit(f.returned, i)
}

// ModifiesAnything reports whether the method may modify an object whose
// identity is unknown, such as one loaded from the heap.
func (f *MethodFacts) ModifiesAnything() bool {
	if f.noSideEffects || f.noExternalSideEffects {
		return false
	}
	return f.conservative() || f.modifiesAnything
}

// ReturnsExternalValues reports whether the method may return a value that
// is neither a parameter nor a new instance.
func (f *MethodFacts) ReturnsExternalValues() bool {
	if f.noExternalReturnValues {
		return false
	}
	return f.conservative() || f.returnsExternalValues
}

// Raw masks, as marked. They ignore policy and precedence.
func (f *MethodFacts) ModifiedParameters() uint64 { return f.modified }
func (f *MethodFacts) ReturnedParameters() uint64 { return f.returned }
func (f *MethodFacts) EscapedParameters() uint64  { return f.escaped }

func (f *MethodFacts) String() string {
	var sb strings.Builder
	sb.WriteString(f.policy.String())
	if f.noSideEffects {
		sb.WriteString(" no-side-effects")
	} else if f.noExternalSideEffects {
		sb.WriteString(" no-external-side-effects")
	}
	if f.ModifiesAnything() && !f.conservative() {
		sb.WriteString(" modifies-anything")
	}
	if f.ReturnsExternalValues() && !f.conservative() {
		sb.WriteString(" returns-external")
	}
	if f.noExternalReturnValues {
		sb.WriteString(" no-external-returns")
	}
	fmt.Fprintf(&sb, " modified=%s returned=%s escaped=%s",
		maskString(f.modified), maskString(f.returned), maskString(f.escaped))
	return sb.String()
}

func maskString(mask uint64) string {
	parts := make([]string, 0, bits.OnesCount64(mask))
	for m := mask; m != 0; m &= m - 1 {
		parts = append(parts, fmt.Sprint(bits.TrailingZeros64(m)))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
