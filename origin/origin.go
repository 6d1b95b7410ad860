// Package origin computes, for every reachable instruction of a method, where
// the values on the operand stack and in the local variables came from.
//
// A value's origin is one of: a parameter of the method, its receiver, an
// instance created at some instruction of the method, a value that came from
// the heap (External), or a value the interpreter cannot describe (Unknown).
// Each slot holds the set of all origins possible along any path.
package origin

import "fmt"

// Kind classifies an Origin.
type Kind uint8

const (
	KindParameter Kind = iota
	KindReceiver
	KindNewInstance
	KindExternal
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindParameter:
		return "parameter"
	case KindReceiver:
		return "receiver"
	case KindNewInstance:
		return "new"
	case KindExternal:
		return "external"
	}
	return "unknown"
}

// Origin is a single value origin packed into an int so that sets of
// origins can be sparse bit sets.
//
//	-3            receiver
//	-2            unknown
//	-1            external
//	[0, 1<<16)    parameter i
//	[1<<16, ...)  new instance created at code offset site
type Origin int

const (
	External Origin = -1
	Unknown  Origin = -2
	Receiver Origin = -3
)

const newInstanceBase = 1 << 16

// Parameter returns the origin of declared parameter i. For instance
// methods parameter 0 is the receiver; use Receiver for it.
func Parameter(i int) Origin { return Origin(i) }

// NewInstance returns the origin of an instance created at a code offset.
func NewInstance(site int) Origin { return Origin(newInstanceBase + site) }

func (o Origin) Kind() Kind {
	switch {
	case o == Receiver:
		return KindReceiver
	case o == External:
		return KindExternal
	case o < 0:
		return KindUnknown
	case o < newInstanceBase:
		return KindParameter
	}
	return KindNewInstance
}

// IsParameter reports whether o is a parameter or the receiver.
func (o Origin) IsParameter() bool {
	k := o.Kind()
	return k == KindParameter || k == KindReceiver
}

// Index returns the parameter index of a parameter or receiver origin,
// the receiver being parameter 0, and -1 otherwise.
func (o Origin) Index() int {
	switch o.Kind() {
	case KindReceiver:
		return 0
	case KindParameter:
		return int(o)
	}
	return -1
}

// Site returns the creation offset of a new-instance origin, or -1.
func (o Origin) Site() int {
	if o.Kind() != KindNewInstance {
		return -1
	}
	return int(o) - newInstanceBase
}

func (o Origin) String() string {
	switch o.Kind() {
	case KindReceiver:
		return "this"
	case KindParameter:
		return fmt.Sprintf("p%d", o.Index())
	case KindNewInstance:
		return fmt.Sprintf("new@%d", o.Site())
	case KindExternal:
		return "ext"
	}
	return "?"
}
