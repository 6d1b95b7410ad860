package origin

import (
	"strings"

	"golang.org/x/tools/container/intsets"
)

// Set is a set of origins. The zero value is empty and ready to use.
// A Set must not be copied by value once used; pass *Set.
type Set struct {
	s intsets.Sparse
}

// NewSet returns a set holding origins.
func NewSet(origins ...Origin) *Set {
	s := &Set{}
	for _, o := range origins {
		s.s.Insert(int(o))
	}
	return s
}

// Add inserts o, reporting whether the set grew.
func (s *Set) Add(o Origin) bool { return s.s.Insert(int(o)) }

// UnionWith adds every origin of o, reporting whether the set grew.
func (s *Set) UnionWith(o *Set) bool {
	if o == nil {
		return false
	}
	return s.s.UnionWith(&o.s)
}

func (s *Set) Has(o Origin) bool { return s != nil && s.s.Has(int(o)) }
func (s *Set) IsEmpty() bool     { return s == nil || s.s.IsEmpty() }

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return s.s.Len()
}

// Equals reports whether both sets hold the same origins.
func (s *Set) Equals(o *Set) bool {
	if s == nil || o == nil {
		return s.IsEmpty() && o.IsEmpty()
	}
	return s.s.Equals(&o.s)
}

// Copy returns an independent copy of s. Copying nil yields an empty set.
func (s *Set) Copy() *Set {
	c := &Set{}
	if s != nil {
		c.s.Copy(&s.s)
	}
	return c
}

// Origins returns the members in ascending order.
func (s *Set) Origins() []Origin {
	if s == nil {
		return nil
	}
	ints := s.s.AppendTo(nil)
	out := make([]Origin, len(ints))
	for i, x := range ints {
		out[i] = Origin(x)
	}
	return out
}

// HasKind reports whether any member has kind k.
func (s *Set) HasKind(k Kind) bool {
	for _, o := range s.Origins() {
		if o.Kind() == k {
			return true
		}
	}
	return false
}

func (s *Set) String() string {
	parts := make([]string, 0, s.Len())
	for _, o := range s.Origins() {
		parts = append(parts, o.String())
	}
	return "{" + strings.Join(parts, " ") + "}"
}
