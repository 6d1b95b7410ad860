package facts

import (
	"math/rand"
	"testing"
)

func TestConservativeTotality(t *testing.T) {
	f := NewMethodFacts(Conservative)
	for i := 0; i < MaxParameters; i++ {
		if !f.IsParameterModified(i) {
			t.Errorf("IsParameterModified(%d) = false", i)
		}
		if !f.IsParameterReturned(i) {
			t.Errorf("IsParameterReturned(%d) = false", i)
		}
		if !f.IsParameterEscaped(i) {
			t.Errorf("IsParameterEscaped(%d) = false", i)
		}
	}
	if !f.ReturnsExternalValues() {
		t.Error("ReturnsExternalValues() = false")
	}
	if !f.ModifiesAnything() {
		t.Error("ModifiesAnything() = false")
	}
	if f.HasNoSideEffects() || f.HasNoExternalSideEffects() {
		t.Error("fresh conservative record claims no side effects")
	}
}

func TestZeroValueIsConservative(t *testing.T) {
	var f MethodFacts
	if f.Policy() != Conservative || !f.IsParameterModified(3) {
		t.Error("zero MethodFacts is not conservative")
	}
}

func TestRefinedTotality(t *testing.T) {
	f := NewMethodFacts(Refined)
	for i := 0; i < MaxParameters; i++ {
		if f.IsParameterModified(i) || f.IsParameterReturned(i) || f.IsParameterEscaped(i) {
			t.Errorf("parameter %d is marked on a fresh refined record", i)
		}
	}
	if f.ReturnsExternalValues() || f.ModifiesAnything() {
		t.Error("fresh refined record reports effects")
	}
}

func TestOutOfRangeIndices(t *testing.T) {
	f := NewMethodFacts(Refined)
	for _, i := range []int{-1, MaxParameters, 100} {
		if f.SetParameterModified(i) || f.SetParameterReturned(i) || f.SetParameterEscaped(i) {
			t.Errorf("setter accepted index %d", i)
		}
		if !f.IsParameterModified(i) || !f.IsParameterReturned(i) || !f.IsParameterEscaped(i) {
			t.Errorf("index %d not answered conservatively", i)
		}
	}
}

func TestSettersAreIdempotent(t *testing.T) {
	f := NewMethodFacts(Refined)
	setters := []struct {
		name string
		set  func() bool
	}{
		{"modified", func() bool { return f.SetParameterModified(2) }},
		{"returned", func() bool { return f.SetParameterReturned(2) }},
		{"escaped", func() bool { return f.SetParameterEscaped(2) }},
		{"modifiesAnything", f.SetModifiesAnything},
		{"returnsExternal", f.SetReturnsExternalValues},
		{"noExternalReturns", f.SetNoExternalReturnValues},
		{"noExternalSideEffects", f.SetNoExternalSideEffects},
		{"noSideEffects", f.SetNoSideEffects},
	}
	for _, s := range setters {
		if !s.set() {
			t.Errorf("first %s set reported no change", s.name)
		}
		if s.set() {
			t.Errorf("second %s set reported a change", s.name)
		}
	}
}

func TestBitmaskRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	masks := []uint64{0, 1, 1 << 63, ^uint64(0), 0xAAAAAAAAAAAAAAAA}
	for i := 0; i < 64; i++ {
		masks = append(masks, rng.Uint64())
	}

	for _, mask := range masks {
		mod := NewMethodFacts(Refined)
		ret := NewMethodFacts(Refined)
		for i := 0; i < MaxParameters; i++ {
			if mask&(1<<uint(i)) != 0 {
				mod.SetParameterModified(i)
				ret.SetParameterReturned(i)
			}
		}
		for i := 0; i < MaxParameters; i++ {
			want := mask&(1<<uint(i)) != 0
			if got := mod.IsParameterModified(i); got != want {
				t.Fatalf("mask %#x: IsParameterModified(%d) = %v", mask, i, got)
			}
			if got := ret.IsParameterReturned(i); got != want {
				t.Fatalf("mask %#x: IsParameterReturned(%d) = %v", mask, i, got)
			}
		}
		if mod.ModifiedParameters() != mask || ret.ReturnedParameters() != mask {
			t.Fatalf("raw masks differ from %#x", mask)
		}
	}
}

func TestMonotonicity(t *testing.T) {
	f := NewMethodFacts(Refined)
	f.SetParameterModified(1)
	f.SetParameterReturned(2)
	f.SetParameterEscaped(3)

	f.SetModifiesAnything()
	f.SetParameterModified(4)
	f.SetReturnsExternalValues()

	if !f.IsParameterModified(1) || !f.IsParameterReturned(2) || !f.IsParameterEscaped(3) {
		t.Error("later marks cleared an earlier one")
	}
}

func TestNoSideEffectsOverridesModified(t *testing.T) {
	for _, p := range []Policy{Conservative, Refined} {
		f := NewMethodFacts(p)
		f.SetParameterModified(0)
		f.SetParameterModified(1)
		f.SetParameterEscaped(1)
		f.SetNoSideEffects()

		for i := 0; i < MaxParameters; i++ {
			if f.IsParameterModified(i) {
				t.Errorf("%s: IsParameterModified(%d) after SetNoSideEffects", p, i)
			}
			if f.IsParameterEscaped(i) {
				t.Errorf("%s: IsParameterEscaped(%d) after SetNoSideEffects", p, i)
			}
		}
		if f.ModifiesAnything() {
			t.Errorf("%s: ModifiesAnything() after SetNoSideEffects", p)
		}
		if !f.HasNoExternalSideEffects() {
			t.Errorf("%s: no side effects must imply no external side effects", p)
		}
	}
}

func TestNoExternalSideEffectsKeepsReceiver(t *testing.T) {
	f := NewMethodFacts(Refined)
	f.SetParameterModified(0)
	f.SetParameterModified(1)
	f.SetNoExternalSideEffects()

	if !f.IsParameterModified(0) {
		t.Error("receiver modification must survive SetNoExternalSideEffects")
	}
	if f.IsParameterModified(1) {
		t.Error("IsParameterModified(1) after SetNoExternalSideEffects")
	}

	c := NewMethodFacts(Conservative)
	c.SetNoExternalSideEffects()
	if !c.IsParameterModified(0) || c.IsParameterModified(1) {
		t.Error("conservative record with no external side effects must only modify the receiver")
	}
}

func TestNoExternalReturnValuesPrecedence(t *testing.T) {
	orders := map[string]func(f *MethodFacts){
		"returns first": func(f *MethodFacts) {
			f.SetReturnsExternalValues()
			f.SetNoExternalReturnValues()
		},
		"no-returns first": func(f *MethodFacts) {
			f.SetNoExternalReturnValues()
			f.SetReturnsExternalValues()
		},
	}
	for name, apply := range orders {
		for _, p := range []Policy{Conservative, Refined} {
			f := NewMethodFacts(p)
			apply(f)
			if f.ReturnsExternalValues() {
				t.Errorf("%s/%s: ReturnsExternalValues() = true", name, p)
			}
		}
	}
}

func TestModifiesAnythingAppliesToEscaped(t *testing.T) {
	f := NewMethodFacts(Refined)
	f.SetParameterEscaped(2)
	if f.IsParameterModified(2) {
		t.Fatal("escaped alone must not imply modified")
	}
	f.SetModifiesAnything()
	if !f.IsParameterModified(2) {
		t.Error("escaped parameter must count as modified once anything is modified")
	}
	if f.IsParameterModified(3) {
		t.Error("non-escaped parameter must stay unmodified")
	}
}

func TestMethodFactsString(t *testing.T) {
	f := NewMethodFacts(Refined)
	f.SetParameterModified(0)
	f.SetParameterModified(2)
	f.SetReturnsExternalValues()

	want := "refined returns-external modified={0,2} returned={} escaped={}"
	if got := f.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
