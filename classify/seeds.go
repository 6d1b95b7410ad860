package classify

import (
	"strings"

	"github.com/chazu/optfacts/classfile"
	"github.com/chazu/optfacts/facts"
)

// MarkNoSideEffects seeds m as having no side effects at all.
func MarkNoSideEffects(table *facts.Table, m *classfile.Method) bool {
	return table.Method(m.ID).SetNoSideEffects()
}

// MarkNoExternalSideEffects seeds m as modifying at most its receiver.
func MarkNoExternalSideEffects(table *facts.Table, m *classfile.Method) bool {
	return table.Method(m.ID).SetNoExternalSideEffects()
}

// MarkNoExternalReturnValues seeds m as never returning heap values.
func MarkNoExternalReturnValues(table *facts.Table, m *classfile.Method) bool {
	return table.Method(m.ID).SetNoExternalReturnValues()
}

// Seeds lists trusted methods by signature, such as
// "java/lang/String.length()I". A pattern "owner.*" selects every method
// declared by owner.
type Seeds struct {
	NoSideEffects          []string
	NoExternalSideEffects  []string
	NoExternalReturnValues []string
}

// ApplySeeds marks every method named in seeds and returns how many marks
// were new. Signatures that match nothing in the pool are logged and
// skipped.
func ApplySeeds(pool *classfile.Pool, table *facts.Table, seeds Seeds) int {
	n := 0
	apply := func(patterns []string, mark func(*facts.Table, *classfile.Method) bool) {
		for _, pattern := range patterns {
			methods := match(pool, pattern)
			if len(methods) == 0 {
				log.Warningf("seed %q matches no method", pattern)
				continue
			}
			for _, m := range methods {
				if mark(table, m) {
					n++
				}
			}
		}
	}
	apply(seeds.NoSideEffects, MarkNoSideEffects)
	apply(seeds.NoExternalSideEffects, MarkNoExternalSideEffects)
	apply(seeds.NoExternalReturnValues, MarkNoExternalReturnValues)
	log.Infof("applied %d seed marks", n)
	return n
}

func match(pool *classfile.Pool, pattern string) []*classfile.Method {
	if owner, ok := strings.CutSuffix(pattern, ".*"); ok {
		cls, ok := pool.ClassByName(owner)
		if !ok {
			return nil
		}
		out := make([]*classfile.Method, 0, len(cls.Methods))
		for _, id := range cls.Methods {
			out = append(out, pool.Method(id))
		}
		return out
	}
	if m, ok := pool.MethodBySignature(pattern); ok {
		return []*classfile.Method{m}
	}
	return nil
}
