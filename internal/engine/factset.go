package engine

import (
	"slices"

	"github.com/roach88/factlog/internal/ir"
)

// factSet is an insertion-ordered set of facts keyed by fact identity.
// Not safe for concurrent use; the Store guards it with its mutex.
type factSet struct {
	index map[ir.FactKey]int
	facts []ir.Fact
}

func newFactSet() *factSet {
	return &factSet{index: make(map[ir.FactKey]int)}
}

// add inserts f and reports whether it was new.
func (s *factSet) add(f ir.Fact) bool {
	k := f.Key()
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.facts)
	s.facts = append(s.facts, f)
	return true
}

// remove deletes f and reports whether it was present.
func (s *factSet) remove(f ir.Fact) bool {
	k := f.Key()
	i, ok := s.index[k]
	if !ok {
		return false
	}
	delete(s.index, k)
	s.facts = slices.Delete(s.facts, i, i+1)
	for j := i; j < len(s.facts); j++ {
		s.index[s.facts[j].Key()] = j
	}
	return true
}

func (s *factSet) has(f ir.Fact) bool {
	_, ok := s.index[f.Key()]
	return ok
}

func (s *factSet) len() int {
	return len(s.facts)
}

// appendTo appends the facts in insertion order.
func (s *factSet) appendTo(dst []ir.Fact) []ir.Fact {
	return append(dst, s.facts...)
}
