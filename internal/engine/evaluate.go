package engine

import (
	"github.com/roach88/factlog/internal/ir"
)

// Evaluate answers a conjunctive query over a snapshot of facts.
//
// The join is a left-deep nested loop: contexts start as one empty context;
// each pattern replaces them with every successful Match of (context, fact),
// contexts in order and facts in snapshot order within each context. The
// result order is therefore deterministic for a given snapshot.
//
// An empty pattern list yields exactly one empty context. Duplicates are not
// removed: distinct facts producing equal contexts each appear.
func Evaluate(patterns []ir.Pattern, facts []ir.Fact) []ir.Bindings {
	return evaluateFrom(patterns, facts, ir.Bindings{})
}

func evaluateFrom(patterns []ir.Pattern, facts []ir.Fact, seed ir.Bindings) []ir.Bindings {
	contexts := []ir.Bindings{seed}
	for _, p := range patterns {
		next := make([]ir.Bindings, 0, len(contexts))
		for _, ctx := range contexts {
			for _, f := range facts {
				if b, ok := Match(p, f, ctx); ok {
					next = append(next, b)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		contexts = next
	}
	return contexts
}
