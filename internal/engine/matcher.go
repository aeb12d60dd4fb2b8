package engine

import (
	"github.com/roach88/factlog/internal/ir"
)

// Match unifies one pattern with one fact under an existing context.
//
// Slots are matched subject, attribute, value. A literal slot must equal the
// fact's component; a variable slot either binds a fresh name or must equal
// its existing binding. The attribute slot compares keys only; a variable
// there binds the attribute's Keyword.
//
// On success the returned context extends b. On failure the caller's context
// is unchanged (Bindings are persistent) and the bool is false.
func Match(p ir.Pattern, f ir.Fact, b ir.Bindings) (ir.Bindings, bool) {
	next, ok := matchTerm(p.Subject, f.Entity, b)
	if !ok {
		return b, false
	}
	next, ok = matchAttr(p.Attr, f.Attr, next)
	if !ok {
		return b, false
	}
	next, ok = matchTerm(p.Value, f.Value, next)
	if !ok {
		return b, false
	}
	return next, true
}

func matchTerm(t ir.Term, v ir.Value, b ir.Bindings) (ir.Bindings, bool) {
	switch term := t.(type) {
	case ir.Var:
		return bindVar(string(term), v, b)
	case ir.Value:
		return b, ir.Equal(term, v)
	default:
		return b, false
	}
}

func matchAttr(t ir.AttrTerm, a ir.Attribute, b ir.Bindings) (ir.Bindings, bool) {
	switch term := t.(type) {
	case ir.Var:
		return bindVar(string(term), ir.Keyword(a.Key), b)
	case ir.Attribute:
		return b, term.Key == a.Key
	default:
		return b, false
	}
}

func bindVar(name string, v ir.Value, b ir.Bindings) (ir.Bindings, bool) {
	if bound, ok := b.Get(name); ok {
		return b, ir.Equal(bound, v)
	}
	return b.Extend(name, v), true
}
