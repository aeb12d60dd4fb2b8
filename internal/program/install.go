package program

import (
	"context"
	"fmt"

	"github.com/roach88/factlog/internal/engine"
	"github.com/roach88/factlog/internal/ir"
)

// Install registers the program's rules with s and asserts its facts.
// The returned function unregisters the rules and retracts the facts this
// call added.
func (p *Program) Install(s *engine.Store) (uninstall func()) {
	unregister := make([]func(), 0, len(p.Rules))
	for _, r := range p.Rules {
		unregister = append(unregister, s.When(r.When, r.Callback(), engine.Named(r.Name)))
	}
	retract := s.Assert(p.Facts...)

	return func() {
		for _, u := range unregister {
			u()
		}
		_ = retract(context.Background())
	}
}

// Callback compiles the rule into an engine callback: guards first, then
// one fact per then template.
func (r Rule) Callback() engine.RuleFunc {
	return func(_ context.Context, b ir.Bindings) ([]ir.Fact, error) {
		for _, g := range r.Where {
			if !g.Eval(b) {
				return nil, nil
			}
		}
		facts := make([]ir.Fact, 0, len(r.Then))
		for _, tmpl := range r.Then {
			f, err := r.instantiate(tmpl, b)
			if err != nil {
				return nil, err
			}
			facts = append(facts, f)
		}
		return facts, nil
	}
}

func (r Rule) instantiate(tmpl ir.Pattern, b ir.Bindings) (ir.Fact, error) {
	entity, err := resolve(tmpl.Subject, b)
	if err != nil {
		return ir.Fact{}, err
	}
	value, err := resolve(tmpl.Value, b)
	if err != nil {
		return ir.Fact{}, err
	}

	var attr ir.Attribute
	switch a := tmpl.Attr.(type) {
	case ir.Attribute:
		attr = a
	case ir.Var:
		v, ok := b.Get(string(a))
		if !ok {
			return ir.Fact{}, fmt.Errorf("unbound variable %s", a)
		}
		kw, ok := v.(ir.Keyword)
		if !ok {
			return ir.Fact{}, fmt.Errorf("variable %s in attribute slot is bound to %s, not an attribute", a, v)
		}
		attr, ok = r.attrs[string(kw)]
		if !ok {
			attr = ir.NewAttribute(string(kw), ir.KindAny)
		}
	default:
		return ir.Fact{}, fmt.Errorf("invalid attribute slot %T", tmpl.Attr)
	}
	return ir.NewFact(entity, attr, value), nil
}

func resolve(t ir.Term, b ir.Bindings) (ir.Value, error) {
	switch v := t.(type) {
	case ir.Var:
		val, ok := b.Get(string(v))
		if !ok {
			return nil, fmt.Errorf("unbound variable %s", v)
		}
		return val, nil
	case ir.Value:
		return v, nil
	default:
		return nil, fmt.Errorf("invalid term %T", t)
	}
}

// Result is the answer to one named query.
type Result struct {
	Name     string
	Bindings []ir.Bindings
}

// RunQueries waits for s to settle and answers every declared query.
func (p *Program) RunQueries(ctx context.Context, s *engine.Store) ([]Result, error) {
	if err := s.Settle(ctx); err != nil {
		return nil, fmt.Errorf("settle: %w", err)
	}
	results := make([]Result, 0, len(p.Queries))
	for _, q := range p.Queries {
		bindings, err := s.QueryOnce(ctx, q.Find...)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Name, err)
		}
		results = append(results, Result{Name: q.Name, Bindings: bindings})
	}
	return results, nil
}
