package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/factlog/internal/ir"
)

// RuleFunc derives facts from one binding context. It runs on a recompute
// goroutine, concurrently with the other contexts of the same pass, and may
// block. ctx is cancelled when the recompute is superseded; whatever the
// callback returns after that is discarded.
//
// Returning an error (or panicking) yields no facts for this context.
type RuleFunc func(ctx context.Context, b ir.Bindings) ([]ir.Fact, error)

type rule struct {
	id       uint64
	name     string
	patterns []ir.Pattern
	fn       RuleFunc
}

type ruleScopeKey struct{}

// withRuleScope marks ctx as belonging to a rule callback of s.
func withRuleScope(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, ruleScopeKey{}, s)
}

// inRuleScope reports whether ctx was handed to a rule callback of s.
func inRuleScope(ctx context.Context, s *Store) bool {
	if ctx == nil {
		return false
	}
	owner, _ := ctx.Value(ruleScopeKey{}).(*Store)
	return owner == s
}

type ruleTask struct {
	rule *rule
	b    ir.Bindings
}

// runPass evaluates every rule against the snapshot and invokes the callbacks
// concurrently. It returns once all of them have finished, with the produced
// facts in rule order, then context order.
func (s *Store) runPass(ctx context.Context, rules []*rule, snapshot []ir.Fact) []ir.Fact {
	var tasks []ruleTask
	for _, r := range rules {
		for _, b := range Evaluate(r.patterns, snapshot) {
			tasks = append(tasks, ruleTask{rule: r, b: b})
		}
	}
	if len(tasks) == 0 {
		return nil
	}

	results := make([][]ir.Fact, len(tasks))
	var g errgroup.Group
	if s.maxParallel > 0 {
		g.SetLimit(s.maxParallel)
	}
	rctx := withRuleScope(ctx, s)
	for i, t := range tasks {
		g.Go(func() error {
			results[i] = s.invoke(rctx, t)
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors; failures are reported per task

	var produced []ir.Fact
	for _, facts := range results {
		produced = append(produced, facts...)
	}
	return produced
}

func (s *Store) invoke(ctx context.Context, t ruleTask) (facts []ir.Fact) {
	defer func() {
		if p := recover(); p != nil {
			s.ruleFailed(ctx, t, fmt.Errorf("panic: %v", p))
			facts = nil
		}
	}()

	out, err := t.rule.fn(ctx, t.b)
	if err != nil {
		s.ruleFailed(ctx, t, err)
		return nil
	}

	facts = out[:0:0]
	for _, f := range out {
		if !f.Valid() {
			s.logger.Warn("rule produced incomplete fact",
				"rule", t.rule.name,
				"fact", f.String())
			continue
		}
		facts = append(facts, f)
	}
	return facts
}

func (s *Store) ruleFailed(ctx context.Context, t ruleTask, err error) {
	if ctx.Err() != nil {
		// Superseded; the result would be discarded anyway.
		return
	}
	re := &RuleError{Rule: t.rule.name, Bindings: t.b, Err: err}
	s.logger.Warn("rule callback failed",
		"rule", t.rule.name,
		"bindings", t.b.String(),
		"error", err)
	if s.onError != nil {
		s.onError(re)
	}
}
