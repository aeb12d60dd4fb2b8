package engine

import (
	"log/slog"

	"github.com/roach88/factlog/internal/ir"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFacts seeds Base with initial facts.
func WithFacts(facts ...ir.Fact) Option {
	return func(s *Store) {
		s.seed = append(s.seed, facts...)
	}
}

// WithMaxParallel bounds how many rule callbacks of one pass run at once.
//
// Default: 0 (unbounded, one goroutine per binding context).
// Use WithMaxParallel(1) to run callbacks one at a time.
func WithMaxParallel(n int) Option {
	return func(s *Store) {
		s.maxParallel = n
	}
}

// WithMaxPasses abandons a recompute after n passes without settling and
// reports a StepsExceededError to the rule error handler.
//
// Default: 0 (no limit). Rules that never stop producing new facts then
// never settle; opting in turns that into a logged error.
func WithMaxPasses(n int) Option {
	return func(s *Store) {
		s.maxPasses = n
	}
}

// WithRuleErrorHandler registers a hook called for every failed rule
// invocation (*RuleError) and every exceeded pass quota
// (*StepsExceededError). Every pass re-invokes every (rule, context) pair, so
// a context that keeps failing is reported once per pass. The hook runs on
// the recompute goroutine and must not block.
func WithRuleErrorHandler(fn func(error)) Option {
	return func(s *Store) {
		s.onError = fn
	}
}

// RuleOption configures a single rule.
type RuleOption func(*rule)

// Named sets the rule name used in logs and errors. Default: "rule-N".
func Named(name string) RuleOption {
	return func(r *rule) {
		if name != "" {
			r.name = name
		}
	}
}
