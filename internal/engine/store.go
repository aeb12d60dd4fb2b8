package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/roach88/factlog/internal/ir"
)

// Store holds Base and Derived facts, the registered rules and the live
// queries, and drives recomputation.
//
// Thread-safety model:
//   - every exported method is safe from any goroutine, including from inside
//     rule and query callbacks, except Settle, QueryOnce and Close: those wait
//     for the recompute the callback belongs to, so a callback must call them
//     from a goroutine of its own
//   - Retract from inside a rule callback of the same store is refused when
//     given the callback's ctx
//   - callbacks never run with the store mutex held
//
// INVARIANTS:
//   - Base and Derived hold each fact identity at most once
//   - rules slice order is registration order (deterministic reduction)
//   - only a recompute whose epoch is still current commits or notifies
type Store struct {
	mu         sync.Mutex
	base       *factSet
	derived    *factSet
	rules      []*rule
	queries    []*query
	nextRule   uint64
	epoch      *Epoch
	processing bool
	cancel     context.CancelFunc
	running    int
	idle       chan struct{}
	settles    int64
	closed     bool

	// lifetime is the parent of every recompute context; stop cancels it.
	lifetime context.Context
	stop     context.CancelFunc
	done     chan struct{}

	// deliverMu serializes settle deliveries.
	deliverMu sync.Mutex

	logger      *slog.Logger
	seed        []ir.Fact
	maxParallel int
	maxPasses   int
	onError     func(error)
}

// Retractor removes exactly the facts a single Assert call added to Base.
// Calling it more than once is a no-op. It fails only when called from
// inside a rule callback.
type Retractor func(ctx context.Context) error

// Stats is a point-in-time summary of the store.
type Stats struct {
	Epoch      int64
	Base       int
	Derived    int
	Rules      int
	Queries    int
	Settles    int64
	Processing bool
}

// New creates a store. Options may seed Base (WithFacts) and tune the
// recompute loop.
func New(opts ...Option) *Store {
	closedIdle := make(chan struct{})
	close(closedIdle)

	s := &Store{
		base:    newFactSet(),
		derived: newFactSet(),
		epoch:   NewEpoch(),
		idle:    closedIdle,
		done:    make(chan struct{}),
		logger:  slog.Default(),
	}
	s.lifetime, s.stop = context.WithCancel(context.Background())

	for _, opt := range opts {
		opt(s)
	}

	if len(s.seed) > 0 {
		s.Assert(s.seed...)
		s.seed = nil
	}
	return s
}

// Assert adds facts to Base, ignoring duplicates and incomplete facts, and
// starts a recompute. The returned Retractor removes only the facts this
// call actually added.
func (s *Store) Assert(facts ...ir.Fact) Retractor {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func(context.Context) error { return nil }
	}
	var added []ir.Fact
	for _, f := range facts {
		if !f.Valid() {
			s.logger.Warn("ignoring incomplete fact", "fact", f.String())
			continue
		}
		if s.base.add(f) {
			added = append(added, f)
		}
	}
	s.recomputeLocked("assert")
	s.mu.Unlock()

	var used atomic.Bool
	return func(ctx context.Context) error {
		if inRuleScope(ctx, s) {
			return errRetractInRule
		}
		if !used.CompareAndSwap(false, true) {
			return nil
		}
		return s.Retract(ctx, added...)
	}
}

// Retract removes facts from Base and starts a recompute. Facts absent from
// Base, including facts only present in Derived, are ignored. Facts that
// were derived from retracted facts disappear with the next recompute.
//
// ctx identifies the caller: passing the context a rule callback received
// returns a *UsageError (ErrCodeRetractInRule) and changes nothing. The check
// only sees ctx; a callback that passes an unrelated context is treated as an
// outside caller and its retraction supersedes the running recompute.
func (s *Store) Retract(ctx context.Context, facts ...ir.Fact) error {
	if inRuleScope(ctx, s) {
		return errRetractInRule
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStoreClosed
	}
	for _, f := range facts {
		s.base.remove(f)
	}
	s.recomputeLocked("retract")
	return nil
}

// Statements returns a copy of Base followed by Derived, each in insertion
// order.
func (s *Store) Statements() []ir.Fact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// State is an alias of Statements.
func (s *Store) State() []ir.Fact {
	return s.Statements()
}

// Base returns a copy of the asserted facts.
func (s *Store) Base() []ir.Fact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.appendTo(nil)
}

// Derived returns a copy of the rule-produced facts currently committed.
func (s *Store) Derived() []ir.Fact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.derived.appendTo(nil)
}

// When registers a rule and starts a recompute. For every binding context
// that satisfies patterns, fn is asked for facts to add to Derived.
// The returned function unregisters the rule (idempotent); that also
// recomputes, so facts only the rule produced disappear.
func (s *Store) When(patterns []ir.Pattern, fn RuleFunc, opts ...RuleOption) (unregister func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}

	s.nextRule++
	r := &rule{
		id:       s.nextRule,
		name:     fmt.Sprintf("rule-%d", s.nextRule),
		patterns: slices.Clone(patterns),
		fn:       fn,
	}
	for _, opt := range opts {
		opt(r)
	}
	s.rules = append(s.rules, r)
	s.logger.Debug("rule registered", "rule", r.name, "patterns", ir.PatternsString(r.patterns))
	s.recomputeLocked("rule added")

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.closed {
				return
			}
			s.rules = slices.DeleteFunc(s.rules, func(other *rule) bool { return other == r })
			s.logger.Debug("rule unregistered", "rule", r.name)
			s.recomputeLocked("rule removed")
		})
	}
}

// Settle blocks until no recompute is in flight, including the delivery of
// query results for the final settle. It returns ctx.Err() if ctx ends
// first. Calling it from a rule or query callback waits on itself.
func (s *Store) Settle(ctx context.Context) error {
	for {
		s.mu.Lock()
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}

		s.mu.Lock()
		quiet := s.running == 0
		s.mu.Unlock()
		if quiet {
			return nil
		}
	}
}

// Close cancels every in-flight recompute, waits for their goroutines to
// exit and drops all subscriptions. Later mutations are no-ops; QueryOnce
// and Retract report ErrCodeStoreClosed.
//
// Close waits for rule callbacks still running; callbacks that ignore ctx
// delay it. A callback that wants to close the store must do so from a new
// goroutine (go s.Close()); called inline it waits on itself.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.processing = false
	s.epoch.Next()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.stop()
	for _, q := range s.queries {
		q.active.Store(false)
	}
	s.queries = nil
	close(s.done)
	idle := s.idle
	s.mu.Unlock()

	<-idle
	s.logger.Debug("store closed")
	return nil
}

// Stats returns a summary of the store.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Epoch:      s.epoch.Current(),
		Base:       s.base.len(),
		Derived:    s.derived.len(),
		Rules:      len(s.rules),
		Queries:    len(s.queries),
		Settles:    s.settles,
		Processing: s.processing,
	}
}

// snapshotLocked copies Base ∪ Derived. Caller holds s.mu.
func (s *Store) snapshotLocked() []ir.Fact {
	out := make([]ir.Fact, 0, s.base.len()+s.derived.len())
	out = s.base.appendTo(out)
	return s.derived.appendTo(out)
}
