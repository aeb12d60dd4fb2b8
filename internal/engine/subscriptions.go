package engine

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/roach88/factlog/internal/ir"
)

// QueryFunc receives the full result set of a live query. It runs without
// the store mutex held and may call back into the store.
type QueryFunc func(results []ir.Bindings)

type query struct {
	patterns []ir.Pattern
	fn       QueryFunc
	once     bool

	active atomic.Bool

	// mu serializes invocations of fn; seen is the newest epoch delivered.
	mu   sync.Mutex
	seen int64
}

func newQuery(patterns []ir.Pattern, fn QueryFunc) *query {
	q := &query{patterns: slices.Clone(patterns), fn: fn, seen: -1}
	q.active.Store(true)
	return q
}

// run evaluates the query against a snapshot taken at epoch e and invokes
// the callback, unless the query is gone or already saw e or a newer epoch.
func (q *query) run(e int64, snapshot []ir.Fact) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e <= q.seen {
		return
	}
	if q.once {
		if !q.active.CompareAndSwap(true, false) {
			return
		}
	} else if !q.active.Load() {
		return
	}
	q.seen = e
	q.fn(Evaluate(q.patterns, snapshot))
}

// Query registers a live query. If no recompute is in flight the callback
// runs immediately with the current results; it runs again after every
// settle. A query registered mid-recompute first hears from the next
// settle. The returned function unsubscribes (idempotent).
func (s *Store) Query(patterns []ir.Pattern, fn QueryFunc) (unsubscribe func()) {
	q := newQuery(patterns, fn)
	s.subscribe(q)
	return func() { s.unsubscribe(q) }
}

// QueryOnce waits for the first delivery of a live query and returns it.
// The subscription is removed as soon as it fires; at most one result is
// ever delivered. It returns ctx.Err() if ctx ends first, or a
// *UsageError if the store is or becomes closed. Like Settle, it must not
// be called from inside a callback.
func (s *Store) QueryOnce(ctx context.Context, patterns ...ir.Pattern) ([]ir.Bindings, error) {
	ch := make(chan []ir.Bindings, 1)
	q := newQuery(patterns, nil)
	q.once = true
	q.fn = func(results []ir.Bindings) {
		s.unsubscribe(q)
		ch <- results
	}

	if !s.subscribe(q) {
		return nil, errStoreClosed
	}

	select {
	case results := <-ch:
		return results, nil
	case <-ctx.Done():
		s.unsubscribe(q)
		return nil, ctx.Err()
	case <-s.done:
		// A delivery may have raced with Close.
		select {
		case results := <-ch:
			return results, nil
		default:
			return nil, errStoreClosed
		}
	}
}

// subscribe registers q and runs it immediately when the store is idle.
// It reports false if the store is closed.
func (s *Store) subscribe(q *query) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.queries = append(s.queries, q)
	immediate := !s.processing
	e := s.epoch.Current()
	var snapshot []ir.Fact
	if immediate {
		snapshot = s.snapshotLocked()
	}
	s.mu.Unlock()

	if immediate {
		q.run(e, snapshot)
	}
	return true
}

func (s *Store) unsubscribe(q *query) {
	q.active.Store(false)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = slices.DeleteFunc(s.queries, func(other *query) bool { return other == q })
}

// deliver re-runs every live query against the settled snapshot of epoch e.
// Deliveries are serialized; a settle superseded before its turn delivers
// nothing.
func (s *Store) deliver(e int64) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	if s.closed || s.epoch.Current() != e {
		s.mu.Unlock()
		return
	}
	snapshot := s.snapshotLocked()
	queries := slices.Clone(s.queries)
	s.mu.Unlock()

	for _, q := range queries {
		q.run(e, snapshot)
	}
}
