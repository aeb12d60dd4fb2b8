package engine

import (
	"context"
)

// recomputeLocked supersedes any in-flight recompute and starts a new one.
// Caller holds s.mu.
func (s *Store) recomputeLocked(reason string) {
	if s.closed {
		return
	}
	e := s.epoch.Next()
	s.derived = newFactSet()
	s.processing = true

	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(s.lifetime)
	s.cancel = cancel

	s.running++
	if s.running == 1 {
		s.idle = make(chan struct{})
	}

	s.logger.Debug("recompute started", "epoch", e, "reason", reason)
	go s.fixpoint(ctx, cancel, e)
}

// fixpoint runs passes for epoch e until one adds nothing new, then
// notifies live queries. It exits silently as soon as a newer epoch exists.
func (s *Store) fixpoint(ctx context.Context, cancel context.CancelFunc, e int64) {
	defer s.finish(cancel)
	log := s.logger.With("epoch", e)

	for pass := 1; ; pass++ {
		s.mu.Lock()
		if s.epoch.Current() != e {
			s.mu.Unlock()
			log.Debug("recompute superseded", "pass", pass)
			return
		}
		if s.maxPasses > 0 && pass > s.maxPasses {
			s.processing = false
			s.mu.Unlock()
			err := &StepsExceededError{Epoch: e, Passes: pass, Limit: s.maxPasses}
			log.Error("recompute abandoned", "error", err)
			if s.onError != nil {
				s.onError(err)
			}
			return
		}
		snapshot := s.snapshotLocked()
		rules := append([]*rule(nil), s.rules...)
		s.mu.Unlock()

		produced := s.runPass(ctx, rules, snapshot)

		s.mu.Lock()
		if s.epoch.Current() != e {
			s.mu.Unlock()
			log.Debug("recompute superseded", "pass", pass)
			return
		}
		added := 0
		for _, f := range produced {
			if s.base.has(f) {
				continue
			}
			if s.derived.add(f) {
				added++
			}
		}
		if added > 0 {
			s.mu.Unlock()
			log.Debug("pass derived facts", "pass", pass, "added", added)
			continue
		}

		s.processing = false
		s.settles++
		derived := s.derived.len()
		s.mu.Unlock()

		log.Debug("fixpoint settled", "passes", pass, "derived", derived)
		s.deliver(e)
		return
	}
}

// finish releases a recompute goroutine's slot.
func (s *Store) finish(cancel context.CancelFunc) {
	cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running--
	if s.running == 0 {
		close(s.idle)
	}
}
