package testutil

import (
	"context"
	"sync"
)

// Gate blocks callbacks until the test releases them.
//
// A rule or query callback calls Wait; the test observes Entered to know the
// callback is suspended, does its interleaving, then calls Release.
//
// Thread-safety: all methods are safe for concurrent use.
type Gate struct {
	entered     chan struct{}
	release     chan struct{}
	enterOnce   sync.Once
	releaseOnce sync.Once
}

// NewGate creates a closed gate.
func NewGate() *Gate {
	return &Gate{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

// Wait marks the gate as entered and blocks until Release or ctx ends.
// It returns ctx.Err() when ctx ends first.
func (g *Gate) Wait(ctx context.Context) error {
	g.enterOnce.Do(func() { close(g.entered) })
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entered is closed once the first caller reaches Wait.
func (g *Gate) Entered() <-chan struct{} {
	return g.entered
}

// Release opens the gate for every current and future waiter. Idempotent.
func (g *Gate) Release() {
	g.releaseOnce.Do(func() { close(g.release) })
}
