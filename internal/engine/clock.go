package engine

import "sync/atomic"

// Epoch is the monotonic counter that orders recomputes.
//
// Every mutation of the store takes a new epoch; a recompute may only commit
// facts or notify subscribers while the epoch it started with is current.
//
// Thread-safety: Epoch is safe for concurrent use (atomic operations).
type Epoch struct {
	seq atomic.Int64
}

// NewEpoch creates an epoch counter starting at 0.
func NewEpoch() *Epoch {
	return &Epoch{}
}

// Next advances the epoch and returns the new value.
// Calls are linearizable - each call returns a unique, increasing value.
func (e *Epoch) Next() int64 {
	return e.seq.Add(1)
}

// Current returns the current epoch without advancing it.
func (e *Epoch) Current() int64 {
	return e.seq.Load()
}
