package testutil

import (
	"sync"

	"github.com/roach88/factlog/internal/ir"
)

// Recorder collects live query deliveries for assertions.
//
// Thread-safety: all methods are safe for concurrent use.
type Recorder struct {
	mu         sync.Mutex
	deliveries [][]ir.Bindings
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record is a query callback.
func (r *Recorder) Record(results []ir.Bindings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, results)
}

// Count returns the number of deliveries so far.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.deliveries)
}

// Last returns the most recent delivery, or nil.
func (r *Recorder) Last() []ir.Bindings {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.deliveries) == 0 {
		return nil
	}
	return r.deliveries[len(r.deliveries)-1]
}

// Deliveries returns a copy of every delivery in order.
func (r *Recorder) Deliveries() [][]ir.Bindings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]ir.Bindings(nil), r.deliveries...)
}

// Maps converts a result set to plain maps, for order-sensitive equality
// checks that ignore binding order inside each context.
func Maps(results []ir.Bindings) []map[string]ir.Value {
	out := make([]map[string]ir.Value, len(results))
	for i, b := range results {
		out[i] = b.Map()
	}
	return out
}
