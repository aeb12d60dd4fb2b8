package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEpoch_StartsAtZero(t *testing.T) {
	e := NewEpoch()
	assert.Equal(t, int64(0), e.Current(), "new epoch should start at 0")
}

func TestEpoch_NextIncrements(t *testing.T) {
	e := NewEpoch()

	assert.Equal(t, int64(1), e.Next())
	assert.Equal(t, int64(2), e.Next())
	assert.Equal(t, int64(2), e.Current(), "Current must not advance")
}

func TestEpoch_ThreadSafe(t *testing.T) {
	e := NewEpoch()
	const goroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	seqs := make(chan int64, goroutines*callsPerGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				seqs <- e.Next()
			}
		}()
	}

	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool)
	for seq := range seqs {
		assert.False(t, seen[seq], "epoch %d issued twice", seq)
		seen[seq] = true
	}
	assert.Len(t, seen, goroutines*callsPerGoroutine)
	assert.Equal(t, int64(goroutines*callsPerGoroutine), e.Current())
}
