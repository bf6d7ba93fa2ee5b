package analytics

import (
	"sync"

	"go.uber.org/atomic"
)

// LevelTracker turns level increases into a celebration flag that stays
// raised until someone acknowledges it.
type LevelTracker struct {
	mu     sync.Mutex
	last   int
	primed bool

	pending atomic.Bool
}

// Observe records the latest computed level and reports whether it is a
// level-up. The first observation only sets the baseline.
func (t *LevelTracker) Observe(level int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.primed {
		t.primed = true
		t.last = level
		return false
	}
	up := level > t.last
	t.last = level
	if up {
		t.pending.Store(true)
	}
	return up
}

func (t *LevelTracker) Pending() bool {
	return t.pending.Load()
}

// Acknowledge clears the flag and reports whether it was raised.
func (t *LevelTracker) Acknowledge() bool {
	return t.pending.Swap(false)
}
