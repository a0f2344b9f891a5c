// Package progress tracks and renders copy progress.
package progress

import (
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/slicecopy/slicetypes"
)

// Counter is the single shared progress counter of a run.
// Each increment and the tracker notification that follows happen under
// one lock, so trackers observe a monotonic completed count.
type Counter struct {
	mu        sync.Mutex
	completed int64
	total     int64
	tracker   slicetypes.ProgressTracker
}

// NewCounter creates a counter for total tasks that notifies tracker.
// A nil tracker is replaced with Nop.
func NewCounter(total int64, tracker slicetypes.ProgressTracker) *Counter {
	if tracker == nil {
		tracker = Nop{}
	}
	return &Counter{
		total:   total,
		tracker: tracker,
	}
}

// AddTotal grows the total by n tasks. Streaming runs call it as keys arrive.
func (c *Counter) AddTotal(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total += n
}

// Increment records one finished task and notifies the tracker.
// The completed count never exceeds the total.
func (c *Counter) Increment() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.completed >= c.total {
		return
	}
	c.completed++
	c.tracker.Update(c.completed, c.total)
}

// Snapshot returns the completed and total counts.
func (c *Counter) Snapshot() (completed, total int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed, c.total
}

// Complete forwards completion to the tracker.
func (c *Counter) Complete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracker.Complete()
}

// Fail forwards err to the tracker.
func (c *Counter) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracker.Error(err)
}

// Nop is a tracker that ignores every call.
type Nop struct{}

func (Nop) Update(int64, int64) {}
func (Nop) Complete()           {}
func (Nop) Error(error)         {}
