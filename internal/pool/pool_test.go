package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPool_RunSlice tests that every item is consumed exactly once.
func TestPool_RunSlice(t *testing.T) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	var mu sync.Mutex
	seen := make(map[int]int)

	err := New[int](4).RunSlice(context.Background(), items, func(ctx context.Context, item int) error {
		mu.Lock()
		seen[item]++
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 100)
	for i := range items {
		assert.Equal(t, 1, seen[i])
	}
}

// TestPool_Bound tests that no more than Size items run at once.
func TestPool_Bound(t *testing.T) {
	for _, size := range []int{1, 2, 5} {
		var inFlight, peak atomic.Int64

		err := New[int](size).RunSlice(context.Background(), make([]int, 30), func(ctx context.Context, _ int) error {
			n := inFlight.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			inFlight.Add(-1)
			return nil
		})
		require.NoError(t, err)
		assert.LessOrEqual(t, peak.Load(), int64(size))
		assert.GreaterOrEqual(t, peak.Load(), int64(1))
	}
}

// TestPool_Run_Error tests that the first error stops items that have not started.
func TestPool_Run_Error(t *testing.T) {
	boom := errors.New("boom")
	var consumed atomic.Int64

	err := New[int](1).Run(context.Background(), func(ctx context.Context, submit func(int) error) error {
		for i := 0; i < 100; i++ {
			if err := submit(i); err != nil {
				return err
			}
		}
		return nil
	}, func(ctx context.Context, item int) error {
		consumed.Add(1)
		if item == 3 {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Less(t, consumed.Load(), int64(100))
}

// TestPool_Run_ProducerError tests that a producer error is returned.
func TestPool_Run_ProducerError(t *testing.T) {
	boom := errors.New("list failed")

	err := New[string](3).Run(context.Background(), func(ctx context.Context, submit func(string) error) error {
		if err := submit("a"); err != nil {
			return err
		}
		return boom
	}, func(ctx context.Context, item string) error {
		return nil
	})

	assert.ErrorIs(t, err, boom)
}

// TestPool_Run_Canceled tests that a canceled parent context ends the run.
func TestPool_Run_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var consumed atomic.Int64
	err := New[int](2).RunSlice(ctx, make([]int, 10), func(ctx context.Context, _ int) error {
		consumed.Add(1)
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, consumed.Load())
}

func TestNew_MinimumSize(t *testing.T) {
	assert.Equal(t, 1, New[int](0).Size())
	assert.Equal(t, 1, New[int](-5).Size())
	assert.Equal(t, 7, New[int](7).Size())
}

func TestPool_RunSlice_Empty(t *testing.T) {
	called := false
	err := New[int](3).RunSlice(context.Background(), nil, func(ctx context.Context, _ int) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}
