package ratelimit

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinInterval(t *testing.T) {
	assert.Equal(t, time.Duration(0), MinInterval(0))
	assert.Equal(t, time.Duration(0), MinInterval(-5))
	assert.Equal(t, time.Second, MinInterval(60))
	assert.Equal(t, 50*time.Millisecond, MinInterval(1200))
	// 60000/7 = 8571.43 rounds up
	assert.Equal(t, 8572*time.Millisecond, MinInterval(7))
}

func TestUnlimitedNeverBlocks(t *testing.T) {
	l := New(0)
	assert.True(t, l.Unlimited())

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestAcquire_ConcurrentBurstIsSpaced(t *testing.T) {
	const callers = 10
	l := New(1200) // 50ms
	interval := l.Interval()
	require.Equal(t, 50*time.Millisecond, interval)

	var (
		mu    sync.Mutex
		times []time.Time
		wg    sync.WaitGroup
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, l.Acquire(context.Background()))
			mu.Lock()
			times = append(times, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	slices.SortFunc(times, func(a, b time.Time) int { return a.Compare(b) })
	require.Len(t, times, callers)

	const jitter = 15 * time.Millisecond
	for i := 1; i < len(times); i++ {
		gap := times[i].Sub(times[i-1])
		assert.GreaterOrEqual(t, gap, interval-jitter, "gap %d too small: %s", i, gap)
	}
	assert.GreaterOrEqual(t, times[len(times)-1].Sub(times[0]), time.Duration(callers-1)*interval-jitter)
}

func TestAcquire_FirstCallImmediate(t *testing.T) {
	l := New(1)
	start := time.Now()
	require.NoError(t, l.Acquire(context.Background()))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestAcquire_ContextCancelled(t *testing.T) {
	l := New(1) // one minute spacing
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAcquire_SlotPastDeadline(t *testing.T) {
	l := New(1) // next slot is a minute away
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := l.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "should fail fast, not wait out the deadline")
}
