package utils

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

func TestWorkerPoolRunsAllJobs(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 4, 0)
	var done int64
	for i := 0; i < 50; i++ {
		pool.Submit(func(ctx context.Context) error {
			atomic.AddInt64(&done, 1)
			return nil
		})
	}
	require.NoError(t, pool.Wait())
	assert.EqualValues(t, 50, done)
}

func TestWorkerPoolPropagatesFirstError(t *testing.T) {
	boom := errors.New("boom")
	pool := NewWorkerPool(context.Background(), 2, 0)
	for i := 0; i < 10; i++ {
		i := i
		pool.Submit(func(ctx context.Context) error {
			if i == 3 {
				return boom
			}
			return nil
		})
	}
	assert.ErrorIs(t, pool.Wait(), boom)
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 2, 0)
	var running, peak int64
	for i := 0; i < 20; i++ {
		pool.Submit(func(ctx context.Context) error {
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt64(&running, -1)
			return nil
		})
	}
	require.NoError(t, pool.Wait())
	assert.LessOrEqual(t, peak, int64(2))
}

func TestWorkerPoolRateLimit(t *testing.T) {
	rateLimitMs := 50
	pool := NewWorkerPool(context.Background(), 1, rateLimitMs)

	var mu sync.Mutex
	var timestamps []time.Time
	for i := 0; i < 3; i++ {
		pool.Submit(func(ctx context.Context) error {
			mu.Lock()
			timestamps = append(timestamps, time.Now())
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, pool.Wait())
	require.Len(t, timestamps, 3)

	// Timestamps are taken after the limiter releases, so allow a little jitter.
	min := time.Duration(rateLimitMs)*time.Millisecond - 5*time.Millisecond
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		assert.GreaterOrEqual(t, gap, min, "gap between job %d and %d", i-1, i)
	}
}
