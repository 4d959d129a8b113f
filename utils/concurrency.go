package utils

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// WorkerPool runs jobs on a bounded number of goroutines with an optional
// minimum interval between job starts. The first failing job cancels the
// pool context and its error is returned by Wait.
type WorkerPool struct {
	group       *errgroup.Group
	ctx         context.Context
	rateLimitMs int

	mu          sync.Mutex
	lastRequest time.Time
}

// NewWorkerPool creates a WorkerPool with the given concurrency and rate limit.
func NewWorkerPool(ctx context.Context, maxWorkers, rateLimitMs int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	return &WorkerPool{group: g, ctx: gctx, rateLimitMs: rateLimitMs}
}

// Submit enqueues a job, blocking while all workers are busy.
func (wp *WorkerPool) Submit(job func(ctx context.Context) error) {
	wp.group.Go(func() error {
		if err := wp.ctx.Err(); err != nil {
			return err
		}
		if err := wp.enforceRateLimit(); err != nil {
			return err
		}
		return job(wp.ctx)
	})
}

// Wait blocks until all submitted jobs have completed and returns the first
// error any of them produced.
func (wp *WorkerPool) Wait() error {
	return wp.group.Wait()
}

func (wp *WorkerPool) enforceRateLimit() error {
	if wp.rateLimitMs <= 0 {
		return nil
	}

	wp.mu.Lock()
	defer wp.mu.Unlock()

	minInterval := time.Duration(wp.rateLimitMs) * time.Millisecond
	if elapsed := time.Since(wp.lastRequest); elapsed < minInterval {
		timer := time.NewTimer(minInterval - elapsed)
		select {
		case <-wp.ctx.Done():
			timer.Stop()
			return wp.ctx.Err()
		case <-timer.C:
		}
	}
	wp.lastRequest = time.Now()
	return nil
}
