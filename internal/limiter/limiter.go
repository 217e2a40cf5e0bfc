package limiter

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds how many operations may run at once. Waiters acquire in FIFO
// arrival order once capacity frees; completion order is unspecified. Queued
// work is never cancelled by the limiter itself, only by its own context.
type Limiter struct {
	sem *semaphore.Weighted
}

// New constructs a limiter admitting at most maxConcurrency operations.
func New(maxConcurrency int64) *Limiter {
	if maxConcurrency <= 0 {
		panic("limiter: maxConcurrency must be positive")
	}
	return &Limiter{sem: semaphore.NewWeighted(maxConcurrency)}
}

// Do runs fn once a slot is available, releasing the slot when fn returns.
// An operation that blocks forever starves everything queued behind it;
// callers are expected to bound their own work.
func (l *Limiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return fn(ctx)
}
