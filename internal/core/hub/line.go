package hub

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Line is the shared physical transport. Whoever holds it owns the socket
// for a full connect, exchange, disconnect cycle.
type Line struct {
	sem *semaphore.Weighted
}

func NewLine() *Line {
	return &Line{
		sem: semaphore.NewWeighted(1),
	}
}

// Acquire blocks until the line is free or ctx is done.
func (l *Line) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// AcquireWithin gives up after timeout with ErrLineBusy. A cancelled ctx
// returns the ctx error instead.
func (l *Line) AcquireWithin(ctx context.Context, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := l.sem.Acquire(tctx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrLineBusy
	}
	return nil
}

func (l *Line) Release() {
	l.sem.Release(1)
}
