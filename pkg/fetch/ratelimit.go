package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Limiter enforces the politeness budget toward the Fed's host: at most
// maxConcurrent requests in flight, and no two request starts closer
// together than 1/perSecond.
//
// The two constraints are independent. Acquire first waits for a
// concurrency slot, then serializes on the interval lock; the new
// last-start time is recorded before the lock is released, so the rate
// bound holds even when the gate unblocks several waiters in a burst.
type Limiter struct {
	gate        *semaphore.Weighted
	minInterval time.Duration

	mu        sync.Mutex
	lastStart time.Time

	log *logrus.Entry
}

// NewLimiter creates a Limiter. perSecond <= 0 disables the interval
// throttle; maxConcurrent < 1 is clamped to 1.
func NewLimiter(maxConcurrent int, perSecond float64, log *logrus.Entry) *Limiter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	var minInterval time.Duration
	if perSecond > 0 {
		minInterval = time.Duration(float64(time.Second) / perSecond)
	}
	return &Limiter{
		gate:        semaphore.NewWeighted(int64(maxConcurrent)),
		minInterval: minInterval,
		log:         log,
	}
}

// Acquire blocks until both the concurrency gate admits the caller and
// the minimum interval since the last granted start has elapsed.
// Returns early with the context error on cancellation.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.gate.Acquire(ctx, 1); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.minInterval > 0 && !l.lastStart.IsZero() {
		if wait := l.minInterval - time.Since(l.lastStart); wait > 0 {
			l.log.WithField("wait", wait).Debug("Rate limiter delaying request start")
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				l.gate.Release(1)
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	l.lastStart = time.Now()
	return nil
}

// Release returns the concurrency slot. Must be called exactly once per
// successful Acquire.
func (l *Limiter) Release() {
	l.gate.Release(1)
}
