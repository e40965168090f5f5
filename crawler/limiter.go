package crawler

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Limiter is the crawl-wide admission gate for fetches. At most capacity
// holders run at once; when a rate is set, admissions are also paced to that
// many per second. A single Limiter is shared by every branch of a crawl.
type Limiter struct {
	sem      *semaphore.Weighted
	pace     *rate.Limiter // nil when unpaced
	inFlight atomic.Int64
	peak     atomic.Int64
}

// NewLimiter creates a Limiter with capacity slots (minimum 1) and an
// optional pacing rate in admissions per second (0 disables pacing).
func NewLimiter(capacity int, rps float64) *Limiter {
	capacity = max(capacity, 1)

	l := &Limiter{sem: semaphore.NewWeighted(int64(capacity))}
	if rps > 0 {
		burst := int(math.Max(1, math.Ceil(rps)))
		l.pace = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return l
}

// Acquire blocks until a slot is free and, if paced, the rate allows another
// admission. On error no slot is held.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire fetch slot: %w", err)
	}
	if l.pace != nil {
		if err := l.pace.Wait(ctx); err != nil {
			l.sem.Release(1)
			return fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	n := l.inFlight.Add(1)
	for {
		peak := l.peak.Load()
		if n <= peak || l.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return nil
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	l.inFlight.Add(-1)
	l.sem.Release(1)
}

// Do runs fn while holding a slot. The slot is released on every exit path,
// including a panic in fn.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// InFlight returns the number of slots currently held.
func (l *Limiter) InFlight() int {
	return int(l.inFlight.Load())
}

// Peak returns the highest number of slots held at once so far.
func (l *Limiter) Peak() int {
	return int(l.peak.Load())
}
