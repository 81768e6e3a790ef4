// Package ratelimit spaces outbound provider calls to a requests-per-minute budget.
package ratelimit

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Limiter hands out evenly spaced call slots. A single Limiter is shared by every
// caller of one provider so concurrent fetches stay inside the same budget.
type Limiter struct {
	interval time.Duration
	lim      *rate.Limiter
}

// New returns a limiter allowing requestsPerMinute calls per minute.
// Zero or negative means unlimited.
func New(requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		return &Limiter{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	interval := MinInterval(requestsPerMinute)
	return &Limiter{
		interval: interval,
		lim:      rate.NewLimiter(rate.Every(interval), 1),
	}
}

// MinInterval is ceil(60000/rpm) milliseconds.
func MinInterval(requestsPerMinute int) time.Duration {
	if requestsPerMinute <= 0 {
		return 0
	}
	ms := (60000 + requestsPerMinute - 1) / requestsPerMinute
	return time.Duration(ms) * time.Millisecond
}

// Interval returns the minimum spacing between calls, 0 when unlimited.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Unlimited reports whether the limiter never blocks.
func (l *Limiter) Unlimited() bool {
	return l.interval == 0
}

// Acquire blocks until the next slot, max(previous slot + interval, now), and
// claims it. Slots are claimed in arrival order and never move backward.
// A cancelled context returns its error and gives the slot back. A slot that
// lands past the context deadline fails fast with context.DeadlineExceeded.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.lim.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if _, ok := ctx.Deadline(); ok {
			return eris.Wrapf(context.DeadlineExceeded, "ratelimit: next slot is past the deadline (%v)", err)
		}
		return eris.Wrap(err, "ratelimit: acquire")
	}
	return nil
}
