// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package resilience

import (
	"context"
	"sync"
	"time"

	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// RateLimiter lets at most maxCalls calls start within any rolling period.
// Callers over the limit block until the oldest start leaves the window.
type RateLimiter struct {
	mu       sync.Mutex
	maxCalls int
	period   time.Duration
	starts   []time.Time // ascending, len <= maxCalls
	nowFunc  func() time.Time
	sleep    func(context.Context, time.Duration) error
}

// NewRateLimiter returns a limiter for maxCalls per period. maxCalls <= 0
// disables limiting.
func NewRateLimiter(maxCalls int, period time.Duration) (*RateLimiter, error) {
	if maxCalls > 0 && period <= 0 {
		return nil, wardenerr.Errorf(wardenerr.CodeConfigValidateInvalidValue,
			"rate limit period must be positive, got %s", period)
	}
	return &RateLimiter{
		maxCalls: maxCalls,
		period:   period,
		nowFunc:  time.Now,
		sleep:    sleepCtx,
	}, nil
}

// Acquire blocks until a call may start. It fails only when ctx ends (or its
// deadline falls before the next free slot), with a CodeResilienceWaitTimeout
// error.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	if l.maxCalls <= 0 {
		return nil
	}

	for {
		wait, ok := l.reserve()
		if ok {
			return nil
		}

		if deadline, has := ctx.Deadline(); has && deadline.Before(l.now().Add(wait)) {
			return wardenerr.New(wardenerr.CodeResilienceWaitTimeout,
				"deadline expires before a rate limit slot frees up",
				wardenerr.Field("wait", wait.String()))
		}
		if err := l.sleep(ctx, wait); err != nil {
			return wardenerr.Wrap(err, wardenerr.CodeResilienceWaitTimeout, "waiting for rate limit slot")
		}
	}
}

// reserve records a start when a slot is free, otherwise it returns how long
// until the oldest start leaves the window.
func (l *RateLimiter) reserve() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	cutoff := now.Add(-l.period)
	expired := 0
	for expired < len(l.starts) && !l.starts[expired].After(cutoff) {
		expired++
	}
	l.starts = l.starts[expired:]

	if len(l.starts) < l.maxCalls {
		l.starts = append(l.starts, now)
		return 0, true
	}
	return l.starts[0].Sub(cutoff), false
}

// Execute implements Policy.
func (l *RateLimiter) Execute(ctx context.Context, next Attempt) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	return next(ctx)
}

// InWindow returns the number of starts inside the current window.
func (l *RateLimiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.nowFunc().Add(-l.period)
	n := 0
	for _, s := range l.starts {
		if s.After(cutoff) {
			n++
		}
	}
	return n
}

func (l *RateLimiter) now() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nowFunc()
}

// SetNowFunc overrides the time source (for testing).
func (l *RateLimiter) SetNowFunc(fn func() time.Time) {
	l.mu.Lock()
	l.nowFunc = fn
	l.mu.Unlock()
}
