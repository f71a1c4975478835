// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
	DefaultMaxDelay    = 10 * time.Second
)

// RetrySettings configures a Retry policy. Zero values take defaults.
type RetrySettings struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, kind ErrorKind, delay time.Duration)
}

// Retry re-runs retryable failures with capped exponential backoff and equal
// jitter. Non-retryable kinds, including CircuitOpen, return immediately.
type Retry struct {
	settings RetrySettings
	nowFunc  func() time.Time
	sleep    func(context.Context, time.Duration) error
	jitter   func(time.Duration) time.Duration
}

func NewRetry(settings RetrySettings) *Retry {
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = DefaultMaxAttempts
	}
	if settings.BaseDelay <= 0 {
		settings.BaseDelay = DefaultBaseDelay
	}
	if settings.MaxDelay <= 0 {
		settings.MaxDelay = DefaultMaxDelay
	}
	if settings.OnRetry == nil {
		settings.OnRetry = func(int, ErrorKind, time.Duration) {}
	}
	return &Retry{
		settings: settings,
		nowFunc:  time.Now,
		sleep:    sleepCtx,
		jitter:   equalJitter,
	}
}

// Execute implements Policy. On exhaustion the last error is returned as is.
// When ctx ends, or the next backoff would outlive its deadline, it returns a
// CodeResilienceRetryTimeout error instead.
func (r *Retry) Execute(ctx context.Context, next Attempt) error {
	for attempt := 1; ; attempt++ {
		err := next(ctx)
		if err == nil {
			return nil
		}

		kind := Classify(err)
		if !kind.Retryable() || attempt >= r.settings.MaxAttempts {
			return err
		}
		if ctx.Err() != nil {
			return r.timeout(ctx.Err(), attempt, err)
		}

		delay := r.jitter(r.Backoff(attempt))
		if deadline, ok := ctx.Deadline(); ok && r.nowFunc().Add(delay).After(deadline) {
			return r.timeout(context.DeadlineExceeded, attempt, err)
		}

		r.settings.OnRetry(attempt, kind, delay)
		if serr := r.sleep(ctx, delay); serr != nil {
			return r.timeout(serr, attempt, err)
		}
	}
}

// Backoff returns the un-jittered delay after the given 1-based attempt:
// BaseDelay doubled per attempt, capped at MaxDelay.
func (r *Retry) Backoff(attempt int) time.Duration {
	d := r.settings.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= r.settings.MaxDelay {
			return r.settings.MaxDelay
		}
	}
	return min(d, r.settings.MaxDelay)
}

func (r *Retry) timeout(cause error, attempts int, last error) error {
	return wardenerr.Wrapf(cause, wardenerr.CodeResilienceRetryTimeout,
		"deadline exhausted after %d attempts (last error: %v)", attempts, last)
}

// equalJitter returns a random duration in [d/2, d].
func equalJitter(d time.Duration) time.Duration {
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + rand.N(half+1)
}
