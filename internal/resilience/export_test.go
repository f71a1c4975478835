// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package resilience

import (
	"context"
	"time"
)

var EqualJitter = equalJitter

func (l *RateLimiter) SetSleep(fn func(context.Context, time.Duration) error) {
	l.mu.Lock()
	l.sleep = fn
	l.mu.Unlock()
}

func (r *Retry) SetClock(now func() time.Time, sleep func(context.Context, time.Duration) error) {
	r.nowFunc = now
	r.sleep = sleep
}

func (r *Retry) SetJitter(fn func(time.Duration) time.Duration) {
	r.jitter = fn
}
