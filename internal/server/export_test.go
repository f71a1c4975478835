// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package server

import "time"

// IPLimiter exposes the per-IP limiter for direct unit testing.
type IPLimiter = ipLimiter

func NewIPLimiter(cfg RateLimitConfig, now func() time.Time) *IPLimiter {
	l := newIPLimiter(cfg)
	l.nowFunc = now
	return l
}

func (l *ipLimiter) Allow(ip string) (bool, time.Duration) { return l.allow(ip) }

// RunCleanupNow runs one cleanup pass without waiting for the ticker.
func (l *ipLimiter) RunCleanupNow() { l.cleanup() }

func (l *ipLimiter) Visitors() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}
