// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package resilience

import (
	"context"
	"log/slog"
	"sync"
	"time"

	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// State is a circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	DefaultFailThreshold = 5
	DefaultResetTimeout  = 60 * time.Second
)

// BreakerSettings configures a CircuitBreaker. Zero values take defaults.
type BreakerSettings struct {
	Name          string
	FailThreshold int
	ResetTimeout  time.Duration

	// OnStateChange is called after every transition, outside the lock.
	OnStateChange func(name string, from, to State, failures int)
}

// BreakerSnapshot is a point-in-time view of a breaker.
type BreakerSnapshot struct {
	Name          string     `json:"name"`
	State         State      `json:"state"`
	Failures      int        `json:"failures"`
	FailThreshold int        `json:"fail_threshold"`
	OpenedAt      *time.Time `json:"opened_at,omitempty"`
	RetryAt       *time.Time `json:"retry_at,omitempty"`
}

// CircuitBreaker stops calling an endpoint after repeated failures and lets
// a single trial call through once the reset timeout has passed.
//
// failures counts Closed-state failures and is cleared only when a HalfOpen
// trial succeeds.
type CircuitBreaker struct {
	mu       sync.Mutex
	settings BreakerSettings
	state    State
	failures int
	openedAt time.Time
	trial    bool // a HalfOpen trial is in flight
	nowFunc  func() time.Time
}

func NewCircuitBreaker(settings BreakerSettings) *CircuitBreaker {
	if settings.FailThreshold <= 0 {
		settings.FailThreshold = DefaultFailThreshold
	}
	if settings.ResetTimeout <= 0 {
		settings.ResetTimeout = DefaultResetTimeout
	}
	if settings.OnStateChange == nil {
		settings.OnStateChange = logStateChange
	}
	return &CircuitBreaker{
		settings: settings,
		state:    StateClosed,
		nowFunc:  time.Now,
	}
}

// Execute implements Policy. While open, or while another call holds the
// HalfOpen trial, it returns a CodeResilienceCircuitOpen error without
// calling next.
func (b *CircuitBreaker) Execute(ctx context.Context, next Attempt) error {
	isTrial, err := b.admit()
	if err != nil {
		return err
	}
	err = next(ctx)
	b.settle(isTrial, err)
	return err
}

func (b *CircuitBreaker) admit() (bool, error) {
	b.mu.Lock()

	switch b.state {
	case StateClosed:
		b.mu.Unlock()
		return false, nil

	case StateOpen:
		if b.nowFunc().Sub(b.openedAt) < b.settings.ResetTimeout {
			err := b.openErrorLocked()
			b.mu.Unlock()
			return false, err
		}
		notify := b.transitionLocked(StateHalfOpen)
		b.trial = true
		b.mu.Unlock()
		notify()
		return true, nil

	default: // StateHalfOpen
		if b.trial {
			err := b.openErrorLocked()
			b.mu.Unlock()
			return false, err
		}
		b.trial = true
		b.mu.Unlock()
		return true, nil
	}
}

func (b *CircuitBreaker) settle(isTrial bool, err error) {
	b.mu.Lock()
	notify := func() {}

	switch {
	case isTrial:
		b.trial = false
		switch {
		case err == nil:
			b.failures = 0
			notify = b.transitionLocked(StateClosed)
		case countsAsFailure(err):
			b.openedAt = b.nowFunc()
			notify = b.transitionLocked(StateOpen)
		}
		// A local failure releases the trial slot and stays HalfOpen.

	case b.state == StateClosed && countsAsFailure(err):
		b.failures++
		if b.failures >= b.settings.FailThreshold {
			b.openedAt = b.nowFunc()
			notify = b.transitionLocked(StateOpen)
		}
	}

	b.mu.Unlock()
	notify()
}

// transitionLocked changes state and returns the callback to run once the
// lock is released.
func (b *CircuitBreaker) transitionLocked(to State) func() {
	from := b.state
	b.state = to
	name, failures, cb := b.settings.Name, b.failures, b.settings.OnStateChange
	return func() { cb(name, from, to, failures) }
}

func (b *CircuitBreaker) openErrorLocked() error {
	retryAt := b.openedAt.Add(b.settings.ResetTimeout)
	return wardenerr.New(wardenerr.CodeResilienceCircuitOpen,
		"circuit breaker is open",
		wardenerr.Field("breaker", b.settings.Name),
		wardenerr.Field("retry_at", retryAt.UTC().Format(time.RFC3339)),
	)
}

// countsAsFailure reports whether err reflects endpoint health. Errors raised
// before the endpoint is reached are ignored.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	switch wardenerr.CodeOf(err) {
	case wardenerr.CodeResilienceWaitTimeout, wardenerr.CodeResilienceCircuitOpen:
		return false
	}
	return true
}

func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *CircuitBreaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := BreakerSnapshot{
		Name:          b.settings.Name,
		State:         b.state,
		Failures:      b.failures,
		FailThreshold: b.settings.FailThreshold,
	}
	if b.state != StateClosed {
		opened := b.openedAt
		retryAt := opened.Add(b.settings.ResetTimeout)
		snap.OpenedAt = &opened
		snap.RetryAt = &retryAt
	}
	return snap
}

// SetNowFunc overrides the time source (for testing).
func (b *CircuitBreaker) SetNowFunc(fn func() time.Time) {
	b.mu.Lock()
	b.nowFunc = fn
	b.mu.Unlock()
}

func logStateChange(name string, from, to State, failures int) {
	switch to {
	case StateOpen:
		slog.Warn("circuit opened", "breaker", name, "from", from.String(), "failures", failures)
	case StateClosed:
		slog.Info("circuit closed, endpoint recovered", "breaker", name)
	default:
		slog.Info("circuit half-open, allowing trial call", "breaker", name)
	}
}
