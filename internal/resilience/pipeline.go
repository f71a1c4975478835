// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package resilience composes rate limiting, circuit breaking and retries
// around a single remote call.
package resilience

import (
	"context"
	"time"
)

// Attempt is one try of the guarded operation.
type Attempt func(ctx context.Context) error

// Policy guards next. Implementations decide whether, when and how often
// next runs.
type Policy interface {
	Execute(ctx context.Context, next Attempt) error
}

// Pipeline applies its policies outermost first: Pipeline{retry, breaker,
// limiter} runs retry(breaker(limiter(call))).
type Pipeline []Policy

// Run executes call through every policy and reports how many times the
// outermost policy invoked the rest of the chain.
func (p Pipeline) Run(ctx context.Context, call Attempt) (attempts int, err error) {
	inner := call
	for i := len(p) - 1; i >= 1; i-- {
		inner = bind(p[i], inner)
	}

	counted := func(ctx context.Context) error {
		attempts++
		return inner(ctx)
	}
	if len(p) == 0 {
		return 1, call(ctx)
	}
	err = p[0].Execute(ctx, counted)
	return attempts, err
}

func bind(p Policy, next Attempt) Attempt {
	return func(ctx context.Context) error {
		return p.Execute(ctx, next)
	}
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
