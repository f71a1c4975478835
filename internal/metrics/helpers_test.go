// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package metrics_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/warden-dev/warden/internal/store"
)

var now = time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC)

// memStore is an in-memory MetricsStore.
type memStore struct {
	mu       sync.Mutex
	outcomes []*store.Outcome
	feedback []*store.Feedback
	err      error
}

func (m *memStore) AppendOutcome(_ context.Context, o *store.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.outcomes = append(m.outcomes, o)
	return nil
}

func (m *memStore) OutcomesSince(_ context.Context, since time.Time) ([]*store.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*store.Outcome
	for _, o := range m.outcomes {
		if !o.Timestamp.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) AppendFeedback(_ context.Context, f *store.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.feedback = append(m.feedback, f)
	return nil
}

func (m *memStore) FeedbackSince(_ context.Context, since time.Time) ([]*store.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*store.Feedback
	for _, f := range m.feedback {
		if !f.Timestamp.Before(since) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

var errDiskFull = errors.New("no space left on device")

type outcomeOpt func(*store.Outcome)

func failed(kind string) outcomeOpt {
	return func(o *store.Outcome) {
		o.Success = false
		o.ErrorType = kind
		o.ErrorMessage = "The service is temporarily unavailable."
	}
}

func took(seconds float64) outcomeOpt {
	return func(o *store.Outcome) { o.DurationSeconds = seconds }
}

func costing(usd float64) outcomeOpt {
	return func(o *store.Outcome) { o.CostUSD = usd }
}

func model(name string) outcomeOpt {
	return func(o *store.Outcome) { o.Model = name }
}

func at(ts time.Time) outcomeOpt {
	return func(o *store.Outcome) { o.Timestamp = ts }
}

func (m *memStore) add(id string, opts ...outcomeOpt) *store.Outcome {
	o := &store.Outcome{
		RequestID:        id,
		Timestamp:        now.Add(-time.Minute),
		Model:            "openai/gemini-3-flash",
		PromptTokens:     100,
		CompletionTokens: 50,
		TotalTokens:      150,
		DurationSeconds:  1,
		Success:          true,
	}
	for _, opt := range opts {
		opt(o)
	}
	m.outcomes = append(m.outcomes, o)
	return o
}
