// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package store persists invocation outcomes and user feedback in an
// append-only log. Backends register themselves with RegisterBackend.
package store

import (
	"context"
	"time"
)

// MetricsStore is an append-only log of outcomes and feedback. Appends from
// concurrent callers never interleave. Reads return records in append order.
type MetricsStore interface {
	AppendOutcome(ctx context.Context, o *Outcome) error
	// OutcomesSince returns every outcome with Timestamp >= since.
	OutcomesSince(ctx context.Context, since time.Time) ([]*Outcome, error)

	AppendFeedback(ctx context.Context, f *Feedback) error
	FeedbackSince(ctx context.Context, since time.Time) ([]*Feedback, error)

	Close() error
}
