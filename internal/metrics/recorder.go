// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package metrics persists invocation outcomes and derives the statistics
// the alert engine and reports are built on.
package metrics

import (
	"context"
	"log/slog"

	"github.com/warden-dev/warden/internal/store"
)

// Recorder appends outcomes and feedback to a MetricsStore. A failed write
// never fails the request that produced it: errors are logged and dropped.
type Recorder struct {
	store store.MetricsStore
}

func NewRecorder(s store.MetricsStore) *Recorder {
	return &Recorder{store: s}
}

func (r *Recorder) Record(ctx context.Context, o *store.Outcome) {
	if err := r.store.AppendOutcome(ctx, o); err != nil {
		slog.Error("failed to record outcome",
			"request_id", o.RequestID,
			"success", o.Success,
			"error", err,
		)
	}
}

func (r *Recorder) RecordFeedback(ctx context.Context, f *store.Feedback) {
	if err := r.store.AppendFeedback(ctx, f); err != nil {
		slog.Error("failed to record feedback",
			"request_id", f.RequestID,
			"message_index", f.MessageIndex,
			"error", err,
		)
	}
}
