// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package server

import (
	"context"
	"time"

	"github.com/warden-dev/warden/internal/alert"
	"github.com/warden-dev/warden/internal/invoker"
	"github.com/warden-dev/warden/internal/metrics"
	"github.com/warden-dev/warden/internal/resilience"
	"github.com/warden-dev/warden/internal/store"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// ChatService runs one completion. *invoker.Invoker implements it.
type ChatService interface {
	Invoke(ctx context.Context, req invoker.Request) (*invoker.Response, error)
}

// MetricsService aggregates recorded outcomes. *metrics.Analyzer implements it.
type MetricsService interface {
	Summary(ctx context.Context, window time.Duration) (*metrics.Summary, error)
	Report(ctx context.Context, window time.Duration) (*metrics.Report, error)
}

// AlertService runs one threshold check. *alert.Engine implements it.
type AlertService interface {
	CheckAndAlert(ctx context.Context) (*alert.Result, error)
}

// FeedbackService persists user ratings. *metrics.Recorder implements it.
type FeedbackService interface {
	RecordFeedback(ctx context.Context, f *store.Feedback)
}

// BreakerService reports circuit state. *resilience.CircuitBreaker
// implements it.
type BreakerService interface {
	Snapshot() resilience.BreakerSnapshot
}

// Services holds dependencies injected into route handlers.
// Each field is an interface so subsystems can be mocked in tests.
type Services struct {
	chat     ChatService
	metrics  MetricsService
	alerts   AlertService
	feedback FeedbackService
	breakers []BreakerService
}

// NewServices creates a Services instance with validation.
// Returns an error if any required service is nil.
func NewServices(chat ChatService, m MetricsService, alerts AlertService, feedback FeedbackService, breakers ...BreakerService) (*Services, error) {
	if chat == nil {
		return nil, wardenerr.New(wardenerr.CodeServerConfigInvalid, "chat service is required")
	}
	if m == nil {
		return nil, wardenerr.New(wardenerr.CodeServerConfigInvalid, "metrics service is required")
	}
	if alerts == nil {
		return nil, wardenerr.New(wardenerr.CodeServerConfigInvalid, "alert service is required")
	}
	if feedback == nil {
		return nil, wardenerr.New(wardenerr.CodeServerConfigInvalid, "feedback service is required")
	}
	s := &Services{
		chat:     chat,
		metrics:  m,
		alerts:   alerts,
		feedback: feedback,
	}
	for _, b := range breakers {
		if b != nil {
			s.breakers = append(s.breakers, b)
		}
	}
	return s, nil
}
