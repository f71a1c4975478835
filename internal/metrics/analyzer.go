// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package metrics

import (
	"cmp"
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/warden-dev/warden/internal/store"
)

const (
	// DefaultMinSamples is the smallest sample count for which error rate
	// and p95 latency are reported.
	DefaultMinSamples = 10

	// RecentErrorLimit caps Summary.RecentErrors.
	RecentErrorLimit = 5
)

// ErrorSample is one failed outcome as shown in alerts and reports. It
// carries only the persisted, user-safe fields.
type ErrorSample struct {
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id"`
	ErrorType    string    `json:"error_type"`
	ErrorMessage string    `json:"error_message"`
	Model        string    `json:"model,omitempty"`
}

// Summary holds the statistics the alert engine compares with thresholds.
// A nil pointer means there was not enough data to compute the value.
type Summary struct {
	WindowHours       float64       `json:"window_hours"`
	SampleCount       int           `json:"sample_count"`
	SuccessCount      int           `json:"success_count"`
	FailureCount      int           `json:"failure_count"`
	ErrorRatePct      *float64      `json:"error_rate_pct"`
	P95LatencySeconds *float64      `json:"p95_latency_seconds"`
	HourlyCostUSD     *float64      `json:"hourly_cost_usd"`
	RecentErrors      []ErrorSample `json:"recent_errors"`
}

// ModelStats aggregates the outcomes of one model.
type ModelStats struct {
	Model              string  `json:"model"`
	Requests           int     `json:"requests"`
	SuccessRatePct     float64 `json:"success_rate_pct"`
	AvgDurationSeconds float64 `json:"avg_duration_seconds"`
	TotalCostUSD       float64 `json:"total_cost_usd"`
	TotalTokens        int     `json:"total_tokens"`
}

// FeedbackStats counts ratings in the window.
type FeedbackStats struct {
	Total           int      `json:"total"`
	Positive        int      `json:"positive"`
	Negative        int      `json:"negative"`
	SatisfactionPct *float64 `json:"satisfaction_pct"`
}

// Report extends Summary with the dashboard numbers.
type Report struct {
	Summary

	SuccessRatePct      *float64       `json:"success_rate_pct"`
	LatencyP50Seconds   *float64       `json:"latency_p50_seconds"`
	LatencyP95Seconds   *float64       `json:"latency_p95_seconds"`
	LatencyP99Seconds   *float64       `json:"latency_p99_seconds"`
	AvgDurationSeconds  *float64       `json:"avg_duration_seconds"`
	AvgPromptTokens     *float64       `json:"avg_prompt_tokens"`
	AvgCompletionTokens *float64       `json:"avg_completion_tokens"`
	TotalCostUSD        float64        `json:"total_cost_usd"`
	TotalTokens         int            `json:"total_tokens"`
	ErrorTypes          map[string]int `json:"error_types"`
	Models              []ModelStats   `json:"models"`
	Feedback            FeedbackStats  `json:"feedback"`
}

// Analyzer computes window statistics over a MetricsStore.
type Analyzer struct {
	mu         sync.RWMutex
	store      store.MetricsStore
	minSamples int
	nowFunc    func() time.Time
}

// NewAnalyzer returns an analyzer over s. minSamples <= 0 selects
// DefaultMinSamples.
func NewAnalyzer(s store.MetricsStore, minSamples int) *Analyzer {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	return &Analyzer{
		store:      s,
		minSamples: minSamples,
		nowFunc:    time.Now,
	}
}

// SetNowFunc overrides the time source (for testing).
func (a *Analyzer) SetNowFunc(fn func() time.Time) {
	a.mu.Lock()
	a.nowFunc = fn
	a.mu.Unlock()
}

func (a *Analyzer) now() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.nowFunc()
}

// Summary loads the outcomes of the last window and computes the alerting
// statistics. An empty or missing log yields zero counts.
func (a *Analyzer) Summary(ctx context.Context, window time.Duration) (*Summary, error) {
	outcomes, err := a.store.OutcomesSince(ctx, a.now().Add(-window))
	if err != nil {
		return nil, err
	}
	return a.summarize(outcomes, window), nil
}

func (a *Analyzer) summarize(outcomes []*store.Outcome, window time.Duration) *Summary {
	s := &Summary{
		WindowHours:  window.Hours(),
		SampleCount:  len(outcomes),
		RecentErrors: []ErrorSample{},
	}

	var (
		successDurations []float64
		failures         []*store.Outcome
		totalCost        float64
	)
	for _, o := range outcomes {
		totalCost += o.CostUSD
		if o.Success {
			successDurations = append(successDurations, o.DurationSeconds)
		} else {
			failures = append(failures, o)
		}
	}
	s.SuccessCount = len(successDurations)
	s.FailureCount = len(failures)

	if s.SampleCount >= a.minSamples {
		s.ErrorRatePct = ptr(float64(s.FailureCount) / float64(s.SampleCount) * 100)
	}
	if len(successDurations) >= a.minSamples {
		slices.Sort(successDurations)
		s.P95LatencySeconds = ptr(successDurations[int(float64(len(successDurations))*0.95)])
	}
	if s.SampleCount > 0 {
		hours := s.WindowHours
		if hours <= 0 {
			hours = 1
		}
		s.HourlyCostUSD = ptr(totalCost / hours)
	}

	slices.SortStableFunc(failures, func(x, y *store.Outcome) int {
		return y.Timestamp.Compare(x.Timestamp)
	})
	for _, o := range failures[:min(len(failures), RecentErrorLimit)] {
		s.RecentErrors = append(s.RecentErrors, ErrorSample{
			Timestamp:    o.Timestamp,
			RequestID:    o.RequestID,
			ErrorType:    o.ErrorType,
			ErrorMessage: o.ErrorMessage,
			Model:        o.Model,
		})
	}
	return s
}

// Report computes the full dashboard view of the last window, feedback
// included.
func (a *Analyzer) Report(ctx context.Context, window time.Duration) (*Report, error) {
	since := a.now().Add(-window)
	outcomes, err := a.store.OutcomesSince(ctx, since)
	if err != nil {
		return nil, err
	}
	feedback, err := a.store.FeedbackSince(ctx, since)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Summary:    *a.summarize(outcomes, window),
		ErrorTypes: map[string]int{},
		Models:     []ModelStats{},
	}

	var (
		durations        []float64
		successDurations []float64
		promptTokens     int
		completionTokens int
	)
	byModel := map[string]*modelAcc{}
	for _, o := range outcomes {
		durations = append(durations, o.DurationSeconds)
		r.TotalCostUSD += o.CostUSD
		r.TotalTokens += o.TotalTokens
		if o.Success {
			successDurations = append(successDurations, o.DurationSeconds)
			promptTokens += o.PromptTokens
			completionTokens += o.CompletionTokens
		} else {
			r.ErrorTypes[cmp.Or(o.ErrorType, "UnknownError")]++
		}

		acc, ok := byModel[o.Model]
		if !ok {
			acc = &modelAcc{}
			byModel[o.Model] = acc
		}
		acc.add(o)
	}

	if n := len(outcomes); n > 0 {
		r.SuccessRatePct = ptr(float64(r.SuccessCount) / float64(n) * 100)
		r.AvgDurationSeconds = ptr(mean(durations))
	}
	if n := len(successDurations); n > 0 {
		slices.Sort(successDurations)
		r.LatencyP50Seconds = ptr(quantile(successDurations, 0.50))
		r.LatencyP95Seconds = ptr(quantile(successDurations, 0.95))
		r.LatencyP99Seconds = ptr(quantile(successDurations, 0.99))
		r.AvgPromptTokens = ptr(float64(promptTokens) / float64(n))
		r.AvgCompletionTokens = ptr(float64(completionTokens) / float64(n))
	}

	for model, acc := range byModel {
		r.Models = append(r.Models, acc.stats(model))
	}
	slices.SortFunc(r.Models, func(x, y ModelStats) int {
		return cmp.Or(cmp.Compare(y.Requests, x.Requests), cmp.Compare(x.Model, y.Model))
	})

	for _, f := range feedback {
		switch f.Rating {
		case store.RatingPositive:
			r.Feedback.Positive++
		case store.RatingNegative:
			r.Feedback.Negative++
		}
	}
	r.Feedback.Total = r.Feedback.Positive + r.Feedback.Negative
	if r.Feedback.Total > 0 {
		r.Feedback.SatisfactionPct = ptr(float64(r.Feedback.Positive) / float64(r.Feedback.Total) * 100)
	}

	return r, nil
}

type modelAcc struct {
	requests  int
	successes int
	duration  float64
	cost      float64
	tokens    int
}

func (m *modelAcc) add(o *store.Outcome) {
	m.requests++
	if o.Success {
		m.successes++
	}
	m.duration += o.DurationSeconds
	m.cost += o.CostUSD
	m.tokens += o.TotalTokens
}

func (m *modelAcc) stats(model string) ModelStats {
	return ModelStats{
		Model:              model,
		Requests:           m.requests,
		SuccessRatePct:     float64(m.successes) / float64(m.requests) * 100,
		AvgDurationSeconds: m.duration / float64(m.requests),
		TotalCostUSD:       m.cost,
		TotalTokens:        m.tokens,
	}
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func ptr[T any](v T) *T { return &v }
