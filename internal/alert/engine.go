// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package alert compares window statistics against operator thresholds and
// delivers alerts, at most once per cooldown for each alert type.
package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warden-dev/warden/internal/config"
	"github.com/warden-dev/warden/internal/metrics"
)

// Analyzer is the part of metrics.Analyzer the engine reads.
type Analyzer interface {
	Summary(ctx context.Context, window time.Duration) (*metrics.Summary, error)
}

// Thresholds are the limits an alert fires above. Values equal to a
// threshold do not fire.
type Thresholds struct {
	ErrorRatePct      float64
	LatencyP95Seconds float64
	CostPerHourUSD    float64
	Window            time.Duration
	Cooldown          time.Duration
}

// ThresholdsFromConfig copies the alert limits out of cfg.
func ThresholdsFromConfig(cfg config.AlertsConfig) Thresholds {
	return Thresholds{
		ErrorRatePct:      cfg.ErrorRatePct,
		LatencyP95Seconds: cfg.LatencyP95Seconds,
		CostPerHourUSD:    cfg.CostPerHourUSD,
		Window:            cfg.Window,
		Cooldown:          cfg.Cooldown,
	}
}

// Metrics is the statistics snapshot a check ran against.
type Metrics struct {
	ErrorRate     *float64 `json:"error_rate"`
	P95Latency    *float64 `json:"p95_latency"`
	HourlyCost    *float64 `json:"hourly_cost"`
	TotalRequests int      `json:"total_requests"`
}

// Result describes one CheckAndAlert run.
type Result struct {
	Timestamp  time.Time `json:"timestamp"`
	AlertsSent []Type    `json:"alerts_sent"`
	Metrics    Metrics   `json:"metrics"`
}

// Engine runs threshold checks. Runs are serialized so the cooldown
// read-modify-write of one run never interleaves with another.
type Engine struct {
	runMu      sync.Mutex
	analyzer   Analyzer
	thresholds Thresholds
	cooldown   CooldownStore
	notifiers  []Notifier

	mu      sync.RWMutex
	nowFunc func() time.Time
}

// NewEngine builds an engine. Notifiers are tried in order for every alert.
func NewEngine(analyzer Analyzer, thresholds Thresholds, cooldown CooldownStore, notifiers ...Notifier) *Engine {
	if cooldown == nil {
		cooldown = NewMemoryCooldown()
	}
	return &Engine{
		analyzer:   analyzer,
		thresholds: thresholds,
		cooldown:   cooldown,
		notifiers:  notifiers,
		nowFunc:    time.Now,
	}
}

// SetNowFunc overrides the time source (for testing).
func (e *Engine) SetNowFunc(fn func() time.Time) {
	e.mu.Lock()
	e.nowFunc = fn
	e.mu.Unlock()
}

func (e *Engine) now() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.nowFunc()
}

// CheckAndAlert loads the current window statistics and fires every alert
// whose threshold is exceeded and whose cooldown has passed. Only a failure
// to load statistics is returned; delivery failures are logged.
func (e *Engine) CheckAndAlert(ctx context.Context) (*Result, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	slog.Debug("running alert check", "window", e.thresholds.Window)

	summary, err := e.analyzer.Summary(ctx, e.thresholds.Window)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Timestamp:  e.now().UTC(),
		AlertsSent: []Type{},
		Metrics: Metrics{
			ErrorRate:     summary.ErrorRatePct,
			P95Latency:    summary.P95LatencySeconds,
			HourlyCost:    summary.HourlyCostUSD,
			TotalRequests: summary.SampleCount,
		},
	}

	t := e.thresholds
	if v := summary.ErrorRatePct; v != nil && *v > t.ErrorRatePct {
		e.fire(ctx, result, errorRateMessage(*v, t.ErrorRatePct, t.Window, summary))
	}
	if v := summary.P95LatencySeconds; v != nil && *v > t.LatencyP95Seconds {
		e.fire(ctx, result, latencyMessage(*v, t.LatencyP95Seconds, t.Window, summary))
	}
	if v := summary.HourlyCostUSD; v != nil && *v > t.CostPerHourUSD {
		e.fire(ctx, result, costMessage(*v, t.CostPerHourUSD))
	}

	if len(result.AlertsSent) > 0 {
		slog.Warn("alerts sent", "alerts", result.AlertsSent)
	} else {
		slog.Info("all metrics within normal ranges", "total_requests", summary.SampleCount)
	}
	return result, nil
}

func (e *Engine) fire(ctx context.Context, result *Result, msg Message) {
	now := e.now()

	last, ok, err := e.cooldown.LastSent(ctx, msg.Type)
	if err != nil {
		slog.Warn("reading alert cooldown failed, treating alert as eligible", "alert_type", msg.Type, "error", err)
	}
	if ok && now.Sub(last) < e.thresholds.Cooldown {
		slog.Debug("alert suppressed by cooldown", "alert_type", msg.Type, "last_sent", last)
		return
	}

	if !e.deliver(ctx, msg) {
		return
	}
	if err := e.cooldown.MarkSent(ctx, msg.Type, now); err != nil {
		slog.Error("recording alert cooldown failed", "alert_type", msg.Type, "error", err)
	}
	result.AlertsSent = append(result.AlertsSent, msg.Type)
}

// deliver tries each notifier in order and stops at the first success.
func (e *Engine) deliver(ctx context.Context, msg Message) bool {
	for _, n := range e.notifiers {
		if err := n.Notify(ctx, msg); err != nil {
			slog.Warn("alert delivery failed", "channel", n.Name(), "alert_type", msg.Type, "error", err)
			continue
		}
		slog.Info("alert delivered", "channel", n.Name(), "alert_type", msg.Type, "subject", msg.Subject)
		return true
	}
	slog.Error("alert not delivered on any channel", "alert_type", msg.Type, "channels", len(e.notifiers))
	return false
}

// DefaultInterval is the Run period used when a non-positive one is given.
const DefaultInterval = 5 * time.Minute

// Run calls CheckAndAlert every interval until ctx is done. The first check
// runs immediately.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		slog.Warn("invalid alert check interval, using default", "interval", interval, "default", DefaultInterval)
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := e.CheckAndAlert(ctx); err != nil && ctx.Err() == nil {
			slog.Error("alert check failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
