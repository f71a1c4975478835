// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package alert_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-dev/warden/internal/alert"
	"github.com/warden-dev/warden/internal/metrics"
	"github.com/warden-dev/warden/internal/store"
	"github.com/warden-dev/warden/internal/store/jsonl"
)

var t0 = time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC)

var defaultThresholds = alert.Thresholds{
	ErrorRatePct:      10,
	LatencyP95Seconds: 5,
	CostPerHourUSD:    1,
	Window:            time.Hour,
	Cooldown:          time.Hour,
}

type staticAnalyzer struct {
	summary *metrics.Summary
	err     error
}

func (s *staticAnalyzer) Summary(context.Context, time.Duration) (*metrics.Summary, error) {
	return s.summary, s.err
}

// recordingNotifier captures delivered messages, failing while err is set.
type recordingNotifier struct {
	mu   sync.Mutex
	name string
	err  error
	sent []alert.Message
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Notify(_ context.Context, msg alert.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingNotifier) types() []alert.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []alert.Type
	for _, m := range r.sent {
		out = append(out, m.Type)
	}
	return out
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newEngine(a alert.Analyzer, notifiers ...alert.Notifier) (*alert.Engine, *clock) {
	e := alert.NewEngine(a, defaultThresholds, alert.NewMemoryCooldown(), notifiers...)
	c := &clock{now: t0}
	e.SetNowFunc(c.Now)
	return e, c
}

func ptr(v float64) *float64 { return &v }

func TestCheckAndAlert_ThresholdsAreStrict(t *testing.T) {
	tests := []struct {
		name    string
		summary metrics.Summary
		want    []alert.Type
	}{
		{
			name:    "all nil",
			summary: metrics.Summary{SampleCount: 3},
			want:    nil,
		},
		{
			name:    "equal to thresholds",
			summary: metrics.Summary{ErrorRatePct: ptr(10), P95LatencySeconds: ptr(5), HourlyCostUSD: ptr(1)},
			want:    nil,
		},
		{
			name:    "error rate only",
			summary: metrics.Summary{ErrorRatePct: ptr(10.1), P95LatencySeconds: ptr(1), HourlyCostUSD: ptr(0.5)},
			want:    []alert.Type{alert.TypeHighErrorRate},
		},
		{
			name:    "latency and cost",
			summary: metrics.Summary{ErrorRatePct: ptr(0), P95LatencySeconds: ptr(7.5), HourlyCostUSD: ptr(2)},
			want:    []alert.Type{alert.TypeHighLatency, alert.TypeHighCost},
		},
		{
			name:    "everything",
			summary: metrics.Summary{ErrorRatePct: ptr(50), P95LatencySeconds: ptr(9), HourlyCostUSD: ptr(3)},
			want:    []alert.Type{alert.TypeHighErrorRate, alert.TypeHighLatency, alert.TypeHighCost},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &recordingNotifier{name: "rec"}
			e, _ := newEngine(&staticAnalyzer{summary: &tt.summary}, n)

			res, err := e.CheckAndAlert(context.Background())
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, res.AlertsSent)
			} else {
				assert.Equal(t, tt.want, res.AlertsSent)
			}
			assert.Equal(t, tt.want, n.types())
		})
	}
}

func TestCheckAndAlert_ResultCarriesMetrics(t *testing.T) {
	sum := &metrics.Summary{SampleCount: 42, ErrorRatePct: ptr(2), HourlyCostUSD: ptr(0.1)}
	e, _ := newEngine(&staticAnalyzer{summary: sum})

	res, err := e.CheckAndAlert(context.Background())
	require.NoError(t, err)
	assert.Equal(t, t0, res.Timestamp)
	assert.Equal(t, 42, res.Metrics.TotalRequests)
	assert.Equal(t, ptr(2), res.Metrics.ErrorRate)
	assert.Nil(t, res.Metrics.P95Latency)
	assert.Equal(t, ptr(0.1), res.Metrics.HourlyCost)
}

func TestCheckAndAlert_CooldownPerType(t *testing.T) {
	sum := &metrics.Summary{ErrorRatePct: ptr(40), HourlyCostUSD: ptr(0.1)}
	n := &recordingNotifier{name: "rec"}
	e, c := newEngine(&staticAnalyzer{summary: sum}, n)
	ctx := context.Background()

	res, err := e.CheckAndAlert(ctx)
	require.NoError(t, err)
	assert.Equal(t, []alert.Type{alert.TypeHighErrorRate}, res.AlertsSent)

	// A different dimension is not blocked by the error-rate cooldown.
	sum.HourlyCostUSD = ptr(5)
	c.now = t0.Add(10 * time.Minute)
	res, err = e.CheckAndAlert(ctx)
	require.NoError(t, err)
	assert.Equal(t, []alert.Type{alert.TypeHighCost}, res.AlertsSent)

	c.now = t0.Add(59 * time.Minute)
	res, err = e.CheckAndAlert(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.AlertsSent)

	c.now = t0.Add(time.Hour)
	res, err = e.CheckAndAlert(ctx)
	require.NoError(t, err)
	assert.Equal(t, []alert.Type{alert.TypeHighErrorRate}, res.AlertsSent)
}

func TestCheckAndAlert_FallsBackToNextChannel(t *testing.T) {
	broken := &recordingNotifier{name: "email", err: errors.New("connection refused")}
	backup := &recordingNotifier{name: "webhook"}
	e, _ := newEngine(&staticAnalyzer{summary: &metrics.Summary{HourlyCostUSD: ptr(2)}}, broken, backup)

	res, err := e.CheckAndAlert(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []alert.Type{alert.TypeHighCost}, res.AlertsSent)
	assert.Empty(t, broken.sent)
	assert.Equal(t, []alert.Type{alert.TypeHighCost}, backup.types())
}

func TestCheckAndAlert_UndeliveredAlertIsRetriedNextRun(t *testing.T) {
	n := &recordingNotifier{name: "webhook", err: errors.New("HTTP 500")}
	e, c := newEngine(&staticAnalyzer{summary: &metrics.Summary{HourlyCostUSD: ptr(2)}}, n)
	ctx := context.Background()

	res, err := e.CheckAndAlert(ctx)
	require.NoError(t, err, "delivery errors are not returned")
	assert.Empty(t, res.AlertsSent)

	n.err = nil
	c.now = t0.Add(5 * time.Minute)
	res, err = e.CheckAndAlert(ctx)
	require.NoError(t, err)
	assert.Equal(t, []alert.Type{alert.TypeHighCost}, res.AlertsSent)
}

func TestCheckAndAlert_NoChannels(t *testing.T) {
	e, _ := newEngine(&staticAnalyzer{summary: &metrics.Summary{HourlyCostUSD: ptr(2)}})

	res, err := e.CheckAndAlert(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.AlertsSent)
}

func TestCheckAndAlert_AnalyzerError(t *testing.T) {
	cause := errors.New("permission denied")
	e, _ := newEngine(&staticAnalyzer{err: cause})

	_, err := e.CheckAndAlert(context.Background())
	assert.ErrorIs(t, err, cause)
}

func TestCheckAndAlert_MessagesCarryAggregates(t *testing.T) {
	sum := &metrics.Summary{
		SampleCount:   10,
		ErrorRatePct:  ptr(40),
		HourlyCostUSD: ptr(1.5),
		RecentErrors: []metrics.ErrorSample{
			{Timestamp: t0, ErrorType: "ServiceUnavailable", ErrorMessage: "The service is temporarily unavailable."},
		},
	}
	n := &recordingNotifier{name: "rec"}
	e, _ := newEngine(&staticAnalyzer{summary: sum}, n)

	_, err := e.CheckAndAlert(context.Background())
	require.NoError(t, err)
	require.Len(t, n.sent, 2)

	rate := n.sent[0]
	assert.Equal(t, "High Error Rate: 40.0%", rate.Subject)
	assert.Contains(t, rate.Text, "Total requests: 10")
	assert.Contains(t, rate.Text, "ServiceUnavailable - The service is temporarily unavailable.")
	assert.Contains(t, rate.HTML, "Last 1 hour")

	cost := n.sent[1]
	assert.Equal(t, "High Cost: $1.5000/hour", cost.Subject)
	assert.Contains(t, cost.HTML, "Projected Daily:</strong> $36.00")
	assert.Contains(t, cost.HTML, "Projected Monthly:</strong> $1080.00")
}

func TestRun_StopsWhenContextDone(t *testing.T) {
	n := &recordingNotifier{name: "rec"}
	e, _ := newEngine(&staticAnalyzer{summary: &metrics.Summary{HourlyCostUSD: ptr(2)}}, n)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(n.types()) == 1 }, time.Second, 5*time.Millisecond,
		"first check runs immediately")
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_NonPositiveIntervalUsesDefault(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		t.Run(interval.String(), func(t *testing.T) {
			n := &recordingNotifier{name: "rec"}
			e, _ := newEngine(&staticAnalyzer{summary: &metrics.Summary{HourlyCostUSD: ptr(2)}}, n)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				defer close(done)
				assert.NotPanics(t, func() { e.Run(ctx, interval) })
			}()

			require.Eventually(t, func() bool { return len(n.types()) == 1 }, time.Second, 5*time.Millisecond)
			cancel()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("Run did not return after cancel")
			}
			assert.Len(t, n.types(), 1, "no extra checks before the default interval")
		})
	}
}

func TestEndToEnd_AlertCooldownRealert(t *testing.T) {
	s, err := jsonl.New(filepath.Join(t.TempDir(), "metrics"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	rec := metrics.NewRecorder(s)
	for i := range 10 {
		o := &store.Outcome{
			RequestID:       fmt.Sprintf("req-%d", i),
			Timestamp:       t0.Add(-time.Duration(30-i) * time.Minute),
			Model:           "openai/gemini-3-flash",
			DurationSeconds: 0.5,
			Success:         i >= 4,
		}
		if !o.Success {
			o.ErrorType = "ServiceUnavailable"
			o.ErrorMessage = "The service is temporarily unavailable."
		}
		rec.Record(ctx, o)
	}

	analyzer := metrics.NewAnalyzer(s, 10)
	n := &recordingNotifier{name: "rec"}
	e := alert.NewEngine(analyzer, defaultThresholds, alert.NewMemoryCooldown(), n)
	c := &clock{now: t0}
	analyzer.SetNowFunc(c.Now)
	e.SetNowFunc(c.Now)

	res, err := e.CheckAndAlert(ctx)
	require.NoError(t, err)
	assert.Equal(t, []alert.Type{alert.TypeHighErrorRate}, res.AlertsSent)
	require.NotNil(t, res.Metrics.ErrorRate)
	assert.InDelta(t, 40.0, *res.Metrics.ErrorRate, 1e-9)
	assert.Equal(t, 10, res.Metrics.TotalRequests)

	res, err = e.CheckAndAlert(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.AlertsSent, "cooldown suppresses the repeat")

	// Past the cooldown but with the same records still in the window.
	c.now = t0.Add(time.Hour)
	analyzer.SetNowFunc(func() time.Time { return t0 })
	res, err = e.CheckAndAlert(ctx)
	require.NoError(t, err)
	assert.Equal(t, []alert.Type{alert.TypeHighErrorRate}, res.AlertsSent)
	assert.Len(t, n.sent, 2)
}

func summaryWithCost(hourly float64) *metrics.Summary {
	return &metrics.Summary{SampleCount: 1, HourlyCostUSD: ptr(hourly)}
}
