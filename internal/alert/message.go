// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package alert

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/warden-dev/warden/internal/metrics"
)

const errorMessagePreview = 100

func errorRateMessage(rate, threshold float64, window time.Duration, s *metrics.Summary) Message {
	var details strings.Builder
	for _, e := range s.RecentErrors {
		kind := e.ErrorType
		if kind == "" {
			kind = "Unknown"
		}
		fmt.Fprintf(&details, "- %s: %s - %s\n", e.Timestamp.UTC().Format(time.RFC3339), kind, truncate(e.ErrorMessage, errorMessagePreview))
	}
	list := strings.TrimRight(details.String(), "\n")

	return Message{
		Type:    TypeHighErrorRate,
		Subject: fmt.Sprintf("High Error Rate: %.1f%%", rate),
		HTML: fmt.Sprintf(`<h2>High Error Rate Detected</h2>
<p><strong>Current Error Rate:</strong> %.1f%% (threshold: %g%%)</p>
<p><strong>Time Window:</strong> %s</p>
<p><strong>Total Requests:</strong> %d</p>
<h3>Recent Errors:</h3>
<pre>%s</pre>
<p>Check the metrics report for more details.</p>`,
			rate, threshold, describeWindow(window), s.SampleCount, html.EscapeString(list)),
		Text: fmt.Sprintf("*High Error Rate: %.1f%%* (threshold: %g%%)\nTime window: %s\nTotal requests: %d\n\nRecent errors:\n%s",
			rate, threshold, describeWindow(window), s.SampleCount, list),
	}
}

func latencyMessage(p95, threshold float64, window time.Duration, s *metrics.Summary) Message {
	return Message{
		Type:    TypeHighLatency,
		Subject: fmt.Sprintf("High Latency: p95=%.2fs", p95),
		HTML: fmt.Sprintf(`<h2>High Latency Detected</h2>
<p><strong>P95 Latency:</strong> %.2fs (threshold: %gs)</p>
<p><strong>Time Window:</strong> %s</p>
<p><strong>Successful Requests:</strong> %d</p>
<p>Response times are slower than expected. Check provider status and network latency.</p>`,
			p95, threshold, describeWindow(window), s.SuccessCount),
		Text: fmt.Sprintf("*High Latency: p95=%.2fs* (threshold: %gs)\nTime window: %s\nCheck the metrics report for details.",
			p95, threshold, describeWindow(window)),
	}
}

func costMessage(hourly, threshold float64) Message {
	daily := hourly * 24
	monthly := daily * 30
	return Message{
		Type:    TypeHighCost,
		Subject: fmt.Sprintf("High Cost: $%.4f/hour", hourly),
		HTML: fmt.Sprintf(`<h2>High Cost Detected</h2>
<p><strong>Hourly Cost:</strong> $%.4f (threshold: $%g)</p>
<p><strong>Projected Daily:</strong> $%.2f</p>
<p><strong>Projected Monthly:</strong> $%.2f</p>
<p>Review usage patterns and prompt sizes.</p>`,
			hourly, threshold, daily, monthly),
		Text: fmt.Sprintf("*High Cost: $%.4f/hour* (threshold: $%g)\nProjected monthly: $%.2f\nReview usage patterns in the metrics report.",
			hourly, threshold, monthly),
	}
}

func describeWindow(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "Last 1 hour"
	case d > 0 && d%time.Hour == 0:
		return fmt.Sprintf("Last %d hours", int(d/time.Hour))
	default:
		return "Last " + d.String()
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
