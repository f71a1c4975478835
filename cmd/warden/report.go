// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/warden-dev/warden/internal/metrics"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize recorded outcomes over a time window",
		Long:  "Print request counts, latency percentiles, token usage, cost, error types, per-model statistics and feedback for the given window.",
		RunE:  runReport,
	}

	cmd.Flags().Duration("window", time.Hour, "how far back to look")
	cmd.Flags().Bool("json", false, "print the report as JSON")

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	window, _ := cmd.Flags().GetDuration("window")
	if window <= 0 {
		return wardenerr.Errorf(wardenerr.CodeCLIInputInvalid, "window must be positive (got %s)", window)
	}

	app, err := Wire(cmd.Context(), viper.GetViper(), secretStoreFactory())
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	report, err := app.Analyzer.Report(cmd.Context(), window)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	_, err = fmt.Fprint(out, renderReport(report, window))
	return err
}

func renderReport(r *metrics.Report, window time.Duration) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Warden report, last "+window.String()) + "\n\n")

	b.WriteString(row("Requests", fmt.Sprintf("%d (%d ok, %d failed)", r.SampleCount, r.SuccessCount, r.FailureCount)))
	b.WriteString(row("Success rate", formatOptional(r.SuccessRatePct, "%.1f%%")))
	b.WriteString(row("Error rate", formatOptional(r.ErrorRatePct, "%.1f%%")))
	b.WriteString(row("Latency p50/p95/p99", fmt.Sprintf("%s / %s / %s",
		formatOptional(r.LatencyP50Seconds, "%.2fs"),
		formatOptional(r.LatencyP95Seconds, "%.2fs"),
		formatOptional(r.LatencyP99Seconds, "%.2fs"))))
	b.WriteString(row("Avg tokens in/out", fmt.Sprintf("%s / %s",
		formatOptional(r.AvgPromptTokens, "%.0f"),
		formatOptional(r.AvgCompletionTokens, "%.0f"))))
	b.WriteString(row("Total tokens", fmt.Sprintf("%d", r.TotalTokens)))
	b.WriteString(row("Total cost", fmt.Sprintf("$%.6f", r.TotalCostUSD)))
	b.WriteString(row("Hourly cost", formatOptional(r.HourlyCostUSD, "$%.4f")))

	if len(r.ErrorTypes) > 0 {
		b.WriteString("\n" + promptStyle.Render("Errors") + "\n")
		kinds := make([]string, 0, len(r.ErrorTypes))
		for k := range r.ErrorTypes {
			kinds = append(kinds, k)
		}
		slices.Sort(kinds)
		for _, k := range kinds {
			b.WriteString(row("  "+k, fmt.Sprintf("%d", r.ErrorTypes[k])))
		}
	}

	if len(r.Models) > 0 {
		b.WriteString("\n" + promptStyle.Render("Models") + "\n")
		for _, m := range r.Models {
			b.WriteString(row("  "+m.Model, fmt.Sprintf("%d req · %.1f%% ok · %.2fs avg · $%.6f",
				m.Requests, m.SuccessRatePct, m.AvgDurationSeconds, m.TotalCostUSD)))
		}
	}

	if len(r.RecentErrors) > 0 {
		b.WriteString("\n" + promptStyle.Render("Recent errors") + "\n")
		for _, e := range r.RecentErrors {
			b.WriteString(dimStyle.Render(e.Timestamp.Format(time.RFC3339)) + " " +
				errorStyle.Render(e.ErrorType) + " " + e.RequestID + "\n")
		}
	}

	fb := r.Feedback
	b.WriteString("\n" + row("Feedback", fmt.Sprintf("%d (+%d / -%d), satisfaction %s",
		fb.Total, fb.Positive, fb.Negative, formatOptional(fb.SatisfactionPct, "%.0f%%"))))
	return b.String()
}
