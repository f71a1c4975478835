// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/warden-dev/warden/internal/alert"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one alert check against the recorded outcomes",
		Long:  "Compute error rate, p95 latency and hourly cost over the alert window and send an alert for every threshold exceeded outside its cooldown.",
		RunE:  runCheck,
	}

	cmd.Flags().Bool("json", false, "print the result as JSON")

	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	app, err := Wire(cmd.Context(), viper.GetViper(), secretStoreFactory())
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	result, err := app.Engine.CheckAndAlert(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	_, err = fmt.Fprint(out, renderCheck(result))
	return err
}

func renderCheck(r *alert.Result) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Alert check") + "\n")
	b.WriteString(row("Requests", fmt.Sprintf("%d", r.Metrics.TotalRequests)))
	b.WriteString(row("Error rate", formatOptional(r.Metrics.ErrorRate, "%.1f%%")))
	b.WriteString(row("P95 latency", formatOptional(r.Metrics.P95Latency, "%.2fs")))
	b.WriteString(row("Hourly cost", formatOptional(r.Metrics.HourlyCost, "$%.4f")))

	if len(r.AlertsSent) == 0 {
		b.WriteString(successStyle.Render("All metrics within normal ranges.") + "\n")
		return b.String()
	}
	names := make([]string, len(r.AlertsSent))
	for i, t := range r.AlertsSent {
		names[i] = string(t)
	}
	b.WriteString(warnStyle.Render("Alerts sent: "+strings.Join(names, ", ")) + "\n")
	return b.String()
}

// formatOptional renders v with format, or "n/a" when there was not enough data.
func formatOptional(v *float64, format string) string {
	if v == nil {
		return dimStyle.Render("n/a")
	}
	return fmt.Sprintf(format, *v)
}
