// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"

	"github.com/warden-dev/warden/internal/alert"
	"github.com/warden-dev/warden/internal/config"
	"github.com/warden-dev/warden/internal/invoker"
	"github.com/warden-dev/warden/internal/provider"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// doctorHTTPClient is used for API key validation. Tests replace it.
var doctorHTTPClient = &http.Client{Timeout: 10 * time.Second}

// pingPrompt asks for a reply that is cheap and easy to verify.
const pingPrompt = "Reply exactly: PONG"

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the configuration, provider credentials, server reachability, metrics storage, disk space and alert channels.",
		RunE:  runDoctor,
	}

	cmd.Flags().String("address", "", "server address to check (default: server.listen)")
	cmd.Flags().Bool("offline", false, "skip checks that contact the provider")
	cmd.Flags().Bool("ping", false, "send a test completion through the full pipeline")

	return cmd
}

type check struct {
	name string
	fn   func() string
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	v := viper.GetViper()

	src, err := config.NewSource(config.ViperLoader(v, secretStoreFactory()))
	if err != nil {
		_, _ = fmt.Fprintf(w, "%-20s %s\n", "Config:", errorStyle.Render("error: "+err.Error()))
		return err
	}
	cfg := src.Config()
	rp, problems := src.Provider()

	addr, _ := cmd.Flags().GetString("address")
	if addr == "" {
		addr = cfg.Server.Listen
	}
	offline, _ := cmd.Flags().GetBool("offline")
	ping, _ := cmd.Flags().GetBool("ping")

	checks := []check{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Config", func() string { return checkConfig(v.ConfigFileUsed()) }},
		{"Provider", func() string { return checkProvider(rp, problems) }},
	}
	if !offline {
		checks = append(checks, check{"API Key", func() string {
			return checkAPIKey(cmd.Context(), rp, problems)
		}})
	}
	if ping && !offline {
		checks = append(checks, check{"Ping", func() string { return checkPing(cmd.Context(), v) }})
	}
	checks = append(checks,
		check{"Server", func() string { return checkServer(addr) }},
		check{"Storage", func() string { return checkStorage(cfg) }},
		check{"Disk Space", func() string { return checkDiskSpace(cfg.MetricsDir()) }},
		check{"Alerts", func() string { return checkAlerts(cfg) }},
	)

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

func checkBinary() string {
	b := currentBuild()
	return fmt.Sprintf("warden %s (commit %s)", b.Version, b.Commit)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig(cfgFile string) string {
	if cfgFile != "" {
		return fmt.Sprintf("loaded from %s", cfgFile)
	}
	return "using defaults (no config file found)"
}

func checkProvider(rp config.ResolvedProvider, problems []string) string {
	if len(problems) > 0 {
		return errorStyle.Render(strings.Join(problems, " "))
	}
	return fmt.Sprintf("%s via %s", rp.Model, rp.APIBase)
}

func checkAPIKey(ctx context.Context, rp config.ResolvedProvider, problems []string) string {
	if len(problems) > 0 {
		return dimStyle.Render("skipped (fix the provider configuration first)")
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := provider.ValidateKey(ctx, doctorHTTPClient, rp.Name, rp.APIKey, rp.APIBase); err != nil {
		return errorStyle.Render("rejected: " + keyCheckReason(err))
	}
	return successStyle.Render("accepted")
}

// keyCheckReason describes a validation failure without echoing upstream text.
func keyCheckReason(err error) string {
	switch {
	case wardenerr.HasCode(err, wardenerr.CodeProviderAuthUnauthorized):
		return "the provider refused the key"
	case wardenerr.HasCode(err, wardenerr.CodeProviderRateLimited):
		return "rate limited, try again later"
	case wardenerr.HasCode(err, wardenerr.CodeProviderUpstreamTimeout):
		return "timed out"
	case wardenerr.HasCode(err, wardenerr.CodeProviderNotFound):
		return "unknown provider"
	default:
		return string(wardenerr.CodeOf(err))
	}
}

func checkPing(ctx context.Context, v *viper.Viper) string {
	app, err := Wire(ctx, v, secretStoreFactory())
	if err != nil {
		return errorStyle.Render("error: " + err.Error())
	}
	defer func() { _ = app.Close() }()

	resp, err := app.Invoker.Invoke(ctx, invoker.Request{Prompt: pingPrompt, Timeout: 30 * time.Second})
	if err != nil {
		var f *invoker.Failure
		if errors.As(err, &f) {
			return errorStyle.Render(fmt.Sprintf("%s (request %s)", f.Kind, f.RequestID))
		}
		return errorStyle.Render("error: " + err.Error())
	}
	reply := strings.TrimSpace(resp.Text)
	if !strings.Contains(strings.ToUpper(reply), "PONG") {
		return warnStyle.Render(fmt.Sprintf("unexpected reply %q in %.2fs", truncate(reply, 40), resp.Duration.Seconds()))
	}
	return successStyle.Render(fmt.Sprintf("PONG in %.2fs (%d tokens)", resp.Duration.Seconds(), resp.Usage.TotalTokens))
}

func checkServer(addr string) string {
	var body struct {
		Status string `json:"status"`
	}
	if err := newServerClient(addr).getJSON("/health", &body); err != nil {
		if wardenerr.HasCode(err, wardenerr.CodeCLIGatewayNotRunning) {
			return fmt.Sprintf("not running at %s (run 'warden serve')", addr)
		}
		return fmt.Sprintf("error: %s", err)
	}
	return fmt.Sprintf("%s at %s", body.Status, addr)
}

func checkStorage(cfg *config.Config) string {
	backend := cfg.Storage.Backend
	if backend == "" {
		backend = "jsonl"
	}
	dir := cfg.MetricsDir()
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("%s, %s (created on first request)", backend, dir)
		}
		return fmt.Sprintf("%s, error: %s", backend, err)
	}
	return fmt.Sprintf("%s, %s", backend, dir)
}

func checkDiskSpace(dir string) string {
	path := dir
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Fall back to home directory if the metrics dir doesn't exist yet.
		path, _ = os.UserHomeDir()
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	return formatBytes(availBytes) + " available"
}

func checkAlerts(cfg *config.Config) string {
	var channels []string
	if alert.NewEmailNotifier(cfg.Notify.Email).Configured() {
		channels = append(channels, "email")
	}
	if alert.NewWebhookNotifier(cfg.Notify.Webhook, nil).Configured() {
		channels = append(channels, "webhook")
	}
	cooldown := cfg.Alerts.CooldownStore
	if cooldown == "" {
		cooldown = "memory"
	}
	if len(channels) == 0 {
		return warnStyle.Render("no channel configured, alerts are only logged") + fmt.Sprintf(" (cooldown: %s)", cooldown)
	}
	return fmt.Sprintf("%s (cooldown: %s)", strings.Join(channels, ", "), cooldown)
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
