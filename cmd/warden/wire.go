// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/warden-dev/warden/internal/alert"
	"github.com/warden-dev/warden/internal/config"
	"github.com/warden-dev/warden/internal/invoker"
	"github.com/warden-dev/warden/internal/metrics"
	"github.com/warden-dev/warden/internal/provider"
	anthropicprov "github.com/warden-dev/warden/internal/provider/anthropic"
	geminiprov "github.com/warden-dev/warden/internal/provider/gemini"
	openaiprov "github.com/warden-dev/warden/internal/provider/openai"
	"github.com/warden-dev/warden/internal/resilience"
	"github.com/warden-dev/warden/internal/secrets"
	"github.com/warden-dev/warden/internal/store"
	_ "github.com/warden-dev/warden/internal/store/jsonl"  // register jsonl backend
	_ "github.com/warden-dev/warden/internal/store/sqlite" // register sqlite backend
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// App holds all wired subsystems and manages their lifecycle.
type App struct {
	Source    *config.Source
	Store     store.MetricsStore
	Recorder  *metrics.Recorder
	Analyzer  *metrics.Analyzer
	Pricing   *metrics.PriceTable
	Providers *provider.Registry
	Breaker   *resilience.CircuitBreaker
	Invoker   *invoker.Invoker
	Engine    *alert.Engine

	closers []func() error
}

// Wire creates all subsystems from the configuration held by v. Keyring
// references are resolved through secretStore, which may be nil.
func Wire(ctx context.Context, v *viper.Viper, secretStore secrets.Store) (*App, error) {
	// 1. Configuration.
	src, err := config.NewSource(config.ViperLoader(v, secretStore))
	if err != nil {
		return nil, err
	}
	cfg := src.Config()

	app := &App{Source: src}

	// 2. Metrics store.
	dir := cfg.MetricsDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, wardenerr.Errorf(wardenerr.CodeCLISetupFailure, "creating metrics directory: %w", err)
	}
	ms, err := store.Open(&store.StorageConfig{Backend: cfg.Storage.Backend, Dir: dir})
	if err != nil {
		return nil, err
	}
	app.Store = ms
	app.closers = append(app.closers, ms.Close)

	app.Recorder = metrics.NewRecorder(ms)
	app.Analyzer = metrics.NewAnalyzer(ms, cfg.Alerts.MinSamples)
	app.Pricing, err = metrics.NewPriceTable(cfg.Pricing)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	// 3. Providers.
	app.Providers = provider.NewRegistry()
	registerBuiltinProviders(app.Providers)

	// 4. Resilience pipeline, shared by every request.
	app.Breaker = resilience.NewCircuitBreaker(resilience.BreakerSettings{
		Name:          cfg.Provider.Resolve().Name,
		FailThreshold: cfg.Resilience.Breaker.FailThreshold,
		ResetTimeout:  cfg.Resilience.Breaker.ResetTimeout,
	})
	limiter, err := resilience.NewRateLimiter(cfg.Resilience.RateLimit.MaxCalls, cfg.Resilience.RateLimit.Period)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	retry := resilience.NewRetry(resilience.RetrySettings{
		MaxAttempts: cfg.Resilience.Retry.MaxAttempts,
		BaseDelay:   cfg.Resilience.Retry.BaseDelay,
		MaxDelay:    cfg.Resilience.Retry.MaxDelay,
		OnRetry: func(attempt int, kind resilience.ErrorKind, delay time.Duration) {
			slog.Warn("retrying completion", "attempt", attempt, "error_type", string(kind), "delay", delay)
		},
	})

	app.Invoker = invoker.New(invoker.Config{
		Source:     src,
		Clients:    app.Providers,
		Pipeline:   resilience.Pipeline{retry, app.Breaker, limiter},
		Recorder:   app.Recorder,
		Pricing:    app.Pricing,
		HTTPClient: &http.Client{},
	})

	// 5. Alerting.
	cooldown, err := newCooldown(ctx, cfg.Alerts)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	if c, ok := cooldown.(interface{ Close() error }); ok {
		app.closers = append(app.closers, c.Close)
	}
	app.Engine = alert.NewEngine(app.Analyzer, alert.ThresholdsFromConfig(cfg.Alerts), cooldown, configuredNotifiers(cfg.Notify)...)

	return app, nil
}

// Close releases resources in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return wardenerr.Join(errs...)
}

// registerBuiltinProviders registers a factory for every built-in adapter.
func registerBuiltinProviders(reg *provider.Registry) {
	reg.Register("openai", func(cfg provider.Config) (provider.Completer, error) {
		return openaiprov.New(cfg)
	})
	reg.Register("gemini", func(cfg provider.Config) (provider.Completer, error) {
		return geminiprov.New(cfg)
	})
	reg.Register("anthropic", func(cfg provider.Config) (provider.Completer, error) {
		return anthropicprov.New(cfg)
	})
}

func newCooldown(ctx context.Context, cfg config.AlertsConfig) (alert.CooldownStore, error) {
	if cfg.CooldownStore != "redis" {
		return alert.NewMemoryCooldown(), nil
	}
	return alert.NewRedisCooldown(ctx, cfg.RedisURL)
}

// configuredNotifiers returns the channels that have enough settings to send.
// Email is tried before the webhook.
func configuredNotifiers(cfg config.NotifyConfig) []alert.Notifier {
	var out []alert.Notifier
	if n := alert.NewEmailNotifier(cfg.Email); n.Configured() {
		out = append(out, n)
	}
	if n := alert.NewWebhookNotifier(cfg.Webhook, nil); n.Configured() {
		out = append(out, n)
	}
	if len(out) == 0 {
		slog.Warn("no alert channel configured, alerts will only be logged")
	}
	return out
}
