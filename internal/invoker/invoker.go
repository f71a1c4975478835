// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package invoker runs one logical completion request through the resilience
// pipeline and records exactly one outcome for it.
package invoker

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warden-dev/warden/internal/config"
	"github.com/warden-dev/warden/internal/provider"
	"github.com/warden-dev/warden/internal/redact"
	"github.com/warden-dev/warden/internal/resilience"
	"github.com/warden-dev/warden/internal/store"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// DefaultTimeout bounds a request when neither the caller nor the provider
// config sets one.
const DefaultTimeout = 60 * time.Second

// ConfigSource hands out the current settings. *config.Source implements it.
type ConfigSource interface {
	Config() *config.Config
	Provider() (config.ResolvedProvider, []string)
}

// ClientSource builds or reuses provider clients. *provider.Registry
// implements it.
type ClientSource interface {
	Get(name string, cfg provider.Config) (provider.Completer, error)
}

// Recorder persists outcomes. *metrics.Recorder implements it.
type Recorder interface {
	Record(ctx context.Context, o *store.Outcome)
}

// Pricer computes the USD cost of a completion. *metrics.PriceTable
// implements it.
type Pricer interface {
	Cost(model string, promptTokens, completionTokens int) float64
}

// Request is one user turn.
type Request struct {
	Prompt  string
	History []provider.Message

	// Temperature overrides the configured temperature when set.
	Temperature *float64
	// Timeout bounds queueing, backoff and the remote call together.
	// Zero takes the provider timeout.
	Timeout time.Duration

	UserID    string
	SessionID string
}

// Response is a successful completion.
type Response struct {
	Text      string
	RequestID string
	Model     string
	Usage     provider.Usage
	CostUSD   float64
	Duration  time.Duration
	Attempts  int
}

// Config holds dependencies for the Invoker.
type Config struct {
	Source     ConfigSource
	Clients    ClientSource
	Pipeline   resilience.Pipeline
	Recorder   Recorder
	Pricing    Pricer
	HTTPClient *http.Client
}

// Invoker is safe for concurrent use; shared state lives in the pipeline
// policies.
type Invoker struct {
	source     ConfigSource
	clients    ClientSource
	pipeline   resilience.Pipeline
	recorder   Recorder
	pricing    Pricer
	httpClient *http.Client
	nowFunc    func() time.Time
}

func New(cfg Config) *Invoker {
	return &Invoker{
		source:     cfg.Source,
		clients:    cfg.Clients,
		pipeline:   cfg.Pipeline,
		recorder:   cfg.Recorder,
		pricing:    cfg.Pricing,
		httpClient: cfg.HTTPClient,
		nowFunc:    time.Now,
	}
}

// Invoke sends req to the configured provider. Every call records one
// outcome. Errors are always *Failure.
func (inv *Invoker) Invoke(ctx context.Context, req Request) (*Response, error) {
	requestID := uuid.NewString()
	start := inv.nowFunc()

	// Step 1: resolve the provider settings.
	rp, problems := inv.source.Provider()
	temperature := rp.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	outcome := &store.Outcome{
		RequestID:   requestID,
		Timestamp:   start.UTC(),
		Model:       rp.Model,
		Temperature: temperature,
		UserID:      req.UserID,
		SessionID:   req.SessionID,
	}
	log := slog.With("request_id", requestID, "model", rp.Model)

	if len(problems) > 0 {
		f := &Failure{
			Kind:        resilience.KindConfiguration,
			Message:     UserMessage(resilience.KindConfiguration),
			RequestID:   requestID,
			Problems:    problems,
			Remediation: rp.Remediation(),
		}
		log.Error("provider configuration invalid",
			"provider", rp.Name, "api_key", redact.Mask(rp.APIKey), "problems", problems)
		return nil, inv.fail(ctx, outcome, start, f)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		f := &Failure{
			Kind:      resilience.KindBadRequest,
			Message:   "Please enter a message.",
			RequestID: requestID,
		}
		return nil, inv.fail(ctx, outcome, start, f)
	}

	client, err := inv.clients.Get(rp.Name, provider.Config{
		APIKey:     rp.APIKey,
		BaseURL:    rp.APIBase,
		HTTPClient: inv.httpClient,
	})
	if err != nil {
		scrub := redact.New(rp.APIKey)
		log.Error("building provider client failed", "provider", rp.Name, "error", scrub.String(err.Error()))
		f := &Failure{
			Kind:        resilience.KindConfiguration,
			Message:     UserMessage(resilience.KindConfiguration),
			RequestID:   requestID,
			Problems:    []string{scrub.String(err.Error())},
			Remediation: rp.Remediation(),
			Err:         err,
		}
		return nil, inv.fail(ctx, outcome, start, f)
	}

	// Step 2: build the transcript.
	messages := BuildMessages(LoadSystemPrompt(inv.source.Config().Prompt.SystemPromptFile), req.History, req.Prompt)

	// Step 3: call through the pipeline under one deadline.
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = rp.Timeout
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var completion *provider.Completion
	attempts, err := inv.pipeline.Run(callCtx, func(ctx context.Context) error {
		c, err := client.Complete(ctx, provider.Request{
			Model:       rp.BaseModel(),
			Messages:    messages,
			Temperature: temperature,
			MaxTokens:   rp.MaxTokens,
		})
		if err != nil {
			return err
		}
		completion = c
		return nil
	})
	outcome.Attempts = attempts

	if err != nil {
		kind := resilience.Classify(err)
		log.Error("completion failed",
			"provider", rp.Name,
			"kind", string(kind),
			"attempts", attempts,
			"code", string(wardenerr.CodeOf(err)),
			"api_key", redact.Mask(rp.APIKey),
			"error", redact.New(rp.APIKey).String(err.Error()),
		)
		f := &Failure{
			Kind:      kind,
			Message:   UserMessage(kind),
			RequestID: requestID,
			Err:       err,
		}
		return nil, inv.fail(ctx, outcome, start, f)
	}

	// Step 4: price and record.
	usage := provider.NormalizeUsage(completion.Usage)
	cost := inv.pricing.Cost(rp.Model, usage.PromptTokens, usage.CompletionTokens)
	duration := inv.nowFunc().Sub(start)

	outcome.Success = true
	outcome.PromptTokens = usage.PromptTokens
	outcome.CompletionTokens = usage.CompletionTokens
	outcome.TotalTokens = usage.TotalTokens
	outcome.CostUSD = cost
	outcome.DurationSeconds = duration.Seconds()
	inv.record(ctx, outcome)

	log.Info("completion succeeded",
		"attempts", attempts,
		"total_tokens", usage.TotalTokens,
		"cost_usd", cost,
		"duration", duration,
	)
	return &Response{
		Text:      completion.Text,
		RequestID: requestID,
		Model:     rp.Model,
		Usage:     usage,
		CostUSD:   cost,
		Duration:  duration,
		Attempts:  attempts,
	}, nil
}

// fail records the failed outcome and returns f.
func (inv *Invoker) fail(ctx context.Context, o *store.Outcome, start time.Time, f *Failure) *Failure {
	o.Success = false
	o.ErrorType = string(f.Kind)
	o.ErrorMessage = f.Message
	o.DurationSeconds = inv.nowFunc().Sub(start).Seconds()
	inv.record(ctx, o)
	return f
}

// record writes o even when the caller's context has already ended.
func (inv *Invoker) record(ctx context.Context, o *store.Outcome) {
	if inv.recorder == nil {
		return
	}
	inv.recorder.Record(context.WithoutCancel(ctx), o)
}
