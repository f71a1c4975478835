// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/warden-dev/warden/internal/alert"
	"github.com/warden-dev/warden/internal/invoker"
	"github.com/warden-dev/warden/internal/metrics"
	"github.com/warden-dev/warden/internal/provider"
	"github.com/warden-dev/warden/internal/resilience"
	"github.com/warden-dev/warden/internal/store"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "chat",
		Method:      http.MethodPost,
		Path:        "/api/v1/chat",
		Summary:     "Send a prompt to the configured model",
		Tags:        []string{"chat"},
	}, s.handleChat)

	huma.Register(s.api, huma.Operation{
		OperationID: "metrics-summary",
		Method:      http.MethodGet,
		Path:        "/api/v1/metrics/summary",
		Summary:     "Alerting aggregates over a window",
		Tags:        []string{"metrics"},
	}, s.handleSummary)

	huma.Register(s.api, huma.Operation{
		OperationID: "metrics-report",
		Method:      http.MethodGet,
		Path:        "/api/v1/metrics/report",
		Summary:     "Dashboard report over a window",
		Tags:        []string{"metrics"},
	}, s.handleReport)

	huma.Register(s.api, huma.Operation{
		OperationID: "check-alerts",
		Method:      http.MethodPost,
		Path:        "/api/v1/alerts/check",
		Summary:     "Evaluate alert thresholds now",
		Tags:        []string{"alerts"},
	}, s.handleCheckAlerts)

	huma.Register(s.api, huma.Operation{
		OperationID:   "submit-feedback",
		Method:        http.MethodPost,
		Path:          "/api/v1/feedback",
		Summary:       "Rate an assistant message",
		Tags:          []string{"feedback"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleFeedback)

	huma.Register(s.api, huma.Operation{
		OperationID: "breaker-state",
		Method:      http.MethodGet,
		Path:        "/api/v1/breaker",
		Summary:     "Circuit breaker state",
		Tags:        []string{"system"},
	}, s.handleBreakers)
}

// --- Request/Response types for huma ---

type chatTurn struct {
	Role    string `json:"role" enum:"user,assistant" doc:"Speaker of this turn"`
	Content string `json:"content" doc:"Turn text"`
}

type chatInput struct {
	Body struct {
		Prompt         string     `json:"prompt" minLength:"1" maxLength:"32000" doc:"User message"`
		History        []chatTurn `json:"history,omitempty" doc:"Earlier turns, oldest first"`
		Temperature    *float64   `json:"temperature,omitempty" doc:"Sampling temperature override (0-2)"`
		TimeoutSeconds float64    `json:"timeout_seconds,omitempty" minimum:"0" maximum:"600" doc:"Overall request timeout"`
		UserID         string     `json:"user_id,omitempty"`
		SessionID      string     `json:"session_id,omitempty"`
	}
}

type usageBody struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatOutput struct {
	Body struct {
		Text            string    `json:"text" doc:"Model answer"`
		RequestID       string    `json:"request_id"`
		Model           string    `json:"model"`
		Usage           usageBody `json:"usage"`
		CostUSD         float64   `json:"cost_usd"`
		DurationSeconds float64   `json:"duration_seconds"`
		Attempts        int       `json:"attempts"`
	}
}

type windowInput struct {
	WindowHours float64 `query:"window_hours" default:"1" minimum:"0" maximum:"720" doc:"Look-back window in hours"`
}

func (in *windowInput) window() time.Duration {
	return time.Duration(in.WindowHours * float64(time.Hour))
}

type summaryOutput struct {
	Body *metrics.Summary
}

type reportOutput struct {
	Body *metrics.Report
}

type checkAlertsOutput struct {
	Body *alert.Result
}

type feedbackInput struct {
	Body struct {
		RequestID    string `json:"request_id" minLength:"1" doc:"Request the rated message came from"`
		MessageIndex int    `json:"message_index" minimum:"0" doc:"Position of the message in the conversation"`
		Rating       string `json:"rating" enum:"positive,negative"`
		Comment      string `json:"comment,omitempty" maxLength:"2000"`
	}
}

type feedbackOutput struct {
	Body struct {
		Status string `json:"status" example:"recorded"`
	}
}

type breakerBody struct {
	Name          string     `json:"name"`
	State         string     `json:"state" enum:"closed,open,half_open"`
	Failures      int        `json:"failures"`
	FailThreshold int        `json:"fail_threshold"`
	OpenedAt      *time.Time `json:"opened_at,omitempty"`
	RetryAt       *time.Time `json:"retry_at,omitempty"`
}

type breakersOutput struct {
	Body struct {
		Breakers []breakerBody `json:"breakers"`
	}
}

// --- Handlers ---

func (s *Server) handleChat(ctx context.Context, input *chatInput) (*chatOutput, error) {
	req := invoker.Request{
		Prompt:    input.Body.Prompt,
		UserID:    input.Body.UserID,
		SessionID: input.Body.SessionID,
		Timeout:   time.Duration(input.Body.TimeoutSeconds * float64(time.Second)),
	}
	if t := input.Body.Temperature; t != nil {
		if *t < 0 || *t > 2 {
			return nil, huma.Error400BadRequest("temperature must be between 0 and 2")
		}
		req.Temperature = t
	}
	for _, turn := range input.Body.History {
		req.History = append(req.History, provider.Message{Role: provider.Role(turn.Role), Content: turn.Content})
	}

	resp, err := s.services.chat.Invoke(ctx, req)
	if err != nil {
		return nil, chatError(err)
	}

	out := &chatOutput{}
	out.Body.Text = resp.Text
	out.Body.RequestID = resp.RequestID
	out.Body.Model = resp.Model
	out.Body.Usage = usageBody{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	out.Body.CostUSD = resp.CostUSD
	out.Body.DurationSeconds = resp.Duration.Seconds()
	out.Body.Attempts = resp.Attempts
	return out, nil
}

// chatError turns an invocation failure into an HTTP error carrying only the
// user-safe message and the request id.
func chatError(err error) error {
	var f *invoker.Failure
	if !errors.As(err, &f) {
		slog.Error("chat failed outside the invoker", "error", err)
		return huma.Error500InternalServerError("chat failed")
	}
	details := []error{&huma.ErrorDetail{Location: "request_id", Value: f.RequestID}}
	for _, p := range f.Problems {
		details = append(details, &huma.ErrorDetail{Location: "config", Message: p})
	}
	return huma.NewError(statusForKind(f.Kind), f.Message, details...)
}

func statusForKind(kind resilience.ErrorKind) int {
	switch kind {
	case resilience.KindBadRequest:
		return http.StatusBadRequest
	case resilience.KindRateLimitExceeded:
		return http.StatusTooManyRequests
	case resilience.KindTimeout:
		return http.StatusGatewayTimeout
	case resilience.KindConfiguration, resilience.KindCircuitOpen, resilience.KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleSummary(ctx context.Context, input *windowInput) (*summaryOutput, error) {
	sum, err := s.services.metrics.Summary(ctx, input.window())
	if err != nil {
		return nil, internalError("loading metrics summary", err)
	}
	return &summaryOutput{Body: sum}, nil
}

func (s *Server) handleReport(ctx context.Context, input *windowInput) (*reportOutput, error) {
	rep, err := s.services.metrics.Report(ctx, input.window())
	if err != nil {
		return nil, internalError("loading metrics report", err)
	}
	return &reportOutput{Body: rep}, nil
}

func (s *Server) handleCheckAlerts(ctx context.Context, _ *struct{}) (*checkAlertsOutput, error) {
	res, err := s.services.alerts.CheckAndAlert(ctx)
	if err != nil {
		return nil, internalError("checking alerts", err)
	}
	return &checkAlertsOutput{Body: res}, nil
}

func (s *Server) handleFeedback(ctx context.Context, input *feedbackInput) (*feedbackOutput, error) {
	fb := &store.Feedback{
		Timestamp:    time.Now().UTC(),
		RequestID:    input.Body.RequestID,
		MessageIndex: input.Body.MessageIndex,
		Rating:       store.Rating(input.Body.Rating),
		Comment:      input.Body.Comment,
	}
	if err := fb.Validate(); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	s.services.feedback.RecordFeedback(ctx, fb)

	out := &feedbackOutput{}
	out.Body.Status = "recorded"
	return out, nil
}

func (s *Server) handleBreakers(_ context.Context, _ *struct{}) (*breakersOutput, error) {
	out := &breakersOutput{}
	out.Body.Breakers = make([]breakerBody, 0, len(s.services.breakers))
	for _, b := range s.services.breakers {
		snap := b.Snapshot()
		out.Body.Breakers = append(out.Body.Breakers, breakerBody{
			Name:          snap.Name,
			State:         snap.State.String(),
			Failures:      snap.Failures,
			FailThreshold: snap.FailThreshold,
			OpenedAt:      snap.OpenedAt,
			RetryAt:       snap.RetryAt,
		})
	}
	return out, nil
}

func internalError(op string, err error) error {
	slog.Error(op+" failed", "error", err, "code", string(wardenerr.CodeOf(err)))
	return huma.NewError(wardenerr.HTTPStatus(err), op+" failed")
}
