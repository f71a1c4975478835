// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package openai adapts the OpenAI Chat Completions API, and any
// OpenAI-compatible proxy reachable through a base URL, to provider.Completer.
package openai

import (
	"context"
	"errors"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/warden-dev/warden/internal/provider"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

const name = "openai"

// Provider implements provider.Completer using the OpenAI Chat Completions API.
type Provider struct {
	client openaisdk.Client
}

var _ provider.Completer = (*Provider)(nil)

// New creates a new OpenAI provider. SDK-level retries are disabled; the
// resilience pipeline owns retry policy.
func New(cfg provider.Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, wardenerr.New(wardenerr.CodeProviderConfigInvalid, "openai: missing api_key in config",
			wardenerr.FieldProvider(name))
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Provider{client: openaisdk.NewClient(opts...)}, nil
}

func (p *Provider) Name() string { return name }

func (p *Provider) Complete(ctx context.Context, req provider.Request) (*provider.Completion, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, upstreamError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, wardenerr.New(wardenerr.CodeProviderResponseInvalid, "openai: response has no choices",
			wardenerr.FieldProvider(name), wardenerr.FieldModel(req.Model))
	}

	choice := resp.Choices[0]
	return &provider.Completion{
		Text:         choice.Message.Content,
		Model:        resp.Model,
		FinishReason: choice.FinishReason,
		Usage: provider.NormalizeUsage(provider.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		}),
	}, nil
}

// buildParams converts a provider.Request into OpenAI SDK ChatCompletionNewParams.
func buildParams(req provider.Request) (openaisdk.ChatCompletionNewParams, error) {
	msgs, err := convertMessages(req.Messages)
	if err != nil {
		return openaisdk.ChatCompletionNewParams{}, err
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:       shared.ChatModel(req.Model),
		Messages:    msgs,
		Temperature: param.NewOpt(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	return params, nil
}

func convertMessages(msgs []provider.Message) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	result := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case provider.RoleSystem:
			result = append(result, openaisdk.SystemMessage(msg.Content))
		case provider.RoleUser:
			result = append(result, openaisdk.UserMessage(msg.Content))
		case provider.RoleAssistant:
			result = append(result, openaisdk.AssistantMessage(msg.Content))
		default:
			return nil, wardenerr.Errorf(wardenerr.CodeProviderRequestInvalid,
				"openai: unsupported message role %q", msg.Role)
		}
	}
	return result, nil
}

func upstreamError(err error) error {
	status := 0
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	return provider.UpstreamError(name, status, err)
}
