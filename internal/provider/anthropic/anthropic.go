// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package anthropic adapts the Anthropic Messages API to provider.Completer.
package anthropic

import (
	"context"
	"errors"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/warden-dev/warden/internal/provider"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

const name = "anthropic"

// DefaultMaxTokens is sent when the request leaves MaxTokens unset; the
// Messages API requires it.
const DefaultMaxTokens = 1024

// Provider implements provider.Completer using the Anthropic Messages API.
type Provider struct {
	client anthropicsdk.Client
}

var _ provider.Completer = (*Provider)(nil)

func New(cfg provider.Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, wardenerr.New(wardenerr.CodeProviderConfigInvalid, "anthropic: missing api_key in config",
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

	return &Provider{client: anthropicsdk.NewClient(opts...)}, nil
}

func (p *Provider) Name() string { return name }

func (p *Provider) Complete(ctx context.Context, req provider.Request) (*provider.Completion, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, err
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		status := 0
		var apiErr *anthropicsdk.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return nil, provider.UpstreamError(name, status, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &provider.Completion{
		Text:         text.String(),
		Model:        string(msg.Model),
		FinishReason: string(msg.StopReason),
		Usage: provider.NormalizeUsage(provider.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
		}),
	}, nil
}

// buildParams converts a provider.Request into Anthropic SDK MessageNewParams.
// System turns move to the top-level system field.
func buildParams(req provider.Request) (anthropicsdk.MessageNewParams, error) {
	system, turns := provider.SplitSystem(req.Messages)

	msgs := make([]anthropicsdk.MessageParam, 0, len(turns))
	for _, msg := range turns {
		switch msg.Role {
		case provider.RoleUser:
			msgs = append(msgs, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(msg.Content)))
		case provider.RoleAssistant:
			msgs = append(msgs, anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(msg.Content)))
		default:
			return anthropicsdk.MessageNewParams{}, wardenerr.Errorf(wardenerr.CodeProviderRequestInvalid,
				"anthropic: unsupported message role %q", msg.Role)
		}
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:       anthropicsdk.Model(req.Model),
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: anthropicsdk.Float(req.Temperature),
	}
	if system != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: system}}
	}
	return params, nil
}
