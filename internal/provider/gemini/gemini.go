// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package gemini adapts the Gemini API (google.golang.org/genai) to
// provider.Completer.
package gemini

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/warden-dev/warden/internal/provider"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

const name = "gemini"

// Provider implements provider.Completer using the Gemini API backend.
type Provider struct {
	client *genai.Client
}

var _ provider.Completer = (*Provider)(nil)

func New(cfg provider.Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, wardenerr.New(wardenerr.CodeProviderConfigInvalid, "gemini: missing api_key in config",
			wardenerr.FieldProvider(name))
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, wardenerr.Wrapf(err, wardenerr.CodeProviderConfigInvalid, "gemini: creating client")
	}
	return &Provider{client: client}, nil
}

func (p *Provider) Name() string { return name }

func (p *Provider) Complete(ctx context.Context, req provider.Request) (*provider.Completion, error) {
	contents, config, err := buildRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, provider.UpstreamError(name, statusOf(err), err)
	}
	if len(resp.Candidates) == 0 {
		return nil, wardenerr.New(wardenerr.CodeProviderResponseInvalid, "gemini: response has no candidates",
			wardenerr.FieldProvider(name), wardenerr.FieldModel(req.Model))
	}

	out := &provider.Completion{
		Text:         resp.Text(),
		Model:        resp.ModelVersion,
		FinishReason: string(resp.Candidates[0].FinishReason),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = provider.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	out.Usage = provider.NormalizeUsage(out.Usage)
	return out, nil
}

// buildRequest converts a provider.Request into genai contents and config.
// System turns become the SystemInstruction; assistant turns use role "model".
func buildRequest(req provider.Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	system, turns := provider.SplitSystem(req.Messages)

	contents := make([]*genai.Content, 0, len(turns))
	for _, msg := range turns {
		var role genai.Role
		switch msg.Role {
		case provider.RoleUser:
			role = genai.RoleUser
		case provider.RoleAssistant:
			role = genai.RoleModel
		default:
			return nil, nil, wardenerr.Errorf(wardenerr.CodeProviderRequestInvalid,
				"gemini: unsupported message role %q", msg.Role)
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return contents, config, nil
}

// statusOf extracts the HTTP status from a genai API error.
func statusOf(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code
	}
	return 0
}
