// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package provider

import (
	"context"
	"io"
	"net/http"
	"strings"

	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

const (
	defaultOpenAIBase    = "https://api.openai.com/v1"
	defaultAnthropicBase = "https://api.anthropic.com"
	defaultGeminiBase    = "https://generativelanguage.googleapis.com"
)

// modelsEndpoint returns the listing URL and auth headers used to check a key
// without spending tokens.
func modelsEndpoint(name, key, baseURL string) (string, map[string]string, error) {
	base := strings.TrimRight(baseURL, "/")
	switch name {
	case "openai":
		if base == "" {
			base = defaultOpenAIBase
		}
		return base + "/models", map[string]string{"Authorization": "Bearer " + key}, nil
	case "anthropic":
		if base == "" {
			base = defaultAnthropicBase
		}
		return base + "/v1/models", map[string]string{
			"x-api-key":         key,
			"anthropic-version": "2023-06-01",
		}, nil
	case "gemini":
		if base == "" {
			base = defaultGeminiBase
		}
		return base + "/v1beta/models", map[string]string{"x-goog-api-key": key}, nil
	default:
		return "", nil, wardenerr.New(wardenerr.CodeProviderNotFound, "unknown provider: "+name,
			wardenerr.FieldProvider(name))
	}
}

// ValidateKey makes a lightweight call to the provider's models endpoint to
// confirm the API key is accepted. An empty baseURL selects the public API.
func ValidateKey(ctx context.Context, client *http.Client, name, key, baseURL string) error {
	url, headers, err := modelsEndpoint(name, key, baseURL)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return wardenerr.Errorf(wardenerr.CodeProviderRequestInvalid, "building validation request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return UpstreamError(name, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return wardenerr.New(StatusCode(resp.StatusCode),
			name+" key validation failed: "+resp.Status,
			wardenerr.FieldProvider(name), wardenerr.FieldStatus(resp.StatusCode))
	}
	return nil
}
