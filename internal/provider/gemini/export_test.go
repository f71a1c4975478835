// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package gemini

import (
	"google.golang.org/genai"

	"github.com/warden-dev/warden/internal/provider"
)

// BuildRequest exposes buildRequest for white-box testing.
var BuildRequest = func(req provider.Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	return buildRequest(req)
}
