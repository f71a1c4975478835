// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package openai

import (
	openaisdk "github.com/openai/openai-go"

	"github.com/warden-dev/warden/internal/provider"
)

// BuildParams exposes buildParams for white-box testing.
var BuildParams = func(req provider.Request) (openaisdk.ChatCompletionNewParams, error) {
	return buildParams(req)
}
