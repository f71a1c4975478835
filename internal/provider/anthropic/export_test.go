// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package anthropic

import (
	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/warden-dev/warden/internal/provider"
)

// BuildParams exposes buildParams for white-box testing.
var BuildParams = func(req provider.Request) (anthropicsdk.MessageNewParams, error) {
	return buildParams(req)
}
