// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package resilience

import (
	"context"
	"errors"
	"strings"

	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// ErrorKind is the closed set of failure categories understood by the
// pipeline and persisted as an outcome's error_type.
type ErrorKind string

const (
	KindConfiguration      ErrorKind = "ConfigurationError"
	KindCircuitOpen        ErrorKind = "CircuitOpen"
	KindRateLimitExceeded  ErrorKind = "RateLimitExceeded"
	KindTimeout            ErrorKind = "Timeout"
	KindAuthentication     ErrorKind = "AuthenticationFailure"
	KindBadRequest         ErrorKind = "BadRequest"
	KindServiceUnavailable ErrorKind = "ServiceUnavailable"
	KindUnknown            ErrorKind = "UnknownError"
)

// Kinds lists every ErrorKind in a stable order.
var Kinds = []ErrorKind{
	KindConfiguration,
	KindCircuitOpen,
	KindRateLimitExceeded,
	KindTimeout,
	KindAuthentication,
	KindBadRequest,
	KindServiceUnavailable,
	KindUnknown,
}

// Retryable reports whether another attempt may succeed.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindCircuitOpen, KindAuthentication, KindBadRequest, KindConfiguration:
		return false
	default:
		return true
	}
}

// Classify maps err onto an ErrorKind using its wardenerr code, falling back
// to context errors. Provider adapters are responsible for coding SDK errors.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}

	switch code := wardenerr.CodeOf(err); code {
	case wardenerr.CodeResilienceCircuitOpen:
		return KindCircuitOpen
	case wardenerr.CodeResilienceWaitTimeout,
		wardenerr.CodeResilienceRetryTimeout,
		wardenerr.CodeProviderUpstreamTimeout:
		return KindTimeout
	case wardenerr.CodeProviderRateLimited:
		return KindRateLimitExceeded
	case wardenerr.CodeProviderAuthUnauthorized:
		return KindAuthentication
	case wardenerr.CodeProviderRequestInvalid:
		return KindBadRequest
	case wardenerr.CodeProviderUpstreamUnavailable:
		return KindServiceUnavailable
	case wardenerr.CodeProviderConfigInvalid:
		return KindConfiguration
	default:
		if strings.HasPrefix(string(code), "config.") {
			return KindConfiguration
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindUnknown
}
