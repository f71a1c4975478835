// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package invoker

import (
	"strings"

	"github.com/warden-dev/warden/internal/resilience"
)

var userMessages = map[resilience.ErrorKind]string{
	resilience.KindConfiguration:      "The assistant is not configured correctly. Please contact the administrator.",
	resilience.KindCircuitOpen:        "The service is temporarily unavailable. Please try again in a minute.",
	resilience.KindRateLimitExceeded:  "Too many requests. Please wait a moment and try again.",
	resilience.KindTimeout:            "The request timed out. Please try again.",
	resilience.KindAuthentication:     "Authentication with the model provider failed. Please check the API key configuration.",
	resilience.KindBadRequest:         "The request could not be processed. Try rephrasing or shortening your message.",
	resilience.KindServiceUnavailable: "The service is temporarily unavailable. Please try again later.",
	resilience.KindUnknown:            "An unexpected error occurred. Please try again.",
}

// UserMessage returns the fixed user-safe text for kind. It never contains
// upstream error details.
func UserMessage(kind resilience.ErrorKind) string {
	if msg, ok := userMessages[kind]; ok {
		return msg
	}
	return userMessages[resilience.KindUnknown]
}

// Failure is returned by Invoke for every unsuccessful request. Message is
// safe to show to end users; Err holds the underlying cause for callers that
// need it and must not be displayed.
type Failure struct {
	Kind      resilience.ErrorKind
	Message   string
	RequestID string

	// Problems and Remediation are set for configuration failures.
	Problems    []string
	Remediation []string

	Err error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// Detail renders the configuration problems and their fixes for operators.
// Other kinds return Message.
func (f *Failure) Detail() string {
	if len(f.Problems) == 0 {
		return f.Message
	}
	var b strings.Builder
	b.WriteString("Configuration error:\n")
	for _, p := range f.Problems {
		b.WriteString(" • " + p + "\n")
	}
	if len(f.Remediation) > 0 {
		b.WriteString("\nFix:\n")
		for _, r := range f.Remediation {
			b.WriteString("- " + r + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
