// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package provider

import (
	"context"
	"errors"
	"net"
	"net/http"

	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// StatusCode maps an upstream HTTP status onto a provider error code.
func StatusCode(status int) wardenerr.Code {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return wardenerr.CodeProviderAuthUnauthorized
	case status == http.StatusTooManyRequests:
		return wardenerr.CodeProviderRateLimited
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return wardenerr.CodeProviderUpstreamTimeout
	case status == http.StatusBadRequest,
		status == http.StatusNotFound,
		status == http.StatusRequestEntityTooLarge,
		status == http.StatusUnprocessableEntity:
		return wardenerr.CodeProviderRequestInvalid
	case status >= 500:
		return wardenerr.CodeProviderUpstreamUnavailable
	default:
		return wardenerr.CodeProviderUpstreamFailure
	}
}

// UpstreamError codes an SDK error. status is the HTTP status the SDK
// reported, or 0 when the request never got a response.
func UpstreamError(name string, status int, err error) error {
	if err == nil {
		return nil
	}

	var code wardenerr.Code
	switch {
	case status != 0:
		code = StatusCode(status)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), isNetTimeout(err):
		code = wardenerr.CodeProviderUpstreamTimeout
	default:
		// Connection refused, DNS failure, reset by peer.
		code = wardenerr.CodeProviderUpstreamUnavailable
	}

	fields := []wardenerr.Attr{wardenerr.FieldProvider(name)}
	if status != 0 {
		fields = append(fields, wardenerr.FieldStatus(status))
	}
	return wardenerr.Wrap(err, code, name+" completion failed", fields...)
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
