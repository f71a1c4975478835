// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package provider_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-dev/warden/internal/provider"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

func TestValidateKey_SendsProviderHeaders(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		header string
		value  string
	}{
		{"openai", "/models", "Authorization", "Bearer test-key"},
		{"anthropic", "/v1/models", "x-api-key", "test-key"},
		{"gemini", "/v1beta/models", "x-goog-api-key", "test-key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.path, r.URL.Path)
				assert.Equal(t, tt.value, r.Header.Get(tt.header))
				_, _ = w.Write([]byte(`{"data":[]}`))
			}))
			defer srv.Close()

			require.NoError(t, provider.ValidateKey(context.Background(), srv.Client(), tt.name, "test-key", srv.URL))
		})
	}
}

func TestValidateKey_StatusCodes(t *testing.T) {
	tests := []struct {
		status int
		want   wardenerr.Code
	}{
		{http.StatusUnauthorized, wardenerr.CodeProviderAuthUnauthorized},
		{http.StatusForbidden, wardenerr.CodeProviderAuthUnauthorized},
		{http.StatusTooManyRequests, wardenerr.CodeProviderRateLimited},
		{http.StatusInternalServerError, wardenerr.CodeProviderUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := provider.ValidateKey(context.Background(), srv.Client(), "openai", "bad-key", srv.URL)
			require.Error(t, err)
			assert.Equal(t, tt.want, wardenerr.CodeOf(err))
			assert.Equal(t, tt.status, wardenerr.FieldsOf(err)["status"])
		})
	}
}

func TestValidateKey_UnknownProvider(t *testing.T) {
	err := provider.ValidateKey(context.Background(), http.DefaultClient, "mystery", "key", "")
	require.Error(t, err)
	assert.True(t, wardenerr.HasCode(err, wardenerr.CodeProviderNotFound))
}
