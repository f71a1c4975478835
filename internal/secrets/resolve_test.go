// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-dev/warden/internal/secrets"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		wantService string
		wantKey     string
		wantErr     bool
	}{
		{"valid", "keyring://warden/api-key", "warden", "api-key", false},
		{"slashes in key", "keyring://warden/provider/openai", "warden", "provider/openai", false},
		{"other scheme", "vault://secret/key", "", "", true},
		{"missing key", "keyring://warden/", "", "", true},
		{"missing service", "keyring:///key", "", "", true},
		{"no path", "keyring://warden", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, key, err := secrets.ParseURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, wardenerr.HasCode(err, wardenerr.CodeSecretInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantService, svc)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestURIRoundTrip(t *testing.T) {
	svc, key, err := secrets.ParseURI(secrets.URI(secrets.DefaultService, "smtp-password"))
	require.NoError(t, err)
	assert.Equal(t, secrets.DefaultService, svc)
	assert.Equal(t, "smtp-password", key)
}

func TestResolve(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Set("warden-resolve", "api-key", "sk-resolved"))

	val, err := secrets.Resolve(ks, "keyring://warden-resolve/api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-resolved", val)

	val, err = secrets.Resolve(ks, "sk-literal")
	require.NoError(t, err)
	assert.Equal(t, "sk-literal", val)

	_, err = secrets.Resolve(ks, "keyring://warden-resolve/missing")
	require.Error(t, err)
	assert.True(t, wardenerr.HasCode(err, wardenerr.CodeSecretNotFound))
}

func TestResolveAll(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Set("warden-all", "provider", "sk-provider"))
	require.NoError(t, ks.Set("warden-all", "smtp", "hunter2"))

	apiKey := "keyring://warden-all/provider"
	password := "keyring://warden-all/smtp"
	listen := "127.0.0.1:8787"

	require.NoError(t, secrets.ResolveAll(ks, map[string]*string{
		"provider.api_key":      &apiKey,
		"notify.email.password": &password,
		"server.listen":         &listen,
		"unset":                 nil,
	}))

	assert.Equal(t, "sk-provider", apiKey)
	assert.Equal(t, "hunter2", password)
	assert.Equal(t, "127.0.0.1:8787", listen)
}

func TestResolveAll_MissingSecretKeepsURI(t *testing.T) {
	apiKey := "keyring://warden-all/nonexistent"

	err := secrets.ResolveAll(secrets.NewKeyringStore(), map[string]*string{"provider.api_key": &apiKey})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider.api_key")
	assert.Contains(t, err.Error(), "keyring://warden-all/nonexistent")
	assert.Equal(t, "keyring://warden-all/nonexistent", apiKey)
}
