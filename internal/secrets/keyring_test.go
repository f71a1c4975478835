// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/warden-dev/warden/internal/secrets"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

func init() {
	keyring.MockInit()
}

var _ secrets.Store = (*secrets.KeyringStore)(nil)

func TestKeyringStore_SetAndGet(t *testing.T) {
	ks := secrets.NewKeyringStore()

	require.NoError(t, ks.Set("test-set-get", "openai-api-key", "sk-secret-123"))

	val, err := ks.Get("test-set-get", "openai-api-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-secret-123", val)
}

func TestKeyringStore_GetNotFound(t *testing.T) {
	_, err := secrets.NewKeyringStore().Get("no-such-service", "no-key")
	require.Error(t, err)
	assert.True(t, wardenerr.HasCode(err, wardenerr.CodeSecretNotFound), "got: %v", err)
}

func TestKeyringStore_DeleteRemovesFromIndex(t *testing.T) {
	ks := secrets.NewKeyringStore()
	svc := "test-delete"

	require.NoError(t, ks.Set(svc, "key-x", "val"))
	require.NoError(t, ks.Set(svc, "key-y", "val"))
	require.NoError(t, ks.Delete(svc, "key-x"))

	_, err := ks.Get(svc, "key-x")
	assert.True(t, wardenerr.HasCode(err, wardenerr.CodeSecretNotFound))

	keys, err := ks.List(svc)
	require.NoError(t, err)
	assert.Equal(t, []string{"key-y"}, keys)

	require.NoError(t, ks.Delete(svc, "key-y"))
	keys, err = ks.List(svc)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestKeyringStore_DeleteNotFound(t *testing.T) {
	err := secrets.NewKeyringStore().Delete("no-such-service", "no-key")
	require.Error(t, err)
	assert.True(t, wardenerr.HasCode(err, wardenerr.CodeSecretNotFound))
}

func TestKeyringStore_OverwriteDoesNotDuplicateIndex(t *testing.T) {
	ks := secrets.NewKeyringStore()
	svc := "test-overwrite"

	require.NoError(t, ks.Set(svc, "key", "old"))
	require.NoError(t, ks.Set(svc, "key", "new"))

	val, err := ks.Get(svc, "key")
	require.NoError(t, err)
	assert.Equal(t, "new", val)

	keys, err := ks.List(svc)
	require.NoError(t, err)
	assert.Equal(t, []string{"key"}, keys)
}

func TestKeyringStore_RejectsEmptyRefs(t *testing.T) {
	ks := secrets.NewKeyringStore()

	tests := []struct {
		name    string
		service string
		key     string
	}{
		{"empty service", "", "key"},
		{"empty key", "svc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ks.Set(tt.service, tt.key, "v")
			require.Error(t, err)
			assert.True(t, wardenerr.HasCode(err, wardenerr.CodeSecretInvalidInput))

			_, err = ks.Get(tt.service, tt.key)
			assert.True(t, wardenerr.HasCode(err, wardenerr.CodeSecretInvalidInput))
		})
	}
}
