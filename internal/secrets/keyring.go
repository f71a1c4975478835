// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	"github.com/zalando/go-keyring"

	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// go-keyring cannot enumerate entries, so each service keeps a JSON list of
// its key names under this extra entry.
const indexKey = "::index"

// KeyringStore keeps secrets in the OS keyring (Keychain, secret-service or
// Windows Credential Manager).
type KeyringStore struct{}

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Set(service, key, value string) error {
	if err := checkRef("set", service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return wardenerr.Wrapf(err, wardenerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	return s.updateIndex(service, func(keys []string) []string {
		if slices.Contains(keys, key) {
			return keys
		}
		return append(keys, key)
	})
}

func (s *KeyringStore) Get(service, key string) (string, error) {
	if err := checkRef("get", service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return "", wardenerr.Errorf(wardenerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	case err != nil:
		return "", wardenerr.Wrapf(err, wardenerr.CodeSecretStoreFailure, "reading secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkRef("delete", service, key); err != nil {
		return err
	}
	err := keyring.Delete(service, key)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return wardenerr.Errorf(wardenerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	case err != nil:
		return wardenerr.Wrapf(err, wardenerr.CodeSecretDeleteFailure, "deleting secret %s/%s", service, key)
	}
	return s.updateIndex(service, func(keys []string) []string {
		return slices.DeleteFunc(keys, func(k string) bool { return k == key })
	})
}

func (s *KeyringStore) List(service string) ([]string, error) {
	raw, err := keyring.Get(service, indexKey)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, wardenerr.Wrapf(err, wardenerr.CodeSecretListFailure, "reading key index for %s", service)
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, wardenerr.Wrapf(err, wardenerr.CodeSecretListFailure, "decoding key index for %s", service)
	}
	return keys, nil
}

func (s *KeyringStore) updateIndex(service string, mutate func([]string) []string) error {
	keys, err := s.List(service)
	if err != nil {
		return err
	}
	keys = mutate(keys)

	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("removing empty key index", "service", service, "error", err)
		}
		return nil
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return wardenerr.Wrapf(err, wardenerr.CodeSecretListFailure, "encoding key index for %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return wardenerr.Wrapf(err, wardenerr.CodeSecretListFailure, "writing key index for %s", service)
	}
	return nil
}

func checkRef(op, service, key string) error {
	if service == "" || key == "" {
		return wardenerr.Errorf(wardenerr.CodeSecretInvalidInput, "secret %s: service and key are required", op)
	}
	return nil
}
