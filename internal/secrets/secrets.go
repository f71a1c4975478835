// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package secrets

// DefaultService is the keyring service used by `warden secret` when none is given.
const DefaultService = "warden"

// Store saves and loads provider credentials outside the config file.
type Store interface {
	Set(service, key, value string) error

	// Get returns a CodeSecretNotFound error when the key does not exist.
	Get(service, key string) (string, error)

	// Delete returns a CodeSecretNotFound error when the key does not exist.
	Delete(service, key string) error

	List(service string) ([]string, error)
}
