// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package secrets

import (
	"errors"
	"strings"

	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

const scheme = "keyring://"

// IsURI reports whether value is a keyring://service/key reference.
func IsURI(value string) bool {
	return strings.HasPrefix(value, scheme)
}

// URI builds the reference that `warden secret set` prints for a stored key.
func URI(service, key string) string {
	return scheme + service + "/" + key
}

func ParseURI(uri string) (service, key string, err error) {
	if !IsURI(uri) {
		return "", "", wardenerr.Errorf(wardenerr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}
	service, key, ok := strings.Cut(strings.TrimPrefix(uri, scheme), "/")
	if !ok || service == "" || key == "" {
		return "", "", wardenerr.Errorf(wardenerr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}
	return service, key, nil
}

// Resolve returns value unchanged unless it is a keyring URI, in which case
// the referenced secret is loaded from store.
func Resolve(store Store, value string) (string, error) {
	if !IsURI(value) {
		return value, nil
	}
	service, key, err := ParseURI(value)
	if err != nil {
		return "", err
	}
	secret, err := store.Get(service, key)
	if err != nil {
		return "", wardenerr.Wrapf(err, wardenerr.CodeSecretResolveFailure, "resolving keyring URI %q", value)
	}
	return secret, nil
}

// ResolveAll resolves each referenced field in place. Fields that fail keep
// their URI and are reported together in the returned error.
func ResolveAll(store Store, fields map[string]*string) error {
	var errs []error
	for name, field := range fields {
		if field == nil || !IsURI(*field) {
			continue
		}
		resolved, err := Resolve(store, *field)
		if err != nil {
			errs = append(errs, wardenerr.Wrapf(err, wardenerr.CodeSecretResolveFailure, "config key %s", name))
			continue
		}
		*field = resolved
	}
	return errors.Join(errs...)
}
