// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package store

import (
	"slices"
	"sync"

	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// DefaultBackend is used when StorageConfig.Backend is empty.
const DefaultBackend = "jsonl"

// BackendFactory opens a MetricsStore rooted at dir.
type BackendFactory func(dir string) (MetricsStore, error)

var (
	factories   = map[string]BackendFactory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers the factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f BackendFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func resolveBackend(cfg *StorageConfig) string {
	if cfg.Backend == "" {
		return DefaultBackend
	}
	return cfg.Backend
}

// Open creates the metrics store selected by cfg.
func Open(cfg *StorageConfig) (MetricsStore, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, wardenerr.Errorf(wardenerr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}
	if cfg.Dir == "" {
		return nil, wardenerr.New(wardenerr.CodeStoreInvalidInput, "storage directory is required")
	}

	return factory(cfg.Dir)
}
