// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package store

// StorageConfig controls which backend the store factory uses.
type StorageConfig struct {
	Backend string // "jsonl" (default) or "sqlite"
	Dir     string // directory holding the backend's files
}
