// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package sqlite

import "github.com/jmoiron/sqlx"

// NewWithDB wraps an already-migrated handle (for testing).
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}
