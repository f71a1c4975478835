// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"

	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migrate applies every embedded migration up to the latest version.
func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return wardenerr.Wrap(err, wardenerr.CodeStoreDatabaseFailure, "opening embedded migrations")
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys, goose.WithSlog(slog.Default()))
	if err != nil {
		return wardenerr.Wrap(err, wardenerr.CodeStoreDatabaseFailure, "init goose provider")
	}

	results, err := provider.UpTo(ctx, goose.MaxVersion)
	if err != nil {
		return wardenerr.Wrap(err, wardenerr.CodeStoreDatabaseFailure, "apply migrations")
	}
	if len(results) > 0 {
		slog.Info("metrics schema migrated", "applied", len(results))
	}
	return nil
}
