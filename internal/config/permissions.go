// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

//go:build !windows

package config

import (
	"log/slog"
	"os"
)

// WarnInsecurePermissions logs a warning when the config file at path is
// readable by group or others. Provider keys and SMTP passwords live there.
func WarnInsecurePermissions(path string) {
	if path == "" {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("skipping config permission check", "path", path, "error", err)
		return
	}

	if info.Mode().Perm()&0o044 != 0 {
		slog.Warn("config file has insecure permissions, credentials may be readable by other users",
			"path", path,
			"mode", info.Mode(),
			"recommended", "0600",
		)
	}
}
