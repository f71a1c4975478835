// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

//go:embed warden.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/warden/warden.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", wardenerr.Errorf(wardenerr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "warden", "warden.yaml"), nil
}

// DefaultDataDir returns ~/.warden, used when data_dir is unset.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".warden"
	}
	return filepath.Join(home, ".warden")
}

// BootstrapConfig writes the commented default config when none exists yet.
// It returns the written path, or "" when nothing was written. Failures are
// logged at debug level and never fatal.
func BootstrapConfig() string {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("skipping config bootstrap", "error", err)
		return ""
	}
	return writeDefaultConfig(cfgPath)
}

func writeDefaultConfig(cfgPath string) string {
	if _, err := os.Stat(cfgPath); err == nil {
		return ""
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		slog.Debug("skipping config bootstrap", "path", cfgPath, "error", err)
		return ""
	}

	if err := os.WriteFile(cfgPath, DefaultConfigYAML, 0o600); err != nil {
		slog.Debug("skipping config bootstrap", "path", cfgPath, "error", err)
		return ""
	}

	slog.Info("created default config", "path", cfgPath)
	return cfgPath
}

// ResolvedDataDir returns data_dir with a leading ~ expanded, or
// DefaultDataDir when unset.
func (c *Config) ResolvedDataDir() string {
	if c.DataDir == "" {
		return DefaultDataDir()
	}
	return expandHome(c.DataDir)
}

// MetricsDir returns storage.dir, defaulting to <data dir>/metrics.
func (c *Config) MetricsDir() string {
	if c.Storage.Dir != "" {
		return expandHome(c.Storage.Dir)
	}
	return filepath.Join(c.ResolvedDataDir(), "metrics")
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
