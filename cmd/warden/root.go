// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/warden-dev/warden/internal/config"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// NewRootCmd creates the root warden command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "warden",
		Short:         "Warden: resilient LLM calls with usage metrics and alerting",
		Long:          "Warden sends completion requests through rate limiting, circuit breaking and retries, records every outcome, and alerts when error rate, latency or cost cross their thresholds.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "path to config file")
	pf.String("data-dir", "", "path to data directory")
	pf.BoolP("verbose", "v", false, "enable verbose output")
	pf.String("log-format", "text", "log format on stderr: text or json")

	root.AddCommand(
		newInitCmd(),
		newServeCmd(),
		newAskCmd(),
		newCheckCmd(),
		newReportCmd(),
		newFeedbackCmd(),
		newDoctorCmd(),
		newSecretCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper loads defaults, WARDEN_* env, the config file and the global
// flags into the shared viper, in increasing precedence, then installs the
// default logger.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()
	config.SetDefaults(v)
	config.SetupEnv(v)

	cfgFile, _ := cmd.Flags().GetString("config")
	if err := readConfig(v, cfgFile); err != nil {
		return err
	}
	config.WarnInsecurePermissions(v.ConfigFileUsed())

	flags := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{"data_dir": "data-dir", "verbose": "verbose", "log_format": "log-format"} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return wardenerr.Errorf(wardenerr.CodeCLISetupFailure, "binding %s flag: %w", flag, err)
		}
	}

	handler, err := newLogHandler(cmd.ErrOrStderr(), v.GetString("log_format"), v.GetBool("verbose"))
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// readConfig reads path when given. Otherwise it searches for warden.yaml and
// falls back to a bootstrapped default; a missing file there is not an error.
func readConfig(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return wardenerr.Errorf(wardenerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
		return nil
	}

	// No SetConfigType, so a bare ./warden binary is never parsed as config.
	v.SetConfigName("warden")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/warden")
	v.AddConfigPath("/etc/warden")

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		return nil
	case !errors.As(err, &notFound):
		return wardenerr.Errorf(wardenerr.CodeConfigLoadReadFailure, "reading config: %w", err)
	}

	bootstrapped := config.BootstrapConfig()
	if bootstrapped == "" {
		return nil
	}
	v.SetConfigFile(bootstrapped)
	if err := v.ReadInConfig(); err != nil {
		return wardenerr.Errorf(wardenerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
	}
	return nil
}

func newLogHandler(w io.Writer, format string, verbose bool) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelWarn}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	switch format {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, wardenerr.Errorf(wardenerr.CodeCLIInputInvalid, "unknown log format %q (want text or json)", format)
	}
}
