// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/warden-dev/warden/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the warden HTTP API",
		Long:  "Load configuration, wire all subsystems, run periodic alert checks, and serve the HTTP API until interrupted.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	cmd.Flags().Bool("no-alerts", false, "do not run periodic alert checks")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		v.Set("server.listen", listen)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := Wire(ctx, v, secretStoreFactory())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			slog.Warn("closing subsystems", "error", cerr)
		}
	}()

	srv, err := newAPIServer(app)
	if err != nil {
		return err
	}

	cfg := app.Source.Config()
	if noAlerts, _ := cmd.Flags().GetBool("no-alerts"); !noAlerts {
		go app.Engine.Run(ctx, cfg.Alerts.Interval)
	}

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Starting warden on %s (provider %s)\n",
		cfg.Server.Listen, cfg.Provider.Resolve().Model); err != nil {
		return err
	}
	return srv.Start(ctx)
}

// newAPIServer builds the HTTP server from the app's configuration and
// registers every route.
func newAPIServer(app *App) (*server.Server, error) {
	cfg := app.Source.Config()
	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
			Burst:             cfg.Server.RateLimit.Burst,
		},
		Version: version,
	})
	if err != nil {
		return nil, err
	}

	svc, err := server.NewServices(app.Invoker, app.Analyzer, app.Engine, app.Recorder, app.Breaker)
	if err != nil {
		_ = srv.Close()
		return nil, err
	}
	srv.RegisterServices(svc)
	return srv, nil
}
