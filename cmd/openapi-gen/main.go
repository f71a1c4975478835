// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Command openapi-gen writes the OpenAPI document of the warden HTTP API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/warden-dev/warden/internal/alert"
	"github.com/warden-dev/warden/internal/invoker"
	"github.com/warden-dev/warden/internal/metrics"
	"github.com/warden-dev/warden/internal/server"
	"github.com/warden-dev/warden/internal/store"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

func main() {
	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}
	if err := run(outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

func run(outPath string) error {
	spec, err := generateSpec()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return wardenerr.Wrap(err, wardenerr.CodeCLISetupFailure, "creating output dir")
	}
	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		return wardenerr.Wrap(err, wardenerr.CodeCLISetupFailure, "writing spec")
	}
	return nil
}

// generateSpec registers every route against stub services and returns the
// document huma derives from the handler types.
func generateSpec() ([]byte, error) {
	svc, err := server.NewServices(stubChat{}, stubMetrics{}, stubAlerts{}, stubFeedback{})
	if err != nil {
		return nil, err
	}
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	if err != nil {
		return nil, wardenerr.Errorf(wardenerr.CodeCLISetupFailure, "creating server: %w", err)
	}
	srv.RegisterServices(svc)

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

// Handlers are never invoked during generation.

type stubChat struct{}

func (stubChat) Invoke(context.Context, invoker.Request) (*invoker.Response, error) { return nil, nil }

type stubMetrics struct{}

func (stubMetrics) Summary(context.Context, time.Duration) (*metrics.Summary, error) { return nil, nil }
func (stubMetrics) Report(context.Context, time.Duration) (*metrics.Report, error)   { return nil, nil }

type stubAlerts struct{}

func (stubAlerts) CheckAndAlert(context.Context) (*alert.Result, error) { return nil, nil }

type stubFeedback struct{}

func (stubFeedback) RecordFeedback(context.Context, *store.Feedback) {}
