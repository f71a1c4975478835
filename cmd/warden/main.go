// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Command warden sends LLM completions through a resilience pipeline, records
// their outcomes, and alerts on error rate, latency and cost.
package main

import (
	"fmt"
	"os"

	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for usage and input errors and 1 for everything else.
func exitCode(err error) int {
	if wardenerr.IsInvalidInput(err) || wardenerr.HasCode(err, wardenerr.CodeCLIInputInvalid) {
		return 2
	}
	return 1
}
