// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/warden-dev/warden/internal/invoker"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Send one prompt through the resilience pipeline",
		Long:  "Send a single prompt to the configured provider and print the reply. The prompt is read from stdin when no argument is given. Every call records one outcome.",
		RunE:  runAsk,
	}

	cmd.Flags().Float64("temperature", -1, "sampling temperature override (0-2)")
	cmd.Flags().Duration("timeout", 0, "overall request timeout (default: provider.timeout)")
	cmd.Flags().Bool("json", false, "print the response as JSON")

	return cmd
}

type askOutput struct {
	RequestID        string  `json:"request_id"`
	Model            string  `json:"model"`
	Text             string  `json:"text"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
	DurationSeconds  float64 `json:"duration_seconds"`
	Attempts         int     `json:"attempts"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")
	if prompt == "" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return wardenerr.Errorf(wardenerr.CodeCLIInputInvalid, "reading prompt from stdin: %w", err)
		}
		prompt = strings.TrimSpace(string(raw))
	}

	req := invoker.Request{Prompt: prompt}
	if t, _ := cmd.Flags().GetFloat64("temperature"); t >= 0 {
		if t > 2 {
			return wardenerr.Errorf(wardenerr.CodeCLIInputInvalid, "temperature must be between 0 and 2 (got %g)", t)
		}
		req.Temperature = &t
	}
	req.Timeout, _ = cmd.Flags().GetDuration("timeout")

	app, err := Wire(cmd.Context(), viper.GetViper(), secretStoreFactory())
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	resp, err := app.Invoker.Invoke(cmd.Context(), req)
	if err != nil {
		var f *invoker.Failure
		if errors.As(err, &f) {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(f.Detail()))
			return wardenerr.New(wardenerr.CodeCLIRequestFailure, string(f.Kind)+" (request "+f.RequestID+")",
				wardenerr.FieldRequestID(f.RequestID))
		}
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(askOutput{
			RequestID:        resp.RequestID,
			Model:            resp.Model,
			Text:             resp.Text,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
			CostUSD:          resp.CostUSD,
			DurationSeconds:  resp.Duration.Seconds(),
			Attempts:         resp.Attempts,
		})
	}

	_, _ = fmt.Fprintln(out, resp.Text)
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render(fmt.Sprintf(
		"%s · %d tokens · $%.6f · %.2fs · request %s",
		resp.Model, resp.Usage.TotalTokens, resp.CostUSD, resp.Duration.Seconds(), resp.RequestID)))
	return nil
}
