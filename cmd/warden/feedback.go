// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/warden-dev/warden/internal/store"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

func newFeedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback <request-id> <positive|negative>",
		Short: "Rate a response",
		Args:  cobra.ExactArgs(2),
		RunE:  runFeedback,
	}

	cmd.Flags().String("comment", "", "free-text comment")
	cmd.Flags().Int("index", 0, "index of the rated message within the conversation")

	return cmd
}

func runFeedback(cmd *cobra.Command, args []string) error {
	comment, _ := cmd.Flags().GetString("comment")
	index, _ := cmd.Flags().GetInt("index")

	fb := &store.Feedback{
		Timestamp:    time.Now().UTC(),
		RequestID:    args[0],
		MessageIndex: index,
		Rating:       store.Rating(args[1]),
		Comment:      comment,
	}
	if err := fb.Validate(); err != nil {
		return wardenerr.Wrap(err, wardenerr.CodeCLIInputInvalid, "invalid feedback")
	}

	app, err := Wire(cmd.Context(), viper.GetViper(), secretStoreFactory())
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	// The recorder only logs write failures, so go to the store directly.
	if err := app.Store.AppendFeedback(context.WithoutCancel(cmd.Context()), fb); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s feedback for %s\n", fb.Rating, fb.RequestID)
	return nil
}
