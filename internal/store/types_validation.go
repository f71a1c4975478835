// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package store

import (
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// Valid reports whether the rating is one of the known values.
func (r Rating) Valid() bool {
	switch r {
	case RatingPositive, RatingNegative:
		return true
	default:
		return false
	}
}

// Validate checks that the Outcome has all required fields set correctly.
func (o Outcome) Validate() error {
	if o.RequestID == "" {
		return wardenerr.New(wardenerr.CodeStoreInvalidInput, "outcome: RequestID is required")
	}
	if o.Timestamp.IsZero() {
		return wardenerr.New(wardenerr.CodeStoreInvalidInput, "outcome: Timestamp is required")
	}
	if o.PromptTokens < 0 || o.CompletionTokens < 0 || o.TotalTokens < 0 {
		return wardenerr.Errorf(wardenerr.CodeStoreInvalidInput,
			"outcome: token counts must be non-negative, got %d/%d/%d", o.PromptTokens, o.CompletionTokens, o.TotalTokens)
	}
	if o.CostUSD < 0 {
		return wardenerr.Errorf(wardenerr.CodeStoreInvalidInput, "outcome: CostUSD must be non-negative, got %g", o.CostUSD)
	}
	if o.DurationSeconds < 0 {
		return wardenerr.Errorf(wardenerr.CodeStoreInvalidInput, "outcome: DurationSeconds must be non-negative, got %g", o.DurationSeconds)
	}
	if o.Success && o.ErrorType != "" {
		return wardenerr.New(wardenerr.CodeStoreInvalidInput, "outcome: successful outcome cannot carry an ErrorType")
	}
	return nil
}

// Validate checks that the Feedback has all required fields set correctly.
func (f Feedback) Validate() error {
	if f.Timestamp.IsZero() {
		return wardenerr.New(wardenerr.CodeStoreInvalidInput, "feedback: Timestamp is required")
	}
	if !f.Rating.Valid() {
		return wardenerr.Errorf(wardenerr.CodeStoreInvalidInput, "feedback: invalid rating %q", f.Rating)
	}
	if f.MessageIndex < 0 {
		return wardenerr.Errorf(wardenerr.CodeStoreInvalidInput, "feedback: MessageIndex must be non-negative, got %d", f.MessageIndex)
	}
	return nil
}
