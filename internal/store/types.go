// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package store

import (
	"encoding/json"
	"strings"
	"time"

	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// Outcome is the immutable record of one top-level completion request,
// written once after all retries resolved.
type Outcome struct {
	RequestID        string    `json:"request_id"`
	Timestamp        time.Time `json:"timestamp"`
	Model            string    `json:"model"`
	Temperature      float64   `json:"temperature"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	CostUSD          float64   `json:"cost_usd"`
	DurationSeconds  float64   `json:"duration_seconds"`
	Success          bool      `json:"success"`
	Attempts         int       `json:"attempts,omitempty"`
	UserID           string    `json:"user_id,omitempty"`
	SessionID        string    `json:"session_id,omitempty"`
	ErrorType        string    `json:"error_type,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
}

// UnmarshalJSON accepts timestamps with or without a zone; zone-less values
// are read as UTC. A record without a success field counts as successful.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	type plain Outcome
	aux := struct {
		*plain
		Timestamp string `json:"timestamp"`
		Success   *bool  `json:"success"`
	}{plain: (*plain)(o)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts, err := ParseTimestamp(aux.Timestamp)
	if err != nil {
		return err
	}
	o.Timestamp = ts
	o.Success = aux.Success == nil || *aux.Success
	return nil
}

// Rating is a user's verdict on one assistant message.
type Rating string

const (
	RatingPositive Rating = "positive"
	RatingNegative Rating = "negative"
)

// Feedback is a user rating of one assistant message.
type Feedback struct {
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id"`
	MessageIndex int       `json:"message_index"`
	Rating       Rating    `json:"rating"`
	Comment      string    `json:"comment"`
}

func (f *Feedback) UnmarshalJSON(data []byte) error {
	type plain Feedback
	aux := struct {
		*plain
		Timestamp string `json:"timestamp"`
	}{plain: (*plain)(f)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts, err := ParseTimestamp(aux.Timestamp)
	if err != nil {
		return err
	}
	f.Timestamp = ts
	return nil
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an RFC 3339 timestamp, falling back to ISO 8601
// without a zone (treated as UTC). The result is always in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, wardenerr.Errorf(wardenerr.CodeStoreRecordDecodeFailure, "unparseable timestamp %q", s)
}
