// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package alert

import "context"

// Type names one alert dimension. It is also the cooldown key.
type Type string

const (
	TypeHighErrorRate Type = "high_error_rate"
	TypeHighLatency   Type = "high_latency"
	TypeHighCost      Type = "high_cost"
)

// Message is one alert rendered for every channel.
type Message struct {
	Type    Type
	Subject string
	// HTML is the email body.
	HTML string
	// Text is the chat body, Slack mrkdwn.
	Text string
}

// Notifier delivers alerts over one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg Message) error
}
