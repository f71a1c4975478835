// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package provider

import (
	"context"
	"net/http"
)

// Completer sends one non-streaming completion request to a remote model.
// Implementations return errors coded with wardenerr provider codes so the
// resilience layer can classify them without knowing the SDK.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// Config is what every adapter needs to build a client.
type Config struct {
	APIKey  string
	BaseURL string // optional, e.g. an OpenAI-compatible proxy or a test server

	// HTTPClient overrides the SDK default transport.
	HTTPClient *http.Client
}

// Request is one completion request.
type Request struct {
	Model       string // without provider prefix
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Message is a chat turn.
type Message struct {
	Role    Role
	Content string
}

// Role defines the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Usage reports token consumption for one completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the model's answer.
type Completion struct {
	Text         string
	Model        string
	FinishReason string
	Usage        Usage
}

// SplitSystem separates system turns from the conversation. Adapters whose
// APIs take the system prompt out of band use it.
func SplitSystem(msgs []Message) (system string, rest []Message) {
	for _, m := range msgs {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

// NormalizeUsage fills TotalTokens when the API omits it.
func NormalizeUsage(u Usage) Usage {
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}
