// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package invoker

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/warden-dev/warden/internal/provider"
)

// DefaultSystemPrompt is used when no prompt file is configured or readable.
const DefaultSystemPrompt = "You are a helpful, concise, and professional AI assistant. " +
	"Be factual, avoid chain-of-thought, and ask clarifying questions when needed."

// LoadSystemPrompt reads the system prompt from path. An empty path, a
// missing file or a blank file yields DefaultSystemPrompt.
func LoadSystemPrompt(path string) string {
	if path == "" {
		return DefaultSystemPrompt
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("reading system prompt failed, using default", "path", path, "error", err)
		}
		return DefaultSystemPrompt
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return DefaultSystemPrompt
	}
	return prompt
}

// BuildMessages assembles the request transcript: the system prompt, the
// user and assistant turns of history, then prompt. The prompt is not
// repeated when history already ends with it.
func BuildMessages(system string, history []provider.Message, prompt string) []provider.Message {
	msgs := make([]provider.Message, 0, len(history)+2)
	msgs = append(msgs, provider.Message{Role: provider.RoleSystem, Content: system})

	for _, m := range history {
		if m.Role == provider.RoleUser || m.Role == provider.RoleAssistant {
			msgs = append(msgs, m)
		}
	}

	if n := len(history); n == 0 || history[n-1].Role != provider.RoleUser || history[n-1].Content != prompt {
		msgs = append(msgs, provider.Message{Role: provider.RoleUser, Content: prompt})
	}
	return msgs
}
