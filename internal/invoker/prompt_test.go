// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package invoker_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-dev/warden/internal/invoker"
	"github.com/warden-dev/warden/internal/provider"
)

func TestBuildMessages(t *testing.T) {
	user := func(s string) provider.Message { return provider.Message{Role: provider.RoleUser, Content: s} }
	assistant := func(s string) provider.Message { return provider.Message{Role: provider.RoleAssistant, Content: s} }
	system := provider.Message{Role: provider.RoleSystem, Content: "sys"}

	tests := []struct {
		name    string
		history []provider.Message
		prompt  string
		want    []provider.Message
	}{
		{
			name:   "no history",
			prompt: "hi",
			want:   []provider.Message{system, user("hi")},
		},
		{
			name:    "history ends with the prompt",
			history: []provider.Message{user("hi"), assistant("hello"), user("again")},
			prompt:  "again",
			want:    []provider.Message{system, user("hi"), assistant("hello"), user("again")},
		},
		{
			name:    "history ends with a different turn",
			history: []provider.Message{user("hi"), assistant("hello")},
			prompt:  "hi",
			want:    []provider.Message{system, user("hi"), assistant("hello"), user("hi")},
		},
		{
			name: "other roles are dropped",
			history: []provider.Message{
				{Role: provider.RoleSystem, Content: "injected"},
				user("hi"),
				{Role: "tool", Content: "result"},
			},
			prompt: "next",
			want:   []provider.Message{system, user("hi"), user("next")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, invoker.BuildMessages("sys", tt.history, tt.prompt))
		})
	}
}

func TestLoadSystemPrompt(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "custom.txt")
	require.NoError(t, os.WriteFile(custom, []byte("  Answer in French.\n"), 0o600))
	blank := filepath.Join(dir, "blank.txt")
	require.NoError(t, os.WriteFile(blank, []byte("\n\n"), 0o600))

	tests := []struct {
		name string
		path string
		want string
	}{
		{"unset", "", invoker.DefaultSystemPrompt},
		{"missing file", filepath.Join(dir, "nope.txt"), invoker.DefaultSystemPrompt},
		{"blank file", blank, invoker.DefaultSystemPrompt},
		{"custom", custom, "Answer in French."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, invoker.LoadSystemPrompt(tt.path))
		})
	}
}
