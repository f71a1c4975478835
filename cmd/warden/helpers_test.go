// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/warden-dev/warden/internal/provider"
	"github.com/warden-dev/warden/internal/secrets"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

const testAPIKey = "sk-test-key-1234567890"

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1767225600,
  "model": "gpt-4o-mini",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "PONG"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
}`

// mockSecretStore is an in-memory secrets.Store for testing.
type mockSecretStore struct {
	mu   sync.Mutex
	data map[string]string // key → value (service is always "warden")
}

func newMockSecretStore(keys ...string) *mockSecretStore {
	m := &mockSecretStore{data: make(map[string]string)}
	for _, k := range keys {
		m.data[k] = "redacted"
	}
	return m
}

func (m *mockSecretStore) Set(_, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockSecretStore) Get(_, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", wardenerr.Errorf(wardenerr.CodeSecretNotFound, "not found")
	}
	return v, nil
}

func (m *mockSecretStore) Delete(_, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return wardenerr.Errorf(wardenerr.CodeSecretNotFound, "not found")
	}
	delete(m.data, key)
	return nil
}

func (m *mockSecretStore) List(_ string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// useSecretStore swaps the keyring for store until the test ends.
func useSecretStore(t *testing.T, store secrets.Store) {
	t.Helper()
	old := secretStoreFactory
	secretStoreFactory = func() secrets.Store { return store }
	t.Cleanup(func() { secretStoreFactory = old })
}

// isolate gives the test its own HOME, a fresh global viper and an empty
// keyring.
func isolate(t *testing.T) *mockSecretStore {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	viper.Reset()
	t.Cleanup(viper.Reset)
	store := newMockSecretStore()
	useSecretStore(t, store)
	return store
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

// fakeOpenAI serves chat completions and model listings. status, when
// non-zero, is returned instead of a completion.
type fakeOpenAI struct {
	srv    *httptest.Server
	calls  atomic.Int32
	status atomic.Int32
}

func newFakeOpenAI(t *testing.T) *fakeOpenAI {
	t.Helper()
	f := &fakeOpenAI{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/models"):
			if r.Header.Get("Authorization") != "Bearer "+testAPIKey {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			f.calls.Add(1)
			if s := int(f.status.Load()); s != 0 {
				w.WriteHeader(s)
				_, _ = fmt.Fprintf(w, `{"error":{"message":"upstream said no to %s"}}`, testAPIKey)
				return
			}
			_, _ = w.Write([]byte(completionBody))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

// httpStatusError is what an adapter returns for an upstream HTTP status.
func httpStatusError(status int) error {
	return provider.UpstreamError("openai", status, errors.New(http.StatusText(status)))
}

// writeTestConfig writes a config pointing at apiBase with all state under
// a temp data dir. extra is appended verbatim.
func writeTestConfig(t *testing.T, apiBase, extra string) (cfgPath, dataDir string) {
	t.Helper()
	dir := t.TempDir()
	dataDir = filepath.Join(dir, "data")
	cfg := fmt.Sprintf(`data_dir: %s
provider:
  name: openai
  api_base: %s
  base_model: gpt-4o-mini
  api_key: %s
  timeout: 5s
resilience:
  retry:
    max_attempts: 2
    base_delay: 1ms
    max_delay: 2ms
alerts:
  min_samples: 1
server:
  listen: 127.0.0.1:18787
%s`, dataDir, apiBase, testAPIKey, extra)
	cfgPath = filepath.Join(dir, "warden.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return cfgPath, dataDir
}
