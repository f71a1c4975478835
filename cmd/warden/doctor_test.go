// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useDoctorClient(t *testing.T, c *http.Client) {
	t.Helper()
	old := doctorHTTPClient
	doctorHTTPClient = c
	t.Cleanup(func() { doctorHTTPClient = old })
}

func TestDoctor_RunsAllChecks(t *testing.T) {
	isolate(t)
	fake := newFakeOpenAI(t)
	useDoctorClient(t, fake.srv.Client())
	cfgPath, _ := writeTestConfig(t, fake.srv.URL+"/v1", "")

	out, _, err := execute(t, "", "doctor", "--config", cfgPath, "--address", "127.0.0.1:1")
	require.NoError(t, err)

	for _, name := range []string{"Binary:", "Platform:", "Config:", "Provider:", "API Key:", "Server:", "Storage:", "Disk Space:", "Alerts:"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "openai/gpt-4o-mini via "+fake.srv.URL)
	assert.Contains(t, out, "accepted")
	assert.Contains(t, out, "not running at 127.0.0.1:1")
	assert.Contains(t, out, "no channel configured")
	assert.NotContains(t, out, "Ping:")
}

func TestDoctor_RejectedKey(t *testing.T) {
	isolate(t)
	fake := newFakeOpenAI(t)
	useDoctorClient(t, fake.srv.Client())
	cfgPath, _ := writeTestConfig(t, fake.srv.URL+"/v1", "")
	t.Setenv("WARDEN_PROVIDER_API_KEY", "sk-wrong-key-000000")

	out, _, err := execute(t, "", "doctor", "--config", cfgPath, "--address", "127.0.0.1:1")
	require.NoError(t, err)
	assert.Contains(t, out, "rejected: the provider refused the key")
	assert.NotContains(t, out, "sk-wrong-key-000000")
}

func TestDoctor_ProviderProblemsSkipKeyCheck(t *testing.T) {
	isolate(t)
	fake := newFakeOpenAI(t)
	useDoctorClient(t, fake.srv.Client())
	cfgPath, _ := writeTestConfig(t, fake.srv.URL+"/v1", "")
	t.Setenv("WARDEN_PROVIDER_API_KEY", " ")

	out, _, err := execute(t, "", "doctor", "--config", cfgPath, "--address", "127.0.0.1:1")
	require.NoError(t, err)
	assert.Contains(t, out, "Missing provider API key.")
	assert.Contains(t, out, "skipped")
}

func TestDoctor_Offline(t *testing.T) {
	isolate(t)
	fake := newFakeOpenAI(t)
	cfgPath, _ := writeTestConfig(t, fake.srv.URL+"/v1", "")

	out, _, err := execute(t, "", "doctor", "--config", cfgPath, "--offline", "--ping", "--address", "127.0.0.1:1")
	require.NoError(t, err)
	assert.NotContains(t, out, "API Key:")
	assert.NotContains(t, out, "Ping:")
}

func TestDoctor_Ping(t *testing.T) {
	isolate(t)
	fake := newFakeOpenAI(t)
	useDoctorClient(t, fake.srv.Client())
	cfgPath, _ := writeTestConfig(t, fake.srv.URL+"/v1", "")

	out, _, err := execute(t, "", "doctor", "--config", cfgPath, "--ping", "--address", "127.0.0.1:1")
	require.NoError(t, err)
	assert.Contains(t, out, "Ping:")
	assert.Contains(t, out, "PONG in")
	assert.EqualValues(t, 1, fake.calls.Load())
}

func TestDoctor_ServerRunning(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	old := defaultHTTPClient
	defaultHTTPClient = srv.Client()
	defer func() { defaultHTTPClient = old }()

	addr := strings.TrimPrefix(srv.URL, "http://")
	out, _, err := execute(t, "", "doctor", "--offline", "--address", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "ok at "+addr)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0 bytes"},
		{512, "512 bytes"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024 / 2, "1.5 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.in))
	}
}

func TestKeyCheckReason(t *testing.T) {
	assert.Equal(t, "the provider refused the key", keyCheckReason(httpStatusError(http.StatusForbidden)))
	assert.Equal(t, "rate limited, try again later", keyCheckReason(httpStatusError(http.StatusTooManyRequests)))
}
