// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/warden-dev/warden/internal/secrets"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// Providers lists the adapters Warden can talk to.
var Providers = []string{"openai", "gemini", "anthropic"}

// ResolvedProvider is the provider section after model composition.
type ResolvedProvider struct {
	Name        string
	APIKey      string
	APIBase     string
	Model       string // provider-prefixed, e.g. "openai/gemini-3-flash"
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	KeyPrefix   string
}

// BaseModel returns the model id without its provider prefix.
func (p ResolvedProvider) BaseModel() string {
	if _, model, ok := strings.Cut(p.Model, "/"); ok {
		return model
	}
	return p.Model
}

// Resolve composes the effective model and copies the provider settings.
func (c ProviderConfig) Resolve() ResolvedProvider {
	name := strings.ToLower(strings.TrimSpace(c.Name))
	model := strings.TrimSpace(c.Model)
	if model == "" {
		model = name + "/" + strings.TrimSpace(c.BaseModel)
	}
	return ResolvedProvider{
		Name:        name,
		APIKey:      strings.TrimSpace(c.APIKey),
		APIBase:     strings.TrimSpace(c.APIBase),
		Model:       model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
		KeyPrefix:   c.KeyPrefix,
	}
}

// Problems lists every reason the resolved provider cannot be called.
// An empty result means a request may be sent.
func (p ResolvedProvider) Problems() []string {
	var problems []string

	known := false
	for _, name := range Providers {
		if p.Name == name {
			known = true
		}
	}
	if !known {
		problems = append(problems, fmt.Sprintf("Unknown provider %q (expected one of %s).", p.Name, strings.Join(Providers, ", ")))
	}

	switch {
	case p.APIKey == "", secrets.IsURI(p.APIKey):
		problems = append(problems, "Missing provider API key.")
	case p.KeyPrefix != "" && !strings.HasPrefix(p.APIKey, p.KeyPrefix):
		problems = append(problems, fmt.Sprintf("Invalid provider API key (should start with %q).", p.KeyPrefix))
	}

	if p.APIBase != "" && !strings.HasPrefix(p.APIBase, "http") {
		problems = append(problems, "Invalid provider base URL. Set provider.api_base to a full https URL.")
	}

	if !strings.Contains(p.Model, "/") || p.BaseModel() == "" {
		problems = append(problems, fmt.Sprintf("Model must include provider, e.g. '%s/gemini-3-flash'.", p.Name))
	} else if known && !strings.HasPrefix(p.Model, p.Name+"/") {
		problems = append(problems, fmt.Sprintf("provider.name=%s but model %q does not start with '%s/'.", p.Name, p.Model, p.Name))
	}

	return problems
}

// Remediation returns the operator-facing fix list shown with configuration
// errors.
func (p ResolvedProvider) Remediation() []string {
	return []string{
		"Set WARDEN_PROVIDER_API_KEY (or provider.api_key, keyring:// URIs are accepted).",
		"Set WARDEN_PROVIDER_API_BASE to the full https URL of the endpoint.",
		fmt.Sprintf("Ensure the model includes its provider; the resolved model is %q.", p.Model),
	}
}

// Loader produces a fresh Config. ViperLoader is the production loader.
type Loader func() (*Config, error)

// Source hands out the current configuration and re-resolves it on Reload.
type Source struct {
	mu   sync.RWMutex
	load Loader
	cfg  *Config
}

func NewSource(load Loader) (*Source, error) {
	s := &Source{load: load}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the held configuration. On failure the previous
// configuration stays in place.
func (s *Source) Reload() error {
	cfg, err := s.load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

func (s *Source) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Source) Provider() (ResolvedProvider, []string) {
	rp := s.Config().Provider.Resolve()
	return rp, rp.Problems()
}

// ViperLoader re-reads the config file used by v (if any), decodes it and
// resolves keyring URIs in credential fields through store.
func ViperLoader(v *viper.Viper, store secrets.Store) Loader {
	return func() (*Config, error) {
		if v.ConfigFileUsed() != "" {
			if err := v.ReadInConfig(); err != nil {
				return nil, wardenerr.Errorf(wardenerr.CodeConfigLoadReadFailure, "re-reading config: %w", err)
			}
		}
		cfg, err := FromViper(v)
		if err != nil {
			return nil, err
		}
		if store != nil {
			if err := cfg.ResolveSecrets(store); err != nil {
				slog.Warn("unresolved keyring references in config", "error", err)
			}
		}
		return cfg, nil
	}
}

// ResolveSecrets replaces keyring:// references in credential fields.
func (c *Config) ResolveSecrets(store secrets.Store) error {
	return secrets.ResolveAll(store, map[string]*string{
		"provider.api_key":      &c.Provider.APIKey,
		"notify.email.user":     &c.Notify.Email.User,
		"notify.email.password": &c.Notify.Email.Password,
		"notify.webhook.url":    &c.Notify.Webhook.URL,
		"alerts.redis_url":      &c.Alerts.RedisURL,
	})
}
