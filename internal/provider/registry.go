// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package provider

import (
	"slices"
	"sync"

	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// Factory builds a Completer for one provider.
type Factory func(cfg Config) (Completer, error)

type clientKey struct {
	name    string
	apiKey  string
	baseURL string
}

// Registry maps provider names to factories and caches the clients it builds.
// A config reload that changes the key or base URL gets a fresh client;
// unchanged settings reuse the existing one.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	clients   map[clientKey]Completer
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		clients:   make(map[clientKey]Completer),
	}
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
	for k := range r.clients {
		if k.name == name {
			delete(r.clients, k)
		}
	}
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Get returns a client for name configured with cfg, building it on first use.
func (r *Registry) Get(name string, cfg Config) (Completer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := clientKey{name: name, apiKey: cfg.APIKey, baseURL: cfg.BaseURL}
	if c, ok := r.clients[key]; ok {
		return c, nil
	}

	f, ok := r.factories[name]
	if !ok {
		return nil, wardenerr.New(
			wardenerr.CodeProviderNotFound,
			"provider not found: "+name,
			wardenerr.FieldProvider(name),
		)
	}

	c, err := f(cfg)
	if err != nil {
		return nil, err
	}
	// Drop clients built from superseded settings.
	for k := range r.clients {
		if k.name == name {
			delete(r.clients, k)
		}
	}
	r.clients[key] = c
	return c, nil
}
