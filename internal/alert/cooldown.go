// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package alert

import (
	"context"
	"sync"
	"time"
)

// CooldownStore remembers when each alert type was last delivered.
// MarkSent never moves a timestamp backwards.
type CooldownStore interface {
	LastSent(ctx context.Context, t Type) (time.Time, bool, error)
	MarkSent(ctx context.Context, t Type, at time.Time) error
}

// MemoryCooldown is a process-local CooldownStore.
type MemoryCooldown struct {
	mu   sync.Mutex
	last map[Type]time.Time
}

func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{last: make(map[Type]time.Time)}
}

func (m *MemoryCooldown) LastSent(_ context.Context, t Type) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.last[t]
	return at, ok, nil
}

func (m *MemoryCooldown) MarkSent(_ context.Context, t Type, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.last[t]; ok && !at.After(prev) {
		return nil
	}
	m.last[t] = at
	return nil
}
