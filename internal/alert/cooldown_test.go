// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package alert_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warden-dev/warden/internal/alert"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestCooldownStores(t *testing.T) {
	stores := map[string]func(t *testing.T) alert.CooldownStore{
		"memory": func(*testing.T) alert.CooldownStore { return alert.NewMemoryCooldown() },
		"redis": func(t *testing.T) alert.CooldownStore {
			client, _ := setupTestRedis(t)
			return alert.NewRedisCooldownFromClient(client)
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			_, ok, err := s.LastSent(ctx, alert.TypeHighCost)
			require.NoError(t, err)
			assert.False(t, ok, "unset type is eligible")

			require.NoError(t, s.MarkSent(ctx, alert.TypeHighCost, t0))
			got, ok, err := s.LastSent(ctx, alert.TypeHighCost)
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, got.Equal(t0))

			require.NoError(t, s.MarkSent(ctx, alert.TypeHighCost, t0.Add(-time.Minute)))
			got, _, err = s.LastSent(ctx, alert.TypeHighCost)
			require.NoError(t, err)
			assert.True(t, got.Equal(t0), "last sent never moves backwards")

			require.NoError(t, s.MarkSent(ctx, alert.TypeHighCost, t0.Add(time.Hour)))
			got, _, err = s.LastSent(ctx, alert.TypeHighCost)
			require.NoError(t, err)
			assert.True(t, got.Equal(t0.Add(time.Hour)))

			_, ok, err = s.LastSent(ctx, alert.TypeHighLatency)
			require.NoError(t, err)
			assert.False(t, ok, "types are independent")
		})
	}
}

func TestRedisCooldown_KeyLayout(t *testing.T) {
	client, mr := setupTestRedis(t)
	s := alert.NewRedisCooldownFromClient(client)

	require.NoError(t, s.MarkSent(context.Background(), alert.TypeHighErrorRate, t0))

	val, err := mr.Get(alert.DefaultCooldownPrefix + "high_error_rate")
	require.NoError(t, err)
	assert.Equal(t, "1770199200000000", val)
}

func TestNewRedisCooldown(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := alert.NewRedisCooldown(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.MarkSent(context.Background(), alert.TypeHighLatency, t0))
	assert.True(t, mr.Exists(alert.DefaultCooldownPrefix+"high_latency"))
}

func TestNewRedisCooldown_Errors(t *testing.T) {
	_, err := alert.NewRedisCooldown(context.Background(), "http://not-redis")
	require.Error(t, err)
	assert.True(t, wardenerr.HasCode(err, wardenerr.CodeConfigValidateInvalidValue))

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = alert.NewRedisCooldown(context.Background(), "redis://"+addr)
	require.Error(t, err)
	assert.True(t, wardenerr.HasCode(err, wardenerr.CodeStoreDatabaseFailure))
}

func TestEngine_SharesCooldownThroughRedis(t *testing.T) {
	client, _ := setupTestRedis(t)
	sum := &staticAnalyzer{summary: summaryWithCost(3)}

	first := alert.NewEngine(sum, defaultThresholds, alert.NewRedisCooldownFromClient(client), &recordingNotifier{name: "a"})
	second := alert.NewEngine(sum, defaultThresholds, alert.NewRedisCooldownFromClient(client), &recordingNotifier{name: "b"})
	first.SetNowFunc(func() time.Time { return t0 })
	second.SetNowFunc(func() time.Time { return t0.Add(time.Minute) })

	res, err := first.CheckAndAlert(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.AlertsSent, 1)

	res, err = second.CheckAndAlert(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.AlertsSent, "another process already alerted")
}
