// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package alert

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

// DefaultCooldownPrefix namespaces cooldown keys in Redis.
const DefaultCooldownPrefix = "warden:alert:last_sent:"

// markSentScript stores ARGV[1] (unix microseconds, exact in a Lua number)
// unless the key already holds a later value.
var markSentScript = redis.NewScript(`
	local current = tonumber(redis.call('GET', KEYS[1]))
	local candidate = tonumber(ARGV[1])
	if current == nil or candidate > current then
		redis.call('SET', KEYS[1], ARGV[1])
		return 1
	end
	return 0
`)

// RedisCooldown shares alert cooldowns between Warden processes.
type RedisCooldown struct {
	client *redis.Client
	prefix string
}

// NewRedisCooldown connects to the Redis server at url
// (redis://[:password@]host:port/db) and checks it with PING.
func NewRedisCooldown(ctx context.Context, url string) (*RedisCooldown, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, wardenerr.Wrap(err, wardenerr.CodeConfigValidateInvalidValue, "parsing alerts.redis_url")
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, wardenerr.Wrap(err, wardenerr.CodeStoreDatabaseFailure, "connecting to redis")
	}
	return NewRedisCooldownFromClient(client), nil
}

// NewRedisCooldownFromClient wraps an existing client.
func NewRedisCooldownFromClient(client *redis.Client) *RedisCooldown {
	return &RedisCooldown{client: client, prefix: DefaultCooldownPrefix}
}

func (r *RedisCooldown) key(t Type) string {
	return r.prefix + string(t)
}

func (r *RedisCooldown) LastSent(ctx context.Context, t Type) (time.Time, bool, error) {
	micros, err := r.client.Get(ctx, r.key(t)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, wardenerr.Wrap(err, wardenerr.CodeStoreDatabaseFailure, "reading alert cooldown",
			wardenerr.Field("alert_type", string(t)))
	}
	return time.UnixMicro(micros).UTC(), true, nil
}

func (r *RedisCooldown) MarkSent(ctx context.Context, t Type, at time.Time) error {
	if err := markSentScript.Run(ctx, r.client, []string{r.key(t)}, at.UnixMicro()).Err(); err != nil {
		return wardenerr.Wrap(err, wardenerr.CodeStoreDatabaseFailure, "writing alert cooldown",
			wardenerr.Field("alert_type", string(t)))
	}
	return nil
}

func (r *RedisCooldown) Close() error {
	return r.client.Close()
}
