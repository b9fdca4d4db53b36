// Package ratelimit implements a fixed-window counter guarding login
// against credential-stuffing (password-reset requests are not
// rate-limited), using an atomic Redis Lua script so the
// increment-and-check is race-free under concurrent requests from the
// same key.
package ratelimit

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// incrementAndCheck atomically increments the key's counter, sets its
// expiry on first increment, and returns the new count.
var incrementAndCheck = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return count
`)

type Limiter struct {
	redis  *redis.Client
	limit  int64
	window int // seconds
}

func New(rdb *redis.Client, limit int64, windowSeconds int) *Limiter {
	return &Limiter{redis: rdb, limit: limit, window: windowSeconds}
}

// Allow reports whether key is still within its window limit, having
// incremented its counter as a side effect.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := incrementAndCheck.Run(ctx, l.redis, []string{key}, l.window).Int64()
	if err != nil {
		return false, err
	}
	return count <= l.limit, nil
}
