package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var countScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return n
`)

type Quota struct {
	Allowed bool
	Used    int64
	ResetAt time.Time
}

// RetryAfter is the whole number of seconds until the window resets, at least 1.
func (q Quota) RetryAfter(now time.Time) int {
	secs := int(q.ResetAt.Sub(now).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}

type RateLimiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(rdb *redis.Client, perHour int64) *RateLimiter {
	return &RateLimiter{redis: rdb, limit: perHour, window: time.Hour}
}

func (r *RateLimiter) Allow(ctx context.Context, client string, now time.Time) (Quota, error) {
	start := now.UTC().Truncate(r.window)
	end := start.Add(r.window)
	ttl := end.Sub(now.UTC())
	if ttl < time.Second {
		ttl = time.Second
	}
	key := fmt.Sprintf("coroconcept:generate:%s:%d", client, start.Unix())

	used, err := countScript.Run(ctx, r.redis, []string{key}, int64(ttl/time.Second)).Int64()
	if err != nil {
		return Quota{}, fmt.Errorf("count generate call: %w", err)
	}
	return Quota{Allowed: used <= r.limit, Used: used, ResetAt: end}, nil
}
