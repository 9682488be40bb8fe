// This file implements RedisLimiter, a fixed-window request limiter whose
// counters live in Redis so that every replica enforces one shared budget per
// caller. A window is aligned to wall-clock multiples of its length; the
// counter key carries the window start and expires with the window.

package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

var incrWithTTLScript = redis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return c
`)

// RedisLimiter allows at most limit requests per key and window.
// It is safe for concurrent use.
type RedisLimiter struct {
	rdb    redis.Scripter
	limit  int64
	window time.Duration
	prefix string
	keyFn  KeyFunc
	now    func() time.Time
}

// NewRedisLimiter returns a limiter over rdb. window is rounded up to whole
// seconds; limit <= 0 is coerced to 1.
func NewRedisLimiter(rdb redis.Scripter, limit int64, window time.Duration, keyFn KeyFunc) *RedisLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window < time.Second {
		window = time.Second
	}
	window = window.Round(time.Second)
	return &RedisLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		prefix: "story:ratelimit",
		keyFn:  keyFn,
		now:    time.Now,
	}
}

// Allow counts one request for key and reports whether it fits the current
// window, how many were used, and when the window resets.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (allowed bool, used int64, resetAt time.Time, err error) {
	now := l.now().UTC()
	start := now.Truncate(l.window)
	resetAt = start.Add(l.window)
	ttl := int64(resetAt.Sub(now).Seconds())
	if ttl < 1 {
		ttl = 1
	}

	k := fmt.Sprintf("%s:%s:%d", l.prefix, key, start.Unix())
	used, err = incrWithTTLScript.Run(ctx, l.rdb, []string{k}, ttl).Int64()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limit script: %w", err)
	}
	return used <= l.limit, used, resetAt, nil
}

// Handler returns a Gin middleware enforcing the limit. Idempotent replays
// skip the limiter. When Redis is unreachable the request is let through and
// the failure logged: an outage of the limiter must not take the API down.
func (l *RedisLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		allowed, _, resetAt, err := l.Allow(c.Request.Context(), l.keyFn(c))
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		if !allowed {
			rejectRateLimited(c, "redis", resetAt.Sub(l.now().UTC()))
			return
		}
		c.Next()
	}
}
