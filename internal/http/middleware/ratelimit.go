package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc maps a request to the caller whose budget it spends.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP spends the authenticated user's budget, or the client IP's
// for anonymous callers.
func KeyByUserOrIP() KeyFunc {
	return SubjectFrom
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a process-local token bucket per caller. Use RedisLimiter
// when several replicas must share one budget. Idle buckets are dropped on
// a periodic sweep.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	key   KeyFunc

	idleTTL    time.Duration
	sweepEvery time.Duration
	now        func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter allows rps requests per second per key with the given
// burst. A burst below one is raised to one.
func NewRateLimiter(rps float64, burst int, key KeyFunc) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:        rate.Limit(rps),
		burst:      burst,
		key:        key,
		idleTTL:    10 * time.Minute,
		sweepEvery: time.Minute,
		now:        time.Now,
		buckets:    make(map[string]*bucket),
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Sweep before touching key so a stale bucket for key starts fresh.
	if now.Sub(rl.lastSweep) >= rl.sweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// IsRateBypass reports whether IdempotencyValidator flagged the request as
// a replay, which costs no budget.
func IsRateBypass(c *gin.Context) bool {
	return c.GetBool(ctxKeyRateBypass)
}

// Handler enforces the limit. A rejected request gets 429 with Retry-After
// set to when its next token is due.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		now := rl.now()
		r := rl.limiterFor(rl.key(c)).ReserveN(now, 1)
		if !r.OK() {
			rejectRateLimited(c, "memory", time.Second)
			return
		}
		if d := r.DelayFrom(now); d > 0 {
			r.CancelAt(now)
			rejectRateLimited(c, "memory", d)
			return
		}
		c.Next()
	}
}

// rejectRateLimited counts the rejection and aborts with 429. retryAfter is
// rounded up to whole seconds, minimum one.
//
//	HTTP/1.1 429 Too Many Requests
//	{
//	  "request_id": "<uuid>",
//	  "code":       "too_many_requests",
//	  "message":    "Rate limit exceeded"
//	}
func rejectRateLimited(c *gin.Context, backend string, retryAfter time.Duration) {
	rateLimitRejects.WithLabelValues(backend).Inc()
	secs := int((retryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
	AbortError(c, http.StatusTooManyRequests, "too_many_requests", "Rate limit exceeded")
}
