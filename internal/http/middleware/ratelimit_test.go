package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func limitedRouter(rl *RateLimiter, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(pre...)
	r.Use(rl.Handler())
	r.GET("/stories", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hit(r http.Handler, remote string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stories", nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	r.ServeHTTP(w, req)
	return w
}

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "203.0.113.9:5555"

	assert.Equal(t, "ip:203.0.113.9", KeyByUserOrIP()(c))

	c.Set(ctxKeyUserID, "u123")
	assert.Equal(t, "user:u123", KeyByUserOrIP()(c))
}

func TestNewRateLimiter_RaisesBurst(t *testing.T) {
	rl := NewRateLimiter(2, 0, KeyByUserOrIP())
	assert.Equal(t, 1, rl.burst)
	assert.Same(t, rl.limiterFor("k"), rl.limiterFor("k"))
	assert.NotSame(t, rl.limiterFor("k"), rl.limiterFor("other"))
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(1, 1, KeyByUserOrIP())
	rl.now = clk.now

	rl.limiterFor("idle")
	clk.advance(5 * time.Minute)
	rl.limiterFor("busy")
	require.Equal(t, 2, rl.size())

	clk.advance(6 * time.Minute)
	rl.limiterFor("busy")
	assert.Equal(t, 1, rl.size(), "idle bucket past its TTL is dropped")
}

func TestRateLimiter_RejectsWithRetryAfter(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(0.5, 1, KeyByUserOrIP())
	rl.now = clk.now
	r := limitedRouter(rl)

	require.Equal(t, http.StatusOK, hit(r, "").Code)

	w := hit(r, "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))

	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "too_many_requests", body.Code)
	assert.Equal(t, "Rate limit exceeded", body.Message)
	assert.Equal(t, w.Header().Get("X-Request-ID"), body.RequestID)
	assert.NotEmpty(t, body.RequestID)

	// A rejected request does not spend the token it waited for.
	clk.advance(2 * time.Second)
	assert.Equal(t, http.StatusOK, hit(r, "").Code)
}

func TestRateLimiter_BudgetsArePerCaller(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(1, 1, KeyByUserOrIP())
	rl.now = clk.now
	r := limitedRouter(rl)

	assert.Equal(t, http.StatusOK, hit(r, "198.51.100.1:1000").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "198.51.100.1:1001").Code)
	assert.Equal(t, http.StatusOK, hit(r, "198.51.100.2:1000").Code)
}

func TestRateLimiter_ZeroRateAllowsOnlyBurst(t *testing.T) {
	rl := NewRateLimiter(0, 2, KeyByUserOrIP())
	r := limitedRouter(rl)

	assert.Equal(t, http.StatusOK, hit(r, "").Code)
	assert.Equal(t, http.StatusOK, hit(r, "").Code)
	w := hit(r, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestIsRateBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.False(t, IsRateBypass(c))
	c.Set(ctxKeyRateBypass, "yes")
	assert.False(t, IsRateBypass(c), "non-bool marker reads as false")
	c.Set(ctxKeyRateBypass, true)
	assert.True(t, IsRateBypass(c))
}

func TestRateLimiter_ReplaysSkipTheBudget(t *testing.T) {
	rl := NewRateLimiter(0, 1, KeyByUserOrIP())
	replay := func(c *gin.Context) { c.Set(ctxKeyRateBypass, true); c.Next() }
	r := limitedRouter(rl, replay)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(r, "").Code)
	}
	assert.Zero(t, rl.size(), "replays never open a bucket")
	assert.Equal(t, http.StatusOK, hit(limitedRouter(rl), "").Code)
}
