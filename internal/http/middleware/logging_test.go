package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-story-backend/internal/auth"
)

// logSink swaps the global logger for a JSON buffer until the test ends.
type logSink struct{ buf bytes.Buffer }

func captureLogs(t *testing.T) *logSink {
	t.Helper()
	s := &logSink{}
	prev := log.Logger
	log.Logger = zerolog.New(&s.buf)
	t.Cleanup(func() { log.Logger = prev })
	return s
}

func (s *logSink) entries(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(s.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

// accessLines keeps only the per-request summary lines.
func (s *logSink) accessLines(t *testing.T) []map[string]any {
	var out []map[string]any
	for _, e := range s.entries(t) {
		if e["message"] == "request" {
			out = append(out, e)
		}
	}
	return out
}

func TestRequestID_MintsOrReuses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/rid", func(c *gin.Context) {
		seen = RequestIDFrom(c)
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		name    string
		inbound string
		reused  bool
	}{
		{"absent", "", false},
		{"valid", "Z-REQ.123:a_b", true},
		{"too long", strings.Repeat("a", 129), false},
		{"bad chars", "id with spaces", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/rid", nil)
			if tc.inbound != "" {
				req.Header.Set("x-request-id", tc.inbound)
			}
			r.ServeHTTP(w, req)

			got := w.Header().Get(requestIDHeader)
			require.NotEmpty(t, got)
			assert.Equal(t, got, seen)
			if tc.reused {
				assert.Equal(t, tc.inbound, got)
			} else {
				assert.NotEqual(t, tc.inbound, got)
				assert.Len(t, got, 36)
			}
		})
	}
}

func TestLogger_LevelFollowsOutcome(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := captureLogs(t)

	r := gin.New()
	r.Use(RequestID(), Logger())
	r.GET("/stories/:id", func(c *gin.Context) { c.String(http.StatusOK, "hello") })
	r.GET("/fails", func(c *gin.Context) {
		_ = c.Error(errors.New("store unavailable"))
		c.Status(http.StatusBadRequest)
	})

	for _, p := range []string{"/stories/s1?q=x", "/nowhere", "/fails"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	lines := sink.accessLines(t)
	require.Len(t, lines, 3)

	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "/stories/:id", lines[0]["path"], "matched route template")
	assert.Equal(t, "q=x", lines[0]["query"])
	assert.EqualValues(t, 200, lines[0]["status"])
	assert.EqualValues(t, 5, lines[0]["bytes_out"])
	assert.NotContains(t, lines[0], "headers", "plain logger omits headers")

	assert.Equal(t, "warn", lines[1]["level"])
	assert.Equal(t, "/nowhere", lines[1]["path"], "unmatched falls back to raw path")

	assert.Equal(t, "error", lines[2]["level"])
	assert.Contains(t, lines[2]["errors"], "store unavailable")
}

func TestLogger_CarriesCallerIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := captureLogs(t)

	r := gin.New()
	r.Use(RequestID(), Logger())
	r.Use(func(c *gin.Context) {
		c.Set(ctxKeyIdentity, auth.Identity{UserID: "u7", Role: "admin"})
		c.Next()
	})
	r.GET("/me", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/me", nil))

	lines := sink.accessLines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "u7", lines[0]["user_id"])
	assert.Equal(t, "admin", lines[0]["role"])
}

func TestLogger_TruncatesLongQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := captureLogs(t)

	r := gin.New()
	r.Use(Logger())
	r.GET("/search", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/search?q="+strings.Repeat("z", 3000), nil))

	lines := sink.accessLines(t)
	require.Len(t, lines, 1)
	q, _ := lines[0]["query"].(string)
	assert.True(t, strings.HasSuffix(q, "…"))
	assert.Len(t, q, maxQueryLogLength+len("…"))
}

func TestScopedLoggerReachesHandlersAndContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := captureLogs(t)

	r := gin.New()
	r.Use(RequestID(), Logger())
	r.GET("/stories/:id", func(c *gin.Context) {
		zerolog.Ctx(c.Request.Context()).Info().Msg("from service")
		LoggerFrom(c).Info().Msg("from handler")
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/stories/s1", nil)
	req.Header.Set(requestIDHeader, "rid-ctx")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := sink.entries(t)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, "rid-ctx", e["request_id"])
		assert.Equal(t, "/stories/:id", e["path"])
		assert.Equal(t, http.MethodGet, e["method"])
	}
}

func TestLoggerFrom_FallsBackToGlobal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := captureLogs(t)

	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("bare")
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(requestIDHeader, "rid-bare")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := sink.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "bare", entries[0]["message"])
	assert.Equal(t, "rid-bare", entries[0]["request_id"])
	assert.NotContains(t, entries[0], "path")
}

func TestRecovery_WritesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := captureLogs(t)

	r := gin.New()
	r.Use(RequestID(), Logger(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body.Code)
	assert.Equal(t, "Internal server error", body.Message)
	assert.Equal(t, w.Header().Get(requestIDHeader), body.RequestID)

	var recovered map[string]any
	for _, e := range sink.entries(t) {
		if e["message"] == "panic recovered" {
			recovered = e
		}
	}
	require.NotNil(t, recovered)
	assert.Equal(t, "kaboom", recovered["panic"])
	assert.NotEmpty(t, recovered["stack"])
}

func TestRecovery_AfterWriteKeepsBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	captureLogs(t)

	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("late")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/late", nil))

	assert.Equal(t, "partial", w.Body.String())
	assert.NotContains(t, w.Header().Get("Content-Type"), "application/json")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "abcde…", truncate("abcdefgh", 5))
	assert.Equal(t, "abc", truncate("abc", 0))
}
