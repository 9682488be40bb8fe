// Idempotency-Key handling for POST routes. A key belongs to a subject (the
// user, or the client IP when anonymous) and a scope (the story the request
// targets), so equal keys from different callers or for different stories
// are unrelated. The middleware only validates and detects replays; the
// handler serves the recorded answer and records new ones.

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderIdempotencyReplayed is set on responses served from a record.
	HeaderIdempotencyReplayed = "Idempotency-Replayed"
)

const (
	ctxKeyIdemKey     = "idem.key"
	ctxKeyIdemSubject = "idem.subject"
	ctxKeyIdemScope   = "idem.scope"
	ctxKeyIdemReplay  = "idem.replay"
	ctxKeyRateBypass  = "rate.bypass"
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// maxScopePeekBytes bounds how much of a JSON body JSONFieldScope reads.
const maxScopePeekBytes = 1 << 20

// GetIdempotencyKey returns the accepted key, if the request carried one.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	return getString(c, ctxKeyIdemKey)
}

// GetIdempotencySubject returns the caller the key was scoped to.
func GetIdempotencySubject(c *gin.Context) string {
	s, _ := getString(c, ctxKeyIdemSubject)
	return s
}

// GetIdempotencyScope returns the resource the key was scoped to.
func GetIdempotencyScope(c *gin.Context) string {
	s, _ := getString(c, ctxKeyIdemScope)
	return s
}

// IsReplay reports whether a live record already answers this request.
func IsReplay(c *gin.Context) bool {
	return c.GetBool(ctxKeyIdemReplay)
}

// ScopeFunc extracts the resource a request targets.
type ScopeFunc func(*gin.Context) string

// PathParamScope scopes keys by a route parameter.
func PathParamScope(name string) ScopeFunc {
	return func(c *gin.Context) string { return c.Param(name) }
}

// JSONFieldScope scopes keys by a top-level string field of the JSON body.
// The body is restored so handlers can bind it again.
func JSONFieldScope(field string) ScopeFunc {
	return func(c *gin.Context) string {
		if c.Request.Body == nil || !strings.Contains(c.ContentType(), "json") {
			return ""
		}
		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxScopePeekBytes))
		c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), c.Request.Body))
		if err != nil {
			return ""
		}
		var m map[string]json.RawMessage
		if json.Unmarshal(raw, &m) != nil {
			return ""
		}
		var s string
		if json.Unmarshal(m[field], &s) != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
}

// IdempotencyOptions tunes key validation. Zero values mean: keys up to 200
// bytes of token characters, scoped by the ":id" route parameter.
type IdempotencyOptions struct {
	MaxLen  int
	Pattern *regexp.Regexp
	Scope   ScopeFunc
}

// IdempotencyLookup reports whether a live record exists for the slot. A
// failing lookup is logged and the request proceeds as new.
type IdempotencyLookup func(ctx context.Context, subject, scope, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator rejects malformed keys with 400 and stores key,
// subject and scope for the handler. Replays are flagged so the rate limiter
// lets them through. Requests without the header pass untouched.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}
	scope := opts.Scope
	if scope == nil {
		scope = PathParamScope("id")
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			AbortError(c, http.StatusBadRequest, "bad_request", "Invalid Idempotency-Key")
			return
		}

		subject := SubjectFrom(c)
		target := scope(c)
		c.Set(ctxKeyIdemKey, key)
		c.Set(ctxKeyIdemSubject, subject)
		c.Set(ctxKeyIdemScope, target)

		if lookup != nil && target != "" {
			exists, err := lookup(c.Request.Context(), subject, target, key, time.Now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			}
			if exists {
				idempotencyReplays.Inc()
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}

// SubjectFrom names the caller: "user:<id>" when authenticated, otherwise
// "ip:<client ip>".
func SubjectFrom(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok && s != "" {
			return "user:" + s
		}
	}
	return "ip:" + c.ClientIP()
}

func getString(c *gin.Context, key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}
