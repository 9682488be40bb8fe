package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-story-backend/internal/auth"
)

type stubParser map[string]auth.Identity

func (s stubParser) Parse(raw string) (auth.Identity, error) {
	if id, ok := s[raw]; ok {
		return id, nil
	}
	return auth.Identity{}, errors.New("bad token")
}

func authRouter(guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Authenticate(stubParser{
		"user-token":  {UserID: "u1", Username: "ann", Role: "user"},
		"admin-token": {UserID: "a1", Username: "root", Role: "admin"},
	}))
	handlers := append(guards, func(c *gin.Context) {
		id := IdentityFrom(c)
		fromCtx, ok := auth.FromContext(c.Request.Context())
		if id == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		if !ok || fromCtx.UserID != id.UserID || c.GetString("userID") != id.UserID {
			c.String(http.StatusInternalServerError, "identity not propagated")
			return
		}
		c.String(http.StatusOK, id.UserID)
	})
	r.GET("/x", handlers...)
	return r
}

func doAuth(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate_Optional(t *testing.T) {
	r := authRouter()

	w := doAuth(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())

	w = doAuth(r, "Bearer user-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())

	w = doAuth(r, "bearer   user-token")
	assert.Equal(t, "u1", w.Body.String())
}

func TestAuthenticate_RejectsBadTokens(t *testing.T) {
	r := authRouter()
	for _, h := range []string{"Bearer nope", "Basic abc", "Bearer", "user-token"} {
		w := doAuth(r, h)
		require.Equal(t, http.StatusUnauthorized, w.Code, h)
		assert.Contains(t, w.Body.String(), `"code":"unauthorized"`)
		assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
	}
}

func TestRequireAuth(t *testing.T) {
	r := authRouter(RequireAuth())
	assert.Equal(t, http.StatusUnauthorized, doAuth(r, "").Code)
	assert.Equal(t, http.StatusOK, doAuth(r, "Bearer user-token").Code)
}

func TestRequireAdmin(t *testing.T) {
	r := authRouter(RequireAdmin())
	assert.Equal(t, http.StatusUnauthorized, doAuth(r, "").Code)
	assert.Equal(t, http.StatusForbidden, doAuth(r, "Bearer user-token").Code)
	w := doAuth(r, "Bearer admin-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a1", w.Body.String())
}

func TestIdentityFrom_RequestContextFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, IdentityFrom(c))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request = req
	assert.Nil(t, IdentityFrom(c))

	c.Request = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: "u1", Username: "ana", Role: "user"}))
	id := IdentityFrom(c)
	require.NotNil(t, id)
	assert.Equal(t, "u1", id.UserID)
}
