package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-story-backend/internal/auth"
	"github.com/tbourn/go-story-backend/internal/domain"
	"github.com/tbourn/go-story-backend/internal/http/middleware"
	"github.com/tbourn/go-story-backend/internal/llm"
	"github.com/tbourn/go-story-backend/internal/repo"
	"github.com/tbourn/go-story-backend/internal/services"
)

// testEnv is a router over real services and an in-memory database, mounted
// the way the production router mounts it.
type testEnv struct {
	db     *gorm.DB
	r      *gin.Engine
	tokens *auth.Tokens

	reply     string
	replyErr  error
	llmCalls  atomic.Int32
	assistant *services.AssistantService
}

type envOption func(*testEnv)

// withoutProvider leaves the assistant unconfigured.
func withoutProvider() envOption {
	return func(e *testEnv) { e.assistant.Provider = nil }
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:h_%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db.Exec("PRAGMA foreign_keys=ON;")
	require.NoError(t, repo.Migrate(db))
	return db
}

func newEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	e := &testEnv{
		db:     newTestDB(t),
		tokens: auth.NewTokens("test-secret", time.Hour),
		reply:  "Consider tightening the opening line.",
	}
	provider := llm.ProviderFunc(func(context.Context, string, string) (string, error) {
		e.llmCalls.Add(1)
		if e.replyErr != nil {
			return "", e.replyErr
		}
		return e.reply, nil
	})
	e.assistant = services.NewAssistantService(e.db, provider, nil, nil)
	for _, o := range opts {
		o(e)
	}
	idem := services.NewIdempotencyService(e.db, 0)

	h := New(Deps{
		Assistant:   e.assistant,
		Idempotency: idem,
		Auth:        services.NewAuthService(e.db, e.tokens),
		Stories:     services.NewStoryService(e.db),
		Comments:    services.NewCommentService(e.db),
	})

	r := gin.New()
	r.Use(middleware.Authenticate(e.tokens))
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{
		Scope: middleware.JSONFieldScope("story_id"),
	}, idem.Exists))

	requireAuth := middleware.RequireAuth()
	r.POST("/ai-assistant", h.Analyze)
	r.GET("/ai-assistant", h.ListConversations)
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.GET("/me", requireAuth, h.Me)
	r.PATCH("/me", requireAuth, h.UpdateMe)
	r.GET("/stories", h.ListStories)
	r.GET("/stories/mine", requireAuth, h.ListMyStories)
	r.POST("/stories", requireAuth, h.CreateStory)
	r.GET("/stories/:id", h.GetStory)
	r.PUT("/stories/:id", requireAuth, h.UpdateStory)
	r.DELETE("/stories/:id", requireAuth, h.DeleteStory)
	r.GET("/stories/:id/comments", h.ListComments)
	r.POST("/stories/:id/comments", requireAuth, h.CreateComment)
	r.DELETE("/comments/:id", requireAuth, h.DeleteComment)
	r.GET("/admin/comments", middleware.RequireAdmin(), h.AdminListComments)
	e.r = r
	return e
}

// user seeds an account and returns its identity and a bearer token.
func (e *testEnv) user(t *testing.T, username, role string) (auth.Identity, string) {
	t.Helper()
	u := &domain.User{Username: username, PasswordHash: "x", Role: role}
	require.NoError(t, repo.CreateUser(context.Background(), e.db, u))
	id := auth.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
	tok, _, err := e.tokens.Issue(id)
	require.NoError(t, err)
	return id, tok
}

func (e *testEnv) story(t *testing.T, authorID, title, content string, public bool) *domain.Story {
	t.Helper()
	st, err := repo.CreateStory(context.Background(), e.db, authorID, title, content, public)
	require.NoError(t, err)
	return st
}

// do sends a request. body may be nil, a string (sent raw) or any value
// (sent as JSON). headers alternate name, value.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	er := decode[ErrorResponse](t, w)
	require.Equal(t, code, er.Code)
	return er
}
