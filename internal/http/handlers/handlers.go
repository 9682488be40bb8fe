// Package handlers exposes the REST endpoints of the story backend.
//
// Handlers are transport-thin: they bind and check input, call application
// services, and translate results into HTTP responses (including conditional
// responses). Service errors are mapped in one place, writeError.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-story-backend/internal/auth"
	"github.com/tbourn/go-story-backend/internal/domain"
	"github.com/tbourn/go-story-backend/internal/http/middleware"
	"github.com/tbourn/go-story-backend/internal/repo"
	"github.com/tbourn/go-story-backend/internal/services"
	"github.com/tbourn/go-story-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// AssistantService runs story analyses and lists their conversations.
type AssistantService interface {
	// Configured reports whether a completion provider is available.
	Configured() bool
	Analyze(ctx context.Context, in services.AnalyzeInput) (*services.AnalyzeResult, error)
	// Replay rebuilds the result that produced the AI message messageID.
	Replay(ctx context.Context, messageID string) (*services.AnalyzeResult, error)
	ListConversations(ctx context.Context, storyID string) ([]services.ConversationSummary, error)
	// Stats returns the conversation count and latest update for ETags.
	Stats(ctx context.Context, storyID string) (int64, *time.Time, error)
}

// IdempotencyStore remembers which AI message answered an Idempotency-Key.
type IdempotencyStore interface {
	Lookup(ctx context.Context, subject, storyID, key string) (string, bool, error)
	Record(ctx context.Context, subject, storyID, key, messageID string) error
}

// AuthService defines account operations.
type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*services.LoginResult, error)
	Me(ctx context.Context, who auth.Identity) (*domain.User, error)
	UpdateProfile(ctx context.Context, who auth.Identity, patch repo.ProfilePatch) (*domain.User, error)
}

// StoryService defines story operations.
type StoryService interface {
	Create(ctx context.Context, who auth.Identity, in services.StoryInput) (*domain.Story, error)
	Get(ctx context.Context, storyID string, viewer *auth.Identity) (*domain.Story, error)
	ListPublic(ctx context.Context, page, pageSize int) ([]domain.Story, int64, error)
	ListMine(ctx context.Context, who auth.Identity) ([]domain.Story, error)
	Update(ctx context.Context, who auth.Identity, storyID string, patch repo.StoryPatch) (*domain.Story, error)
	Delete(ctx context.Context, who auth.Identity, storyID string) error
	Search(ctx context.Context, q string, page, pageSize int) ([]services.StoryHit, int, error)
}

// CommentService defines comment operations.
type CommentService interface {
	Create(ctx context.Context, who auth.Identity, storyID, content string) (*domain.Comment, error)
	List(ctx context.Context, storyID string) ([]domain.Comment, error)
	Delete(ctx context.Context, who auth.Identity, commentID string) error
	ListAll(ctx context.Context, who auth.Identity, page, pageSize int) ([]domain.Comment, int64, error)
	Stats(ctx context.Context, storyID string) (int64, *time.Time, error)
}

//
// Handler wiring
//

// Deps are the services the handlers call. Idempotency may be nil, in which
// case Idempotency-Key headers are validated but never replayed.
type Deps struct {
	Assistant   AssistantService
	Idempotency IdempotencyStore
	Auth        AuthService
	Stories     StoryService
	Comments    CommentService
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	assistant AssistantService
	idem      IdempotencyStore
	auth      AuthService
	stories   StoryService
	comments  CommentService
}

// New constructs a Handlers instance bound to the given services.
func New(d Deps) *Handlers {
	return &Handlers{
		assistant: d.Assistant,
		idem:      d.Idempotency,
		auth:      d.Auth,
		stories:   d.Stories,
		comments:  d.Comments,
	}
}

//
// DTOs shared across endpoints
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(pg utils.Page, total int64) Pagination {
	pages := pg.TotalPages(total)
	return Pagination{
		Page:       pg.Number,
		PageSize:   pg.Size,
		Total:      total,
		TotalPages: pages,
		HasNext:    pg.Number < pages,
	}
}

//
// Helpers
//

// pageOf reads page and page_size from the query string.
func pageOf(c *gin.Context) utils.Page {
	return utils.ParsePage(c.Query("page"), c.Query("page_size"))
}

// pathID returns the UUID path parameter name, or writes a 400 and returns
// false.
func pathID(c *gin.Context, name, what string) (string, bool) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, what+" id must be a UUID")
		return "", false
	}
	return id, true
}

// requester returns the authenticated identity. Routes using it sit behind
// RequireAuth, so a missing identity is a wiring bug reported as 401.
func requester(c *gin.Context) (auth.Identity, bool) {
	if id := middleware.IdentityFrom(c); id != nil {
		return *id, true
	}
	fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
	return auth.Identity{}, false
}

// notModified sets a weak ETag built from a collection's size and latest
// change, and reports whether If-None-Match already matches it.
func notModified(c *gin.Context, kind, id string, count int64, latest *time.Time) bool {
	var ts int64
	if latest != nil {
		ts = latest.UnixNano()
	}
	etag := fmt.Sprintf(`W/"%s:%s:%d:%d"`, kind, id, count, ts)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}
