// Story HTTP handlers.
//
//   - GET    /stories            (public, paginated; ?q= searches)
//   - GET    /stories/mine
//   - POST   /stories
//   - GET    /stories/{id}
//   - PUT    /stories/{id}
//   - DELETE /stories/{id}
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-story-backend/internal/domain"
	"github.com/tbourn/go-story-backend/internal/http/middleware"
	"github.com/tbourn/go-story-backend/internal/repo"
	"github.com/tbourn/go-story-backend/internal/services"
)

// CreateStoryRequest is the JSON payload for a new story.
type CreateStoryRequest struct {
	Title    string `json:"title"     example:"The Lighthouse"`
	Content  string `json:"content"   example:"The keeper climbed the stairs one last time."`
	IsPublic bool   `json:"is_public" example:"true"`
}

// UpdateStoryRequest carries optional story changes; omitted fields are kept.
type UpdateStoryRequest struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	IsPublic *bool   `json:"is_public,omitempty"`
}

// ListStoriesResponse wraps a page of public stories.
type ListStoriesResponse struct {
	Stories    []domain.Story `json:"stories"`
	Pagination Pagination     `json:"pagination"`
}

// SearchStoriesResponse wraps a page of ranked search hits.
type SearchStoriesResponse struct {
	Stories    []services.StoryHit `json:"stories"`
	Pagination Pagination          `json:"pagination"`
}

// MyStoriesResponse wraps the caller's stories.
type MyStoriesResponse struct {
	Stories []domain.Story `json:"stories"`
}

// ListStories godoc
// @ID          listStories
// @Summary     List or search public stories
// @Description Without q, returns public stories newest first. With q, returns ranked hits (SearchStoriesResponse) instead.
// @Tags        Stories
// @Produce     json
// @Param       q          query  string  false "Search query"
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListStoriesResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /stories [get]
func (h *Handlers) ListStories(c *gin.Context) {
	ctx := c.Request.Context()
	pg := pageOf(c)

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		hits, total, err := h.stories.Search(ctx, q, pg.Number, pg.Size)
		if err != nil {
			writeError(c, err)
			return
		}
		if hits == nil {
			hits = []services.StoryHit{}
		}
		ok(c, http.StatusOK, SearchStoriesResponse{
			Stories:    hits,
			Pagination: newPagination(pg, int64(total)),
		})
		return
	}

	items, total, err := h.stories.ListPublic(ctx, pg.Number, pg.Size)
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []domain.Story{}
	}
	ok(c, http.StatusOK, ListStoriesResponse{Stories: items, Pagination: newPagination(pg, total)})
}

// ListMyStories godoc
// @ID          listMyStories
// @Summary     List the caller's stories
// @Tags        Stories
// @Produce     json
// @Param       Authorization  header  string  true  "Bearer token"
// @Success     200  {object}  handlers.MyStoriesResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /stories/mine [get]
func (h *Handlers) ListMyStories(c *gin.Context) {
	who, okID := requester(c)
	if !okID {
		return
	}
	items, err := h.stories.ListMine(c.Request.Context(), who)
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []domain.Story{}
	}
	ok(c, http.StatusOK, MyStoriesResponse{Stories: items})
}

// CreateStory godoc
// @ID          createStory
// @Summary     Create a story
// @Tags        Stories
// @Accept      json
// @Produce     json
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       body  body      handlers.CreateStoryRequest  true  "Story"
// @Success     201   {object}  domain.Story
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     401   {object}  handlers.ErrorResponse
// @Router      /stories [post]
func (h *Handlers) CreateStory(c *gin.Context) {
	who, okID := requester(c)
	if !okID {
		return
	}
	var req CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	s, err := h.stories.Create(c.Request.Context(), who, services.StoryInput{
		Title:    req.Title,
		Content:  req.Content,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, s)
}

// GetStory godoc
// @ID          getStory
// @Summary     Get a story
// @Description Private stories are visible to their author only.
// @Tags        Stories
// @Produce     json
// @Param       Authorization  header  string  false "Bearer token"
// @Param       id  path      string  true  "Story ID (UUID)"
// @Success     200 {object}  domain.Story
// @Failure     400 {object}  handlers.ErrorResponse
// @Failure     404 {object}  handlers.ErrorResponse
// @Router      /stories/{id} [get]
func (h *Handlers) GetStory(c *gin.Context) {
	id, okID := pathID(c, "id", "story")
	if !okID {
		return
	}
	s, err := h.stories.Get(c.Request.Context(), id, middleware.IdentityFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, s)
}

// UpdateStory godoc
// @ID          updateStory
// @Summary     Update a story
// @Tags        Stories
// @Accept      json
// @Produce     json
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       id    path      string  true  "Story ID (UUID)"
// @Param       body  body      handlers.UpdateStoryRequest  true  "Changes"
// @Success     200   {object}  domain.Story
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     403   {object}  handlers.ErrorResponse  "Not the author"
// @Failure     404   {object}  handlers.ErrorResponse
// @Router      /stories/{id} [put]
func (h *Handlers) UpdateStory(c *gin.Context) {
	who, okID := requester(c)
	if !okID {
		return
	}
	id, okID := pathID(c, "id", "story")
	if !okID {
		return
	}
	var req UpdateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	s, err := h.stories.Update(c.Request.Context(), who, id, repo.StoryPatch{
		Title:    req.Title,
		Content:  req.Content,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, s)
}

// DeleteStory godoc
// @ID          deleteStory
// @Summary     Delete a story with its comments and conversations
// @Tags        Stories
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       id  path  string  true  "Story ID (UUID)"
// @Success     204
// @Failure     403  {object}  handlers.ErrorResponse  "Not the author"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /stories/{id} [delete]
func (h *Handlers) DeleteStory(c *gin.Context) {
	who, okID := requester(c)
	if !okID {
		return
	}
	id, okID := pathID(c, "id", "story")
	if !okID {
		return
	}
	if err := h.stories.Delete(c.Request.Context(), who, id); err != nil {
		writeError(c, err)
		return
	}
	noContent(c)
}
