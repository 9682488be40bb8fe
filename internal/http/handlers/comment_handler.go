// Comment HTTP handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-story-backend/internal/domain"
)

// CreateCommentRequest is the JSON payload for a comment.
type CreateCommentRequest struct {
	Content string `json:"content" example:"Loved the ending."`
}

// ListCommentsResponse wraps a story's comments.
type ListCommentsResponse struct {
	Comments []domain.Comment `json:"comments"`
}

// AdminCommentsResponse wraps a page of comments across all stories.
type AdminCommentsResponse struct {
	Comments   []domain.Comment `json:"comments"`
	Pagination Pagination       `json:"pagination"`
}

// ListComments godoc
// @ID          listComments
// @Summary     List a public story's comments
// @Description Oldest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Comments
// @Produce     json
// @Param       id             path    string  true  "Story ID (UUID)"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Success     200  {object}  handlers.ListCommentsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /stories/{id}/comments [get]
func (h *Handlers) ListComments(c *gin.Context) {
	ctx := c.Request.Context()
	id, okID := pathID(c, "id", "story")
	if !okID {
		return
	}
	// Visibility is checked before any ETag so private stories leak nothing.
	items, err := h.comments.List(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	if count, latest, err := h.comments.Stats(ctx, id); err == nil {
		if notModified(c, "comments", id, count, latest) {
			return
		}
	}
	if items == nil {
		items = []domain.Comment{}
	}
	ok(c, http.StatusOK, ListCommentsResponse{Comments: items})
}

// CreateComment godoc
// @ID          createComment
// @Summary     Comment on a public story
// @Tags        Comments
// @Accept      json
// @Produce     json
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       id    path      string  true  "Story ID (UUID)"
// @Param       body  body      handlers.CreateCommentRequest  true  "Comment"
// @Success     201   {object}  domain.Comment
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     401   {object}  handlers.ErrorResponse
// @Failure     404   {object}  handlers.ErrorResponse
// @Router      /stories/{id}/comments [post]
func (h *Handlers) CreateComment(c *gin.Context) {
	who, okID := requester(c)
	if !okID {
		return
	}
	id, okID := pathID(c, "id", "story")
	if !okID {
		return
	}
	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	cm, err := h.comments.Create(c.Request.Context(), who, id, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, cm)
}

// DeleteComment godoc
// @ID          deleteComment
// @Summary     Delete a comment
// @Description Allowed for the comment's author and for admins.
// @Tags        Comments
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       id  path  string  true  "Comment ID (UUID)"
// @Success     204
// @Failure     403  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /comments/{id} [delete]
func (h *Handlers) DeleteComment(c *gin.Context) {
	who, okID := requester(c)
	if !okID {
		return
	}
	id, okID := pathID(c, "id", "comment")
	if !okID {
		return
	}
	if err := h.comments.Delete(c.Request.Context(), who, id); err != nil {
		writeError(c, err)
		return
	}
	noContent(c)
}

// AdminListComments godoc
// @ID          adminListComments
// @Summary     Moderation list of all comments
// @Tags        Admin
// @Produce     json
// @Param       Authorization  header  string  true  "Bearer token (admin)"
// @Param       page       query  int  false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.AdminCommentsResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /admin/comments [get]
func (h *Handlers) AdminListComments(c *gin.Context) {
	who, okID := requester(c)
	if !okID {
		return
	}
	pg := pageOf(c)
	items, total, err := h.comments.ListAll(c.Request.Context(), who, pg.Number, pg.Size)
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []domain.Comment{}
	}
	ok(c, http.StatusOK, AdminCommentsResponse{Comments: items, Pagination: newPagination(pg, total)})
}
