// AI assistant HTTP handlers.
//
//   - POST /ai-assistant              (analyze a story passage)
//   - GET  /ai-assistant?story_id=    (list a story's conversations, ETag support)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-story-backend/internal/http/middleware"
	"github.com/tbourn/go-story-backend/internal/services"
)

// AnalyzeRequest is the JSON payload for an analysis.
type AnalyzeRequest struct {
	StoryID string `json:"story_id" example:"2b1c3c1e-4b7a-4d67-9a53-1c1c1f0b9e7d"`
	// Content is the passage to analyze.
	Content string `json:"content" example:"The ship drifted past the last beacon."`
	// PromptType is grammar, structure or custom.
	PromptType string `json:"prompt_type" example:"grammar"`
	// CustomPrompt is required when PromptType is custom.
	CustomPrompt string `json:"custom_prompt,omitempty"`
	// ConversationID continues an existing conversation of the same story.
	ConversationID string `json:"conversation_id,omitempty"`
}

// ListConversationsResponse wraps a story's conversations.
type ListConversationsResponse struct {
	Conversations []services.ConversationSummary `json:"conversations"`
}

// Analyze godoc
// @ID          analyzeStory
// @Summary     Analyze a story passage
// @Description Runs a grammar, structure or custom analysis of a public story's passage and records it in a conversation. Honours Idempotency-Key: a repeated key for the same caller and story replays the recorded answer.
// @Tags        Assistant
// @Accept      json
// @Produce     json
//
// @Param       Authorization    header  string  false "Bearer token"
// @Param       Idempotency-Key  header  string  false "Idempotency key"
// @Param       body             body    handlers.AnalyzeRequest  true  "Analysis request"
//
// @Success     200  {object}  services.AnalyzeResult
// @Header      200  {string}  Idempotency-Replayed  "true when the answer was replayed"
// @Failure     400  {object}  handlers.ErrorResponse  "Missing or invalid fields"
// @Failure     403  {object}  handlers.ErrorResponse  "Story is private"
// @Failure     404  {object}  handlers.ErrorResponse  "Story or conversation not found"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Provider failure or not configured"
// @Router      /ai-assistant [post]
func (h *Handlers) Analyze(c *gin.Context) {
	if !h.assistant.Configured() {
		fail(c, http.StatusInternalServerError, ErrCodeNotConfigured, msgNotConfigured)
		return
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	ctx := c.Request.Context()
	storyID := strings.TrimSpace(req.StoryID)

	// Keys are scoped exactly as the idempotency middleware scoped them.
	key, hasKey := middleware.GetIdempotencyKey(c)
	subject := middleware.GetIdempotencySubject(c)
	scope := middleware.GetIdempotencyScope(c)
	useKey := hasKey && h.idem != nil && scope != ""
	if useKey {
		msgID, found, err := h.idem.Lookup(ctx, subject, scope, key)
		if err != nil {
			writeError(c, err)
			return
		}
		if !found && middleware.IsReplay(c) {
			middleware.LoggerFrom(c).Debug().Msg("idempotency key expired between lookups")
		}
		if found {
			res, err := h.assistant.Replay(ctx, msgID)
			if err != nil {
				writeError(c, err)
				return
			}
			c.Header(middleware.HeaderIdempotencyReplayed, "true")
			ok(c, http.StatusOK, res)
			return
		}
	}

	res, err := h.assistant.Analyze(ctx, services.AnalyzeInput{
		StoryID:        storyID,
		Content:        req.Content,
		PromptType:     req.PromptType,
		CustomPrompt:   req.CustomPrompt,
		ConversationID: strings.TrimSpace(req.ConversationID),
		Requester:      middleware.IdentityFrom(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if useKey {
		if err := h.idem.Record(ctx, subject, scope, key, res.Message.ID); err != nil {
			// The answer is already durable; a lost key only costs a re-run.
			middleware.LoggerFrom(c).Warn().Err(err).Msg("record idempotency key")
		}
	}
	ok(c, http.StatusOK, res)
}

// ListConversations godoc
// @ID          listConversations
// @Summary     List a story's assistant conversations
// @Description Returns every conversation of the story, most recently updated first, each with its messages and a one-line summary. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Assistant
// @Produce     json
//
// @Param       story_id       query   string  true  "Story ID"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {object} handlers.ListConversationsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Missing story_id parameter"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /ai-assistant [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()
	storyID := strings.TrimSpace(c.Query("story_id"))
	if storyID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Missing story_id parameter")
		return
	}

	// ETag pre-check (best effort).
	if count, latest, err := h.assistant.Stats(ctx, storyID); err == nil {
		if notModified(c, "conversations", storyID, count, latest) {
			return
		}
	}

	items, err := h.assistant.ListConversations(ctx, storyID)
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []services.ConversationSummary{}
	}
	ok(c, http.StatusOK, ListConversationsResponse{Conversations: items})
}
