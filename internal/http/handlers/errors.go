// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP responses
// (via the `fail()` helper in this package) and the mapping from service errors to
// those codes. Clients branch on the code; the message is for humans.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "forbidden",
//	  "message": "Cannot analyze private stories"
//	}
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-story-backend/internal/http/middleware"
	"github.com/tbourn/go-story-backend/internal/services"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeUpstream         = "upstream_error"
	ErrCodeNotConfigured    = "not_configured"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// Messages for 5xx responses. Server-side detail stays in the logs.
const (
	msgUpstream      = "Error generating AI response"
	msgNotConfigured = "OpenAI API key not configured"
	msgInternal      = "Internal server error"
)

// writeError maps a service error onto the error envelope.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, clientMessage(err, services.ErrInvalidRequest))
	case errors.Is(err, services.ErrUnauthenticated):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, clientMessage(err, services.ErrUnauthenticated))
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, clientMessage(err, services.ErrInvalidCredentials))
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, clientMessage(err, services.ErrForbidden))
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, clientMessage(err, services.ErrNotFound))
	case errors.Is(err, services.ErrUsernameTaken):
		fail(c, http.StatusConflict, ErrCodeConflict, clientMessage(err, services.ErrUsernameTaken))
	case errors.Is(err, services.ErrUpstream):
		fail(c, http.StatusInternalServerError, ErrCodeUpstream, msgUpstream)
	case errors.Is(err, services.ErrNotConfigured):
		fail(c, http.StatusInternalServerError, ErrCodeNotConfigured, msgNotConfigured)
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("service error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, msgInternal)
	}
}

// clientMessage turns "invalid request: title is required" into
// "Title is required". Errors shaped "story not found" keep their wording.
func clientMessage(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
