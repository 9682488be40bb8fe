package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON error envelope every non-2xx response carries.
type ErrorBody struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code
	Code string `json:"code" example:"not_found"`
	// Human-readable message, safe to show to users
	Message string `json:"message" example:"Story not found"`
}

// AbortError stops the chain with the error envelope. Server errors are
// logged on the request logger.
func AbortError(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorBody{
		RequestID: RequestIDFrom(c),
		Code:      code,
		Message:   msg,
	})
}
