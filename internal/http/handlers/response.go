package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-story-backend/internal/http/middleware"
)

// ErrorResponse is the body of every non-2xx response. Handlers and
// middleware share one envelope so clients parse a single shape.
//
//	HTTP/1.1 404 Not Found
//	{"request_id": "…", "code": "not_found", "message": "Story not found"}
type ErrorResponse = middleware.ErrorBody

// fail aborts with the error envelope. 5xx responses are logged with the
// request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	middleware.AbortError(c, status, code, msg)
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
