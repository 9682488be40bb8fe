package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/tbourn/go-story-backend/internal/services"
)

func TestWriteError_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   string
		msg    string
	}{
		{fmt.Errorf("%w: title is required", services.ErrInvalidRequest), http.StatusBadRequest, ErrCodeBadRequest, "Title is required"},
		{fmt.Errorf("story %w", services.ErrNotFound), http.StatusNotFound, ErrCodeNotFound, "Story not found"},
		{fmt.Errorf("%w: cannot analyze private stories", services.ErrForbidden), http.StatusForbidden, ErrCodeForbidden, "Cannot analyze private stories"},
		{services.ErrUnauthenticated, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required"},
		{services.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid username or password"},
		{services.ErrUsernameTaken, http.StatusConflict, ErrCodeConflict, "Username already taken"},
		{services.ErrUpstream, http.StatusInternalServerError, ErrCodeUpstream, msgUpstream},
		{services.ErrNotConfigured, http.StatusInternalServerError, ErrCodeNotConfigured, msgNotConfigured},
		{fmt.Errorf("%w: create ai message: disk full", services.ErrInternal), http.StatusInternalServerError, ErrCodeInternal, msgInternal},
		{errors.New("surprise"), http.StatusInternalServerError, ErrCodeInternal, msgInternal},
	}
	for _, tc := range cases {
		t.Run(tc.code+"/"+tc.msg, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			writeError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			er := decode[ErrorResponse](t, w)
			assert.Equal(t, tc.code, er.Code)
			assert.Equal(t, tc.msg, er.Message)
			assert.True(t, c.IsAborted())
		})
	}
}
