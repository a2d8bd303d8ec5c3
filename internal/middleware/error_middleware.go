package middleware

import (
	"errors"
	"net/http"

	"intake-chat/internal/transport/httpdto"
	intake_errors "intake-chat/pkg/errors"
	"intake-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.Errorf("request error: %s", err.Error())
		}

		status, code := StatusForError(err)
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), code))
	}
}

// StatusForError maps sentinel errors onto HTTP status codes. Handlers use
// it directly; the middleware catches anything pushed through c.Error.
func StatusForError(err error) (int, string) {
	switch {
	case errors.Is(err, intake_errors.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, intake_errors.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, intake_errors.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, intake_errors.ErrAlreadyExists), errors.Is(err, intake_errors.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, intake_errors.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION"
	case errors.Is(err, intake_errors.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "TOO_LARGE"
	case errors.Is(err, intake_errors.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, intake_errors.ErrConversationClosed):
		return http.StatusConflict, "CONVERSATION_CLOSED"
	case errors.Is(err, intake_errors.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
