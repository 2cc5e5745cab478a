package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"devicelab/internal/pkg/apperr"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// FromError maps the apperr taxonomy onto HTTP statuses. Anything not in
// the taxonomy is reported as a 500 without leaking the detail.
func FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		Error(c, http.StatusBadRequest, "VALIDATION", err.Error())
	case errors.Is(err, apperr.ErrAuth):
		Error(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	case errors.Is(err, apperr.ErrPermission):
		Error(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, apperr.ErrState):
		Error(c, http.StatusConflict, "ILLEGAL_STATE", err.Error())
	case errors.Is(err, apperr.ErrConflict):
		Error(c, http.StatusConflict, "SLOT_TAKEN", err.Error())
	case errors.Is(err, apperr.ErrPersistence):
		Error(c, http.StatusServiceUnavailable, "STORAGE", "storage temporarily unavailable")
	default:
		Error(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
