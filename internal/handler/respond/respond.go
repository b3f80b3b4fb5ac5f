// Package respond writes the JSON error envelope and maps service errors to
// HTTP statuses.
package respond

import (
	"errors"
	"net/http"

	"cloud-storage/internal/apperr"
	"cloud-storage/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.AbortWithStatusJSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// FromError writes the response for err. Unknown errors are logged and
// reported without detail.
func FromError(c *gin.Context, err error) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input.", ve.Fields)
	case errors.Is(err, apperr.ErrUnauthorized):
		Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials.")
	case errors.Is(err, apperr.ErrForbidden):
		Error(c, http.StatusForbidden, "FORBIDDEN", "You do not have permission to perform this action.")
	case errors.Is(err, apperr.ErrNotFound):
		Error(c, http.StatusNotFound, "NOT_FOUND", "Not found.")
	case errors.Is(err, apperr.ErrConflict):
		Error(c, http.StatusConflict, "CONFLICT", "The request conflicts with the current state of the file.")
	case errors.Is(err, apperr.ErrStorageUnavailable):
		logger.GetLogger(c.Request.Context()).Error("storage unavailable", zap.Error(err))
		Error(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "File storage is temporarily unavailable.")
	default:
		logger.GetLogger(c.Request.Context()).Error("unhandled error", zap.Error(err))
		Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error.")
	}
}
