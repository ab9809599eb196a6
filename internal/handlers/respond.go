package handlers

import (
	"net/http"

	"github.com/burnoutcheck/backend/internal/apperr"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindPreconditionFailed:
		return http.StatusForbidden
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindExpired:
		return http.StatusGone
	case apperr.KindValidationFailed:
		return http.StatusBadRequest
	case apperr.KindUpstreamFailure:
		return http.StatusBadGateway
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body. Causes are logged, never returned.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   kind.String(),
		"message": apperr.PublicMessage(err),
	})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   apperr.KindValidationFailed.String(),
		"message": message,
	})
}
