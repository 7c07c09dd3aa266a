package middleware

import (
	"bigfootds/auth-api/internal/apperr"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Fail aborts the request with the status and message err maps to. Internal
// errors are logged and never shown to the client.
func Fail(c *gin.Context, err error) {
	requestID := RequestID(c)
	status := apperr.StatusCode(err)

	if status >= http.StatusInternalServerError {
		zap.L().Error("Request failed", zap.Error(err), zap.String("requestID", requestID))
	} else {
		zap.L().Debug("Request rejected", zap.Error(err), zap.String("requestID", requestID))
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":     apperr.Message(err),
		"requestID": requestID,
	})
}

// NewRecoveryMiddleware turns panics into the same generic 500 every other
// internal error gets
func NewRecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		zap.L().Error("Recovered from panic", zap.Any("panic", recovered), zap.String("requestID", RequestID(c)), zap.Stack("stack"))

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     apperr.Message(nil),
			"requestID": RequestID(c),
		})
	})
}
