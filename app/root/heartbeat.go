// Package root contains endpoints that aren't tied to an account
package root

import (
	"bigfootds/auth-api/internal"
	"bigfootds/auth-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Heartbeat answers 200 while the database is reachable and 503 otherwise
func Heartbeat(c *gin.Context, d *internal.Deps) {
	sqlDB, err := d.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}

	if err != nil {
		zap.L().Error("Heartbeat failed to reach the database", zap.Error(err), zap.String("requestID", middleware.RequestID(c)))
		c.Status(http.StatusServiceUnavailable)
		return
	}

	c.Status(http.StatusOK)
}
