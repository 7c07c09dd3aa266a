package user

import (
	"bigfootds/auth-api/internal"
	"bigfootds/auth-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func UserDelete(c *gin.Context, d *internal.Deps) {
	user, err := d.Auth.DeleteUser(c.Request.Context(), c.GetString(middleware.KeyUserID), c.Param("id"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	zap.L().Info("User deleted their account", zap.String("userID", user.ID), zap.String("requestID", middleware.RequestID(c)))

	c.JSON(http.StatusOK, gin.H{
		"user": user,
	})
}
