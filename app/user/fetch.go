package user

import (
	"bigfootds/auth-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserFetch returns the authenticated user with a fresh token pair
func UserFetch(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.Session(c))
}
