package user

import (
	"bigfootds/auth-api/internal"
	"bigfootds/auth-api/internal/auth"
	"bigfootds/auth-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

func UserLogin(c *gin.Context, d *internal.Deps) {
	data, ok := bindCredentials(c)
	if !ok {
		return
	}

	sess, err := d.Auth.Authenticate(c.Request.Context(), auth.StrategyPassword, auth.Credentials{
		Email:    data.Email,
		Password: data.Password,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.Set(middleware.KeyUserID, sess.User.ID)
	c.JSON(http.StatusOK, sess)
}
