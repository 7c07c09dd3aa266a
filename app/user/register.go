package user

import (
	"bigfootds/auth-api/internal"
	"bigfootds/auth-api/internal/apperr"
	"bigfootds/auth-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

type credentialsBody struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func bindCredentials(c *gin.Context) (credentialsBody, bool) {
	var data credentialsBody
	if err := c.ShouldBindJSON(&data); err != nil {
		middleware.Fail(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return data, false
	}

	return data, true
}

// UserRegister creates an account and sends its verification email
func UserRegister(c *gin.Context, d *internal.Deps) {
	data, ok := bindCredentials(c)
	if !ok {
		return
	}

	sess, err := d.Auth.Signup(c.Request.Context(), data.Email, data.Password)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, sess)
}
