package user

import (
	"bigfootds/auth-api/internal"
	"bigfootds/auth-api/internal/apperr"
	"bigfootds/auth-api/internal/store"
	"bigfootds/auth-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

func UserUpdate(c *gin.Context, d *internal.Deps) {
	var patch store.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		middleware.Fail(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return
	}

	if patch.Email == nil && patch.Password == nil {
		middleware.Fail(c, apperr.New(apperr.KindValidation, "Nothing to update"))
		return
	}

	sess, err := d.Auth.UpdateUser(c.Request.Context(), c.GetString(middleware.KeyUserID), c.Param("id"), patch)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, sess)
}
