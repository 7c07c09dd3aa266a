// Package tv contains the endpoints of the TV login flow
package tv

import (
	"bigfootds/auth-api/internal"
	"bigfootds/auth-api/internal/auth"
	"bigfootds/auth-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

// IssueCode creates a code the authenticated user can type on a TV
func IssueCode(c *gin.Context, d *internal.Deps) {
	sess := middleware.Session(c)

	token, err := d.Auth.IssueTVCode(c.Request.Context(), sess.User.ID)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":      token.Code,
		"expiresAt": token.ExpiresAt,
		"tokens":    sess.Tokens,
	})
}

// RedeemCode logs the TV in with a code issued on another device
func RedeemCode(c *gin.Context, d *internal.Deps) {
	sess, err := d.Auth.Authenticate(c.Request.Context(), auth.StrategyTVCode, auth.Credentials{
		Code: c.Param("code"),
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.Set(middleware.KeyUserID, sess.User.ID)
	c.JSON(http.StatusOK, sess)
}
