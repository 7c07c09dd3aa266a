// Package oauth contains the endpoints used to link OAuth provider profiles
package oauth

import (
	"bigfootds/auth-api/internal"
	"bigfootds/auth-api/internal/apperr"
	"bigfootds/auth-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProviderList returns the names of the configured providers
func ProviderList(c *gin.Context, d *internal.Deps) {
	c.JSON(http.StatusOK, gin.H{
		"providers": d.Providers.Names(),
	})
}

// Redirect sends the authenticated user to the provider's consent page
func Redirect(c *gin.Context, d *internal.Deps) {
	url, err := d.Auth.OAuthURL(c.Param("provider"), middleware.Session(c))
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.Redirect(http.StatusFound, url)
}

// Callback is where the provider sends the user back to
func Callback(c *gin.Context, d *internal.Deps) {
	if e := c.Query("error"); e != "" {
		zap.L().Debug("OAuth authorization denied", zap.String("error", e), zap.String("requestID", middleware.RequestID(c)))
		middleware.Fail(c, apperr.New(apperr.KindAuthentication, "Authorization was denied by the provider"))
		return
	}

	sess, err := d.Auth.CompleteOAuth(c.Request.Context(), c.Param("provider"), c.Query("code"), c.Query("state"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.Set(middleware.KeyUserID, sess.User.ID)
	c.JSON(http.StatusOK, sess)
}
