package user

import (
	"bigfootds/auth-api/internal"
	"bigfootds/auth-api/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserVerify redeems the code of a verification link and sends the browser on
// to the frontend
func UserVerify(c *gin.Context, d *internal.Deps) {
	user, err := d.Auth.VerifyEmail(c.Request.Context(), c.Query("token"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	zap.L().Debug("Email verified", zap.String("userID", user.ID), zap.String("requestID", middleware.RequestID(c)))

	c.Redirect(http.StatusFound, d.Config.FrontendURL)
}

// UserResendVerification mails a new verification link to the authenticated user
func UserResendVerification(c *gin.Context, d *internal.Deps) {
	sess := middleware.Session(c)

	if err := d.Auth.ResendVerification(c.Request.Context(), sess.User.ID); err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Verification email sent",
		"tokens":  sess.Tokens,
	})
}
