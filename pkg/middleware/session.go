package middleware

import (
	"bigfootds/auth-api/internal/apperr"
	"bigfootds/auth-api/internal/auth"
	"bigfootds/auth-api/pkg/security"
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

// Authenticator resolves credentials into a session
type Authenticator interface {
	Authenticate(ctx context.Context, strategy auth.Strategy, creds auth.Credentials) (*auth.Session, error)
}

// BearerToken returns the token of an "Authorization: Bearer" header
func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")

	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

// NewSessionMiddleware lets a request through only with a valid session token
// of class. The token is read from the Authorization header, or from the jwt
// query parameter with auth.StrategySessionParam. The refreshed session ends up
// under KeySession and its user ID under KeyUserID.
func NewSessionMiddleware(a Authenticator, strategy auth.Strategy, class security.TokenClass) gin.HandlerFunc {
	var token func(c *gin.Context) string

	switch strategy {
	case auth.StrategySessionHeader:
		token = BearerToken
	case auth.StrategySessionParam:
		token = func(c *gin.Context) string { return c.Query("jwt") }
	default:
		panic("session middleware can't be used with " + strategy.String())
	}

	return func(c *gin.Context) {
		creds := auth.Credentials{
			Token: token(c),
			Class: class,
		}

		if creds.Token == "" {
			Fail(c, apperr.ErrInvalidToken)
			return
		}

		sess, err := a.Authenticate(c.Request.Context(), strategy, creds)
		if err != nil {
			Fail(c, err)
			return
		}

		c.Set(KeySession, sess)
		c.Set(KeyUserID, sess.User.ID)
		c.Next()
	}
}

// Session returns the session stored by NewSessionMiddleware
func Session(c *gin.Context) *auth.Session {
	return c.MustGet(KeySession).(*auth.Session)
}
