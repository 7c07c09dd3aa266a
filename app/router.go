// Package app contains all endpoints available
package app

import (
	"bigfootds/auth-api/app/oauth"
	"bigfootds/auth-api/app/root"
	"bigfootds/auth-api/app/tv"
	"bigfootds/auth-api/app/user"
	"bigfootds/auth-api/internal"
	"bigfootds/auth-api/internal/auth"
	"bigfootds/auth-api/pkg/middleware"
	"bigfootds/auth-api/pkg/security"
	"context"
	"net/http"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var store = persist.NewMemoryStore(time.Minute)

// NewRouter builds the gin engine serving every endpoint. Background work
// started for the router stops when ctx is done.
func NewRouter(ctx context.Context, d *internal.Deps) *gin.Engine {
	router := gin.New()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     d.Config.Host.CORS,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.NewRequestIDMiddleware(),
		middleware.NewRecoveryMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == http.MethodHead
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString(middleware.KeyRequestID); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString(middleware.KeyUserID); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	rateLimiter := middleware.RateLimiterMiddleware(ctx, middleware.RateLimiterConfig{
		RequestsPerSecond: d.Config.RateLimit,
		Burst:             d.Config.RateLimit * 2,
	})

	long := middleware.NewSessionMiddleware(d.Auth, auth.StrategySessionHeader, security.ClassLong)
	short := middleware.NewSessionMiddleware(d.Auth, auth.StrategySessionHeader, security.ClassShort)
	shortParam := middleware.NewSessionMiddleware(d.Auth, auth.StrategySessionParam, security.ClassShort)

	m := router.Group("/api", rateLimiter)
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", func(c *gin.Context) { root.Heartbeat(c, d) })

		// GET /api/providers		-> Lists the OAuth providers accounts can be linked with
		m.GET("/providers", cacheFor(5*60), func(c *gin.Context) { oauth.ProviderList(c, d) })
	}

	u := m.Group("/users", middleware.BodySizeLimiter(1<<20))
	{
		// POST /api/users 		-> Registers a new user
		u.POST("", func(c *gin.Context) { user.UserRegister(c, d) })

		// POST /api/users/login 	-> Logs in a user and returns a token pair
		u.POST("/login", func(c *gin.Context) { user.UserLogin(c, d) })

		// GET /api/users/me		-> Returns the user of a long token with fresh tokens
		u.GET("/me", long, user.UserFetch)

		// GET /api/users/me/short	-> Same for a short token
		u.GET("/me/short", short, user.UserFetch)

		// GET /api/users/verify	-> Verifies an email address and redirects to the frontend
		u.GET("/verify", func(c *gin.Context) { user.UserVerify(c, d) })

		// POST /api/users/verify/resend	-> Sends a new verification email
		u.POST("/verify/resend", short, func(c *gin.Context) { user.UserResendVerification(c, d) })

		// PATCH /api/users/:id		-> Updates the email or password of a user
		u.PATCH("/:id", short, func(c *gin.Context) { user.UserUpdate(c, d) })

		// DELETE /api/users/:id 	-> Deletes a user account
		u.DELETE("/:id", short, func(c *gin.Context) { user.UserDelete(c, d) })
	}

	t := m.Group("/tv")
	{
		// GET /api/tv/code		-> Issues a TV login code for the authenticated user
		t.GET("/code", short, func(c *gin.Context) { tv.IssueCode(c, d) })

		// GET /api/tv/code/:code	-> Logs a TV in with a code
		t.GET("/code/:code", func(c *gin.Context) { tv.RedeemCode(c, d) })
	}

	o := m.Group("/oauth")
	{
		// GET /api/oauth/:provider	-> Redirects to the provider, jwt query holds a short token
		o.GET("/:provider", shortParam, func(c *gin.Context) { oauth.Redirect(c, d) })

		// GET /api/oauth/:provider/redirect	-> Provider callback, links the profile
		o.GET("/:provider/redirect", func(c *gin.Context) { oauth.Callback(c, d) })
	}

	return router
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
