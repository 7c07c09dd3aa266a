// Package middleware contains any custom middleware used in the app
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Keys of the values middleware stores on the gin context
const (
	KeyRequestID = "requestID"
	KeyUserID    = "userID"
	KeySession   = "session"
)

const requestIDHeader = "X-Request-ID"

// NewRequestIDMiddleware returns a new middleware function that generates a request ID for
// each incoming request, sets it as requestID and echoes it in a response header
func NewRequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()

		c.Set(KeyRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestID returns the ID of the current request or an empty string outside
// of NewRequestIDMiddleware
func RequestID(c *gin.Context) string {
	return c.GetString(KeyRequestID)
}
