package httpd

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader is the header carrying the correlation ID for a
// request, accepted from an upstream caller or generated here.
const RequestIDHeader = "X-Request-ID"

// requestIDKey is the gin context key the generated or forwarded
// request ID is stored under.
const requestIDKey = "request_id"

// requestIDMiddleware assigns every request a correlation ID, preferring
// one forwarded by an upstream caller, so the upgrade handshake and the
// connection it admits can be traced through the logs by a single ID.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// requestID returns the correlation ID assigned to c by
// requestIDMiddleware.
func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
