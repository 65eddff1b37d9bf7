package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Chative-medical-agent/server/internal/chat"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID reuses the caller's X-Request-ID or mints one, echoes it back and
// threads it into the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(chat.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}
