package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"realtime-chat/internal/observability"
)

const RequestIDContextKey = "request_id"

// RequestID reuses the inbound X-Request-Id or generates one, echoes it
// back and threads it through the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := observability.RequestIDFromRequest(c.Request)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDContextKey, requestID)
		c.Header(observability.RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(observability.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}
