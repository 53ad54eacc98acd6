package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chatsync/internal/model"
)

// RequestID echoes the caller's X-Request-Id or assigns a fresh one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(model.RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(model.RequestIDHeader, id)
		c.Next()
	}
}
