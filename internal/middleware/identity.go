package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"chatsync/internal/auth"
	"chatsync/internal/model"
)

const (
	userIDContextKey  = "userID"
	unauthorizedError = "Unauthorized"
)

func UserIDFromContext(c *gin.Context) (int64, bool) {
	v, ok := c.Get(userIDContextKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}

// ParseUserID reads a positive numeric user id.
func ParseUserID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// RequireUser identifies the caller by the X-User-Id header. When cfg has a
// secret, a bearer token whose subject matches the header is also required.
func RequireUser(cfg auth.TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ParseUserID(c.GetHeader(model.UserIDHeader))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": unauthorizedError})
			return
		}
		if cfg.Enabled() && !BearerMatches(c, cfg, id) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": unauthorizedError})
			return
		}
		c.Set(userIDContextKey, id)
		c.Next()
	}
}

// BearerMatches verifies the Authorization header and compares its subject to userID.
func BearerMatches(c *gin.Context, cfg auth.TokenConfig, userID int64) bool {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return false
	}
	claims, err := auth.VerifyToken(parts[1], cfg)
	if err != nil {
		return false
	}
	sub, err := claims.UserID()
	return err == nil && sub == userID
}
