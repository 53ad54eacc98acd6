package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chatsync/internal/auth"
	"chatsync/internal/middleware"
	"chatsync/internal/model"
	"chatsync/internal/store"
)

type AuthHandler struct {
	Store       *store.Store
	TokenConfig auth.TokenConfig
	// Limiter throttles login and register per client IP.
	Limiter *middleware.RateLimiter
	Logger  zerolog.Logger
}

type authBody struct {
	Action    string `json:"action"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Nickname  string `json:"nickname"`
	UserID    int64  `json:"user_id"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

func (h *AuthHandler) Handle(c *gin.Context) {
	var body authBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	switch body.Action {
	case "register":
		h.register(c, body)
	case "login":
		h.login(c, body)
	case "update_profile":
		h.updateProfile(c, body)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action"})
	}
}

func (h *AuthHandler) register(c *gin.Context, body authBody) {
	if h.Limiter.Deny(c, c.ClientIP()) {
		return
	}
	if strings.TrimSpace(body.Username) == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		h.Logger.Error().Err(err).Msg("hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}
	u, err := h.Store.CreateUser(c.Request.Context(), body.Username, hash, strings.TrimSpace(body.Nickname))
	if errors.Is(err, store.ErrUsernameTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
		return
	}
	if err != nil {
		h.Logger.Error().Err(err).Msg("create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	h.Logger.Info().Int64("user_id", u.ID).Str("username", u.Username).Msg("user registered")
	h.respond(c, u)
}

func (h *AuthHandler) login(c *gin.Context, body authBody) {
	if h.Limiter.Deny(c, c.ClientIP()) {
		return
	}
	if strings.TrimSpace(body.Username) == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	ctx := c.Request.Context()
	u, err := h.Store.UserByUsername(ctx, body.Username)
	if err == nil {
		err = auth.CheckPassword(u.PasswordHash, body.Password)
	}
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, auth.ErrPasswordMismatch) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		h.Logger.Error().Err(err).Msg("login lookup")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	if err := h.Store.SetOnline(ctx, u.ID, true); err != nil {
		h.Logger.Warn().Err(err).Int64("user_id", u.ID).Msg("mark online")
	}
	h.respond(c, u)
}

func (h *AuthHandler) updateProfile(c *gin.Context, body authBody) {
	id := body.UserID
	caller, hasCaller := middleware.ParseUserID(c.GetHeader(model.UserIDHeader))
	if id > 0 && hasCaller && caller != id {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if id <= 0 {
		id = caller
	}
	if id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	if h.TokenConfig.Enabled() && !middleware.BearerMatches(c, h.TokenConfig, id) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	u, err := h.Store.UpdateProfile(c.Request.Context(), id, strings.TrimSpace(body.Nickname), body.Bio, strings.TrimSpace(body.AvatarURL))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		h.Logger.Error().Err(err).Int64("user_id", id).Msg("update profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Profile update failed"})
		return
	}
	h.respond(c, u)
}

// respond writes the session, issuing a token when tokens are enabled.
func (h *AuthHandler) respond(c *gin.Context, u store.User) {
	var token string
	if h.TokenConfig.Enabled() {
		var err error
		token, err = auth.CreateToken(u.ID, h.TokenConfig)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Token creation failed"})
			return
		}
	}
	c.JSON(http.StatusOK, sessionOf(u, token))
}
