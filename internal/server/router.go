package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chatsync/internal/auth"
	"chatsync/internal/handler"
	"chatsync/internal/logging"
	"chatsync/internal/middleware"
	"chatsync/internal/store"
)

type Deps struct {
	Store       *store.Store
	TokenConfig auth.TokenConfig
	Logger      zerolog.Logger
	// AuthLimiter throttles login and register. Nil disables throttling.
	AuthLimiter *middleware.RateLimiter
	Version     string
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(logging.GinLogger(deps.Logger))
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := deps.Store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	versionHandler := &handler.VersionHandler{Version: deps.Version}
	r.GET("/version", versionHandler.Check)

	authHandler := &handler.AuthHandler{
		Store:       deps.Store,
		TokenConfig: deps.TokenConfig,
		Limiter:     deps.AuthLimiter,
		Logger:      deps.Logger,
	}
	r.POST("/auth", authHandler.Handle)

	protected := r.Group("")
	protected.Use(middleware.RequireUser(deps.TokenConfig))

	messageHandler := &handler.MessageHandler{Store: deps.Store, Logger: deps.Logger}
	protected.GET("/messages", messageHandler.List)
	protected.POST("/messages", messageHandler.Send)

	groupHandler := &handler.GroupHandler{Store: deps.Store, Logger: deps.Logger}
	protected.GET("/groups", groupHandler.List)
	protected.POST("/groups", groupHandler.Post)

	userHandler := &handler.UserHandler{Store: deps.Store, Logger: deps.Logger}
	protected.GET("/users", userHandler.Search)
	protected.GET("/users/:id", userHandler.Get)

	return r
}
