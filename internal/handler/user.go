package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chatsync/internal/middleware"
	"chatsync/internal/store"
)

type UserHandler struct {
	Store  *store.Store
	Logger zerolog.Logger
}

type userView struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Online    bool   `json:"online"`
}

func userViewOf(u store.User) userView {
	return userView{ID: u.ID, Username: u.Username, Nickname: u.DisplayName(), AvatarURL: u.AvatarURL, Online: u.Online}
}

// Search finds users to start a direct chat with or add to a group.
func (h *UserHandler) Search(c *gin.Context) {
	rows, err := h.Store.SearchUsers(c.Request.Context(), c.Query("q"), 20)
	if err != nil {
		h.Logger.Error().Err(err).Msg("search users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	out := make([]userView, 0, len(rows))
	for _, u := range rows {
		out = append(out, userViewOf(u))
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := middleware.ParseUserID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	u, err := h.Store.UserByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		h.Logger.Error().Err(err).Msg("get user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, userViewOf(u))
}
