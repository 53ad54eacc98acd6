package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chatsync/internal/middleware"
	"chatsync/internal/model"
	"chatsync/internal/store"
)

type MessageHandler struct {
	Store  *store.Store
	Logger zerolog.Logger
}

// List serves the chat list, a direct history (?user_id=) or a group
// history (?group_id=).
func (h *MessageHandler) List(c *gin.Context) {
	self, _ := middleware.UserIDFromContext(c)
	ctx := c.Request.Context()
	rawUser, rawGroup := c.Query("user_id"), c.Query("group_id")

	switch {
	case rawUser != "" && rawGroup != "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "Specify user_id or group_id, not both"})

	case rawUser != "":
		peer, ok := middleware.ParseUserID(rawUser)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
			return
		}
		rows, err := h.Store.DirectHistory(ctx, self, peer)
		if err != nil {
			h.internal(c, err, "direct history")
			return
		}
		out := make([]model.Message, 0, len(rows))
		for _, m := range rows {
			out = append(out, messageOf(m))
		}
		c.JSON(http.StatusOK, gin.H{"messages": out})

	case rawGroup != "":
		groupID, ok := middleware.ParseUserID(rawGroup)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group_id"})
			return
		}
		rows, err := h.Store.GroupHistory(ctx, self, groupID)
		if errors.Is(err, store.ErrNotMember) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this group"})
			return
		}
		if err != nil {
			h.internal(c, err, "group history")
			return
		}
		out := make([]model.Message, 0, len(rows))
		for _, m := range rows {
			out = append(out, groupMessageOf(m))
		}
		c.JSON(http.StatusOK, gin.H{"messages": out})

	default:
		rows, err := h.Store.ChatSummaries(ctx, self)
		if err != nil {
			h.internal(c, err, "chat summaries")
			return
		}
		out := make([]model.ConversationSummary, 0, len(rows))
		for _, cs := range rows {
			out = append(out, chatOf(cs))
		}
		c.JSON(http.StatusOK, gin.H{"chats": out})
	}
}

type sendBody struct {
	ReceiverID  int64  `json:"receiver_id"`
	GroupID     int64  `json:"group_id"`
	MessageText string `json:"message_text"`
}

func (h *MessageHandler) Send(c *gin.Context) {
	self, _ := middleware.UserIDFromContext(c)
	var body sendBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if (body.ReceiverID > 0) == (body.GroupID > 0) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Specify exactly one of receiver_id or group_id"})
		return
	}
	if strings.TrimSpace(body.MessageText) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message_text is required"})
		return
	}

	ctx := c.Request.Context()
	if body.ReceiverID > 0 {
		m, err := h.Store.CreateDirectMessage(ctx, self, body.ReceiverID, body.MessageText)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if err != nil {
			h.internal(c, err, "send direct")
			return
		}
		c.JSON(http.StatusOK, messageOf(m))
		return
	}

	m, err := h.Store.CreateGroupMessage(ctx, self, body.GroupID, body.MessageText)
	if errors.Is(err, store.ErrNotMember) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this group"})
		return
	}
	if err != nil {
		h.internal(c, err, "send group")
		return
	}
	c.JSON(http.StatusOK, groupMessageOf(m))
}

func (h *MessageHandler) internal(c *gin.Context, err error, op string) {
	h.Logger.Error().Err(err).Str("op", op).Msg("messages")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
