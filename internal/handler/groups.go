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

type GroupHandler struct {
	Store  *store.Store
	Logger zerolog.Logger
}

func (h *GroupHandler) List(c *gin.Context) {
	self, _ := middleware.UserIDFromContext(c)
	rows, err := h.Store.Groups(c.Request.Context(), self)
	if err != nil {
		h.Logger.Error().Err(err).Msg("list groups")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	out := make([]model.ConversationSummary, 0, len(rows))
	for _, g := range rows {
		out = append(out, groupOf(g))
	}
	c.JSON(http.StatusOK, gin.H{"groups": out})
}

type groupBody struct {
	Action      string `json:"action"`
	Name        string `json:"name"`
	Description string `json:"description"`
	GroupID     int64  `json:"group_id"`
	MemberID    int64  `json:"member_id"`
}

func (h *GroupHandler) Post(c *gin.Context) {
	self, _ := middleware.UserIDFromContext(c)
	var body groupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ctx := c.Request.Context()

	switch body.Action {
	case "create":
		name := strings.TrimSpace(body.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Group name is required"})
			return
		}
		g, err := h.Store.CreateGroup(ctx, self, name, strings.TrimSpace(body.Description))
		if err != nil {
			h.Logger.Error().Err(err).Msg("create group")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		h.Logger.Info().Int64("group_id", g.ID).Int64("creator_id", self).Msg("group created")
		c.JSON(http.StatusOK, groupOf(g))

	case "add_member":
		if body.GroupID <= 0 || body.MemberID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "group_id and member_id are required"})
			return
		}
		member, err := h.Store.IsMember(ctx, body.GroupID, self)
		if err == nil && !member {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this group"})
			return
		}
		if err == nil {
			err = h.Store.AddMember(ctx, body.GroupID, body.MemberID)
		}
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Group or user not found"})
			return
		}
		if err != nil {
			h.Logger.Error().Err(err).Msg("add member")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action"})
	}
}
