package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"realtime-chat/internal/chat"
	"realtime-chat/internal/middleware"
	"realtime-chat/internal/models"
)

type PresenceService interface {
	Heartbeat(ctx context.Context, caller chat.Identity) error
	OnlineUsers(ctx context.Context) ([]string, error)
	SetTyping(ctx context.Context, caller chat.Identity, conversationID string, isTyping bool) error
	TypingForConversation(ctx context.Context, caller chat.Identity, conversationID string) ([]models.TypingUser, error)
}

// PresenceHandler serves liveness signals: heartbeats and typing.
type PresenceHandler struct {
	presence PresenceService
}

func NewPresenceHandler(presence PresenceService) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

func (h *PresenceHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/presence/heartbeat", h.Heartbeat)
	rg.GET("/presence/online", h.OnlineUsers)
	rg.PUT("/conversations/:conversation_id/typing", h.SetTyping)
	rg.GET("/conversations/:conversation_id/typing", h.TypingForConversation)
}

func (h *PresenceHandler) Heartbeat(c *gin.Context) {
	if err := h.presence.Heartbeat(c.Request.Context(), middleware.IdentityFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PresenceHandler) OnlineUsers(c *gin.Context) {
	ids, err := h.presence.OnlineUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_ids": nonNil(ids)})
}

func (h *PresenceHandler) SetTyping(c *gin.Context) {
	var req struct {
		IsTyping *bool `json:"is_typing"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if req.IsTyping == nil {
		respondBadRequest(c, errors.New("is_typing is required"))
		return
	}

	err := h.presence.SetTyping(c.Request.Context(), middleware.IdentityFrom(c), c.Param("conversation_id"), *req.IsTyping)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PresenceHandler) TypingForConversation(c *gin.Context) {
	users, err := h.presence.TypingForConversation(c.Request.Context(), middleware.IdentityFrom(c), c.Param("conversation_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": nonNil(users)})
}
