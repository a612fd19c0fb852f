package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"realtime-chat/internal/chat"
	"realtime-chat/internal/middleware"
	"realtime-chat/internal/models"
	"realtime-chat/internal/telemetry"
)

type MessageService interface {
	ListMessages(ctx context.Context, caller chat.Identity, conversationID string) ([]models.MessageView, error)
	SendMessage(ctx context.Context, caller chat.Identity, in chat.SendMessageInput) (string, error)
	SoftDeleteMessage(ctx context.Context, caller chat.Identity, messageID string) error
	ToggleReaction(ctx context.Context, caller chat.Identity, messageID, emoji string) (bool, error)
	MarkConversationRead(ctx context.Context, caller chat.Identity, conversationID string) error
}

// MessageHandler serves conversation messages, reactions and read markers.
type MessageHandler struct {
	messages MessageService
	auditor
}

func NewMessageHandler(messages MessageService, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{messages: messages, auditor: auditor{audit: audit}}
}

func (h *MessageHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/conversations/:conversation_id/messages", h.ListMessages)
	rg.POST("/conversations/:conversation_id/messages", h.SendMessage)
	rg.POST("/conversations/:conversation_id/read", h.MarkRead)
	rg.DELETE("/messages/:message_id", h.SoftDeleteMessage)
	rg.POST("/messages/:message_id/reactions", h.ToggleReaction)
}

// ListMessages handles GET /conversations/:conversation_id/messages.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	views, err := h.messages.ListMessages(c.Request.Context(), middleware.IdentityFrom(c), c.Param("conversation_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": nonNil(views)})
}

// SendMessage handles POST /conversations/:conversation_id/messages.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req struct {
		Text      string  `json:"text"`
		ReplyToID *string `json:"reply_to_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if req.ReplyToID != nil && *req.ReplyToID == "" {
		req.ReplyToID = nil
	}

	id, err := h.messages.SendMessage(c.Request.Context(), middleware.IdentityFrom(c), chat.SendMessageInput{
		ConversationID: c.Param("conversation_id"),
		Text:           req.Text,
		ReplyToID:      req.ReplyToID,
	})
	if err != nil {
		if errors.Is(err, chat.ErrCommunicationBlocked) {
			h.reject(c, "message.send", err)
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message_id": id})
}

// SoftDeleteMessage handles DELETE /messages/:message_id.
func (h *MessageHandler) SoftDeleteMessage(c *gin.Context) {
	id := c.Param("message_id")
	if err := h.messages.SoftDeleteMessage(c.Request.Context(), middleware.IdentityFrom(c), id); err != nil {
		h.reject(c, "message.delete", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleReaction handles POST /messages/:message_id/reactions.
func (h *MessageHandler) ToggleReaction(c *gin.Context) {
	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	removed, err := h.messages.ToggleReaction(c.Request.Context(), middleware.IdentityFrom(c), c.Param("message_id"), req.Emoji)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// MarkRead handles POST /conversations/:conversation_id/read.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	if err := h.messages.MarkConversationRead(c.Request.Context(), middleware.IdentityFrom(c), c.Param("conversation_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
