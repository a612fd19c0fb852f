package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"realtime-chat/internal/chat"
	"realtime-chat/internal/middleware"
	"realtime-chat/internal/models"
	"realtime-chat/internal/telemetry"
)

type ConversationService interface {
	GetOrCreateDirect(ctx context.Context, caller chat.Identity, otherUserID string) (string, error)
	CreateGroup(ctx context.Context, caller chat.Identity, name string, memberIDs []string) (string, error)
	ListConversations(ctx context.Context, caller chat.Identity) ([]models.ConversationSummary, error)
	LeaveGroup(ctx context.Context, caller chat.Identity, conversationID string) error
	DeleteConversation(ctx context.Context, caller chat.Identity, conversationID string) error
}

// ConversationHandler manages direct and group conversations.
type ConversationHandler struct {
	conversations ConversationService
	auditor
}

func NewConversationHandler(conversations ConversationService, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, auditor: auditor{audit: audit}}
}

func (h *ConversationHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/conversations", h.ListConversations)
	rg.POST("/conversations/direct", h.GetOrCreateDirect)
	rg.POST("/conversations/group", h.CreateGroup)
	rg.POST("/conversations/:conversation_id/leave", h.LeaveGroup)
	rg.DELETE("/conversations/:conversation_id", h.DeleteConversation)
}

// GetOrCreateDirect handles POST /conversations/direct.
func (h *ConversationHandler) GetOrCreateDirect(c *gin.Context) {
	var req struct {
		OtherUserID string `json:"other_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	id, err := h.conversations.GetOrCreateDirect(c.Request.Context(), middleware.IdentityFrom(c), req.OtherUserID)
	if err != nil {
		h.reject(c, "conversation.direct", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation_id": id})
}

// CreateGroup handles POST /conversations/group.
func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name      string   `json:"name"`
		MemberIDs []string `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emit(c, telemetry.LevelError, "conversation.group_create", "invalid request payload", nil)
		respondBadRequest(c, err)
		return
	}

	id, err := h.conversations.CreateGroup(c.Request.Context(), middleware.IdentityFrom(c), req.Name, req.MemberIDs)
	if err != nil {
		h.reject(c, "conversation.group_create", err)
		return
	}
	h.emit(c, telemetry.LevelInfo, "conversation.group_create", "Group created", map[string]string{"conversation_id": id})
	c.JSON(http.StatusCreated, gin.H{"conversation_id": id})
}

// ListConversations handles GET /conversations.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	list, err := h.conversations.ListConversations(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": nonNil(list)})
}

// LeaveGroup handles POST /conversations/:conversation_id/leave.
func (h *ConversationHandler) LeaveGroup(c *gin.Context) {
	id := c.Param("conversation_id")
	if err := h.conversations.LeaveGroup(c.Request.Context(), middleware.IdentityFrom(c), id); err != nil {
		h.reject(c, "conversation.leave", err)
		return
	}
	h.emit(c, telemetry.LevelInfo, "conversation.leave", "Left group", map[string]string{"conversation_id": id})
	c.Status(http.StatusNoContent)
}

// DeleteConversation handles DELETE /conversations/:conversation_id.
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	id := c.Param("conversation_id")
	if err := h.conversations.DeleteConversation(c.Request.Context(), middleware.IdentityFrom(c), id); err != nil {
		h.reject(c, "conversation.delete", err)
		return
	}
	h.emit(c, telemetry.LevelInfo, "conversation.delete", "Conversation deleted", map[string]string{"conversation_id": id})
	c.Status(http.StatusNoContent)
}
