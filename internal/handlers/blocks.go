package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"realtime-chat/internal/chat"
	"realtime-chat/internal/middleware"
	"realtime-chat/internal/models"
	"realtime-chat/internal/telemetry"
)

type BlockService interface {
	ToggleBlock(ctx context.Context, caller chat.Identity, otherUserID string) (bool, error)
	BlockedUsers(ctx context.Context, caller chat.Identity) ([]string, error)
	CheckIfBlocked(ctx context.Context, caller chat.Identity, otherUserID string) (models.BlockStatus, error)
}

// BlockHandler manages the caller's block list.
type BlockHandler struct {
	blocks BlockService
	auditor
}

func NewBlockHandler(blocks BlockService, audit *telemetry.AuditEmitter) *BlockHandler {
	return &BlockHandler{blocks: blocks, auditor: auditor{audit: audit}}
}

func (h *BlockHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/blocks", h.BlockedUsers)
	rg.GET("/blocks/:user_id", h.CheckIfBlocked)
	rg.POST("/blocks/:user_id/toggle", h.ToggleBlock)
}

// ToggleBlock handles POST /blocks/:user_id/toggle.
func (h *BlockHandler) ToggleBlock(c *gin.Context) {
	other := c.Param("user_id")
	blocked, err := h.blocks.ToggleBlock(c.Request.Context(), middleware.IdentityFrom(c), other)
	if err != nil {
		h.reject(c, "block.toggle", err)
		return
	}
	h.emit(c, telemetry.LevelInfo, "block.toggle", "Block toggled", map[string]string{
		"user_id": other,
		"blocked": strconv.FormatBool(blocked),
	})
	c.JSON(http.StatusOK, gin.H{"blocked": blocked})
}

// BlockedUsers handles GET /blocks.
func (h *BlockHandler) BlockedUsers(c *gin.Context) {
	ids, err := h.blocks.BlockedUsers(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_ids": nonNil(ids)})
}

// CheckIfBlocked handles GET /blocks/:user_id.
func (h *BlockHandler) CheckIfBlocked(c *gin.Context) {
	status, err := h.blocks.CheckIfBlocked(c.Request.Context(), middleware.IdentityFrom(c), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
