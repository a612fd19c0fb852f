package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"realtime-chat/internal/chat"
	"realtime-chat/internal/middleware"
	"realtime-chat/internal/models"
)

type UserService interface {
	SyncUser(ctx context.Context, caller chat.Identity, name, avatarURL string) (*string, error)
	CurrentUser(ctx context.Context, caller chat.Identity) (*models.User, error)
	SearchUsers(ctx context.Context, caller chat.Identity, search string) ([]models.User, error)
}

// UserHandler binds verified identities to local users and looks them up.
type UserHandler struct {
	users UserService
}

func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/users/sync", h.SyncUser)
	rg.GET("/users/me", h.CurrentUser)
	rg.GET("/users", h.SearchUsers)
}

// SyncUser handles POST /users/sync.
func (h *UserHandler) SyncUser(c *gin.Context) {
	var req struct {
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	userID, err := h.users.SyncUser(c.Request.Context(), middleware.IdentityFrom(c), req.Name, req.AvatarURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID})
}

// CurrentUser handles GET /users/me. Anonymous callers get a null user.
func (h *UserHandler) CurrentUser(c *gin.Context) {
	user, err := h.users.CurrentUser(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// SearchUsers handles GET /users?search=.
func (h *UserHandler) SearchUsers(c *gin.Context) {
	users, err := h.users.SearchUsers(c.Request.Context(), middleware.IdentityFrom(c), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": nonNil(users)})
}
