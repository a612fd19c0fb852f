package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"realtime-chat/internal/chat"
	"realtime-chat/internal/middleware"
	"realtime-chat/internal/models"
	"realtime-chat/internal/observability"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	maxReadBytes = 4096
)

// UserResolver maps a verified identity to its local user.
type UserResolver interface {
	CurrentUser(ctx context.Context, caller chat.Identity) (*models.User, error)
}

// Handler upgrades authenticated requests to event subscriptions.
type Handler struct {
	hub      *Hub
	users    UserResolver
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, users UserResolver) *Handler {
	return &Handler{
		hub:   hub,
		users: users,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle upgrades the connection and registers the caller's socket.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("realtime-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	identity := middleware.IdentityFrom(c)
	if !identity.Authenticated() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": "AUTHENTICATION_REQUIRED"})
		return
	}
	user, err := h.users.CurrentUser(ctx, identity)
	if err != nil {
		log.Error().Err(err).Str("subject", identity.Subject).Msg("ws resolve user failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not synced", "code": "NOT_FOUND"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      user.ID,
		Subject:     identity.Subject,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	cl := newClient(conn, info)
	h.hub.add(cl)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.hub.publishLifecycle(ctx, info, "ws_connect", "")

	go h.keepAlive(cl)
	go h.readLoop(ctx, cl)
}

// readLoop discards client frames; it exists to observe pongs and close.
func (h *Handler) readLoop(ctx context.Context, cl *client) {
	var closeReason string
	defer func() {
		cl.close()
		if !h.hub.remove(cl) {
			return
		}
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.hub.publishLifecycle(ctx, cl.info, "ws_disconnect", closeReason)
	}()

	cl.conn.SetReadLimit(maxReadBytes)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}
	}
}

func (h *Handler) keepAlive(cl *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			if err := cl.write(websocket.PingMessage, nil, h.hub.writeWait); err != nil {
				cl.close()
				return
			}
		}
	}
}
