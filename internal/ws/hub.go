package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"realtime-chat/internal/chat"
	"realtime-chat/internal/observability"
	"realtime-chat/internal/rabbitmq"
)

const (
	lifecycleRoutingKey = "ws_events.connections"
	defaultWriteWait    = 5 * time.Second
)

// Hub maintains live sockets per local user id and pushes committed change
// events to the users they concern.
type Hub struct {
	clients   map[string]map[*client]struct{}
	mu        sync.RWMutex
	publisher rabbitmq.Publisher
	writeWait time.Duration
}

// NewHub creates an empty hub. publisher receives connection lifecycle
// events and may be nil.
func NewHub(publisher rabbitmq.Publisher) *Hub {
	return &Hub{
		clients:   make(map[string]map[*client]struct{}),
		publisher: publisher,
		writeWait: defaultWriteWait,
	}
}

var _ chat.Notifier = (*Hub)(nil)

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[c.info.UserID]
	if !ok {
		conns = make(map[*client]struct{})
		h.clients[c.info.UserID] = conns
	}
	conns[c] = struct{}{}
}

// remove reports whether c was still registered.
func (h *Hub) remove(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[c.info.UserID]
	if !ok {
		return false
	}
	if _, ok := conns[c]; !ok {
		return false
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.info.UserID)
	}
	return true
}

func (h *Hub) snapshot(userID string) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := h.clients[userID]
	out := make([]*client, 0, len(conns))
	for c := range conns {
		out = append(out, c)
	}
	return out
}

// ConnectionCount returns the number of live sockets for userID.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Notify delivers ev to every socket of every recipient. A socket that
// cannot be written to is dropped.
func (h *Hub) Notify(ctx context.Context, ev chat.Event) {
	payload, err := json.Marshal(frameFor(ev))
	if err != nil {
		log.Error().Err(err).Str("event", string(ev.Type)).Msg("ws frame encode failed")
		return
	}
	for _, userID := range uniqueIDs(ev.UserIDs) {
		for _, c := range h.snapshot(userID) {
			if err := c.write(websocket.TextMessage, payload, h.writeWait); err != nil {
				log.Warn().Err(err).Str("conn_id", c.info.ConnID).Msg("websocket write error")
				h.drop(ctx, c, err)
				continue
			}
			observability.IncWSEvent("ws_push")
		}
	}
}

func (h *Hub) drop(ctx context.Context, c *client, cause error) {
	c.close()
	if !h.remove(c) {
		return
	}
	observability.DecWSActive()
	observability.IncWSEvent("ws_error")
	h.publishLifecycle(ctx, c.info, "ws_error", cause.Error())
}

// Close disconnects every socket.
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[string]map[*client]struct{})
	h.mu.Unlock()

	for _, conns := range all {
		for c := range conns {
			_ = c.write(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Second)
			c.close()
			observability.DecWSActive()
		}
	}
}

func (h *Hub) publishLifecycle(ctx context.Context, info ConnInfo, event, reason string) {
	if h.publisher == nil {
		return
	}
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id": info.UserID,
			"subject": info.Subject,
			"ip":      info.IP,
		},
	}
	ctx = observability.WithRequestID(context.WithoutCancel(ctx), info.RequestID)
	_ = h.publisher.Publish(ctx, lifecycleRoutingKey, observability.EventEnvelope{
		EventType:  "ws_events",
		EventName:  event,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:    payload,
	})
}
