package ws

import (
	"time"

	"github.com/google/uuid"

	"realtime-chat/internal/chat"
)

func newConnID() string {
	return uuid.NewString()
}

// Frame is what a subscriber receives for a committed change. Recipient
// lists stay on the server.
type Frame struct {
	Type           chat.EventType `json:"type"`
	ConversationID string         `json:"conversation_id,omitempty"`
	MessageID      string         `json:"message_id,omitempty"`
	ActorID        string         `json:"actor_id,omitempty"`
	At             time.Time      `json:"at"`
}

func frameFor(ev chat.Event) Frame {
	return Frame{
		Type:           ev.Type,
		ConversationID: ev.ConversationID,
		MessageID:      ev.MessageID,
		ActorID:        ev.ActorID,
		At:             ev.At,
	}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
