package chat

import (
	"context"
	"time"
)

// EventType names a change that subscribers should re-query for.
type EventType string

const (
	EventConversationCreated EventType = "conversation.created"
	EventConversationUpdated EventType = "conversation.updated"
	EventConversationDeleted EventType = "conversation.deleted"
	EventMessageCreated      EventType = "message.created"
	EventMessageDeleted      EventType = "message.deleted"
	EventReactionToggled     EventType = "reaction.toggled"
	EventReadUpdated         EventType = "read.updated"
	EventTypingUpdated       EventType = "typing.updated"
	EventBlockUpdated        EventType = "block.updated"
)

// Event is a committed change together with the users whose views it affects.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	MessageID      string    `json:"message_id,omitempty"`
	ActorID        string    `json:"actor_id,omitempty"`
	UserIDs        []string  `json:"user_ids"`
	At             time.Time `json:"at"`
}

// Notifier receives committed events.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event)

func (f NotifierFunc) Notify(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Notifiers fans an event out to every notifier in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, ev Event) {
	for _, n := range ns {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}
