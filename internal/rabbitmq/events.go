package rabbitmq

import (
	"context"
	"time"

	"realtime-chat/internal/chat"
	"realtime-chat/internal/observability"
)

const eventRoutingPrefix = "chat_events."

// EventNotifier forwards committed chat events to the broker so other
// services can follow conversation activity.
type EventNotifier struct {
	publisher Publisher
	timeout   time.Duration
}

func NewEventNotifier(publisher Publisher) *EventNotifier {
	return &EventNotifier{publisher: publisher, timeout: 2 * time.Second}
}

var _ chat.Notifier = (*EventNotifier)(nil)

func (n *EventNotifier) Notify(ctx context.Context, ev chat.Event) {
	if n == nil || n.publisher == nil {
		return
	}
	// the event is already committed; the caller's cancellation must not drop it
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	envelope := observability.EventEnvelope{
		EventType:  "chat_event",
		EventName:  string(ev.Type),
		OccurredAt: ev.At.UTC().Format(time.RFC3339Nano),
		Payload:    ev,
	}
	_ = n.publisher.Publish(pubCtx, eventRoutingPrefix+string(ev.Type), envelope)
}
