package chat_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"realtime-chat/internal/chat"
	"realtime-chat/internal/repositories/memory"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []chat.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev chat.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) Types() []chat.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]chat.EventType, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	svc      *chat.Service
	store    *memory.Store
	clock    *manualClock
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.NewStore(nil),
		clock:    newManualClock(),
		notifier: &recordingNotifier{},
	}
	f.svc = chat.NewService(f.store, chat.WithClock(f.clock.Now), chat.WithNotifier(f.notifier))
	return f
}

type member struct {
	identity chat.Identity
	id       string
}

// user syncs a user with the given subject and display name.
func (f *fixture) user(t *testing.T, subject, name string) member {
	t.Helper()
	identity := chat.Identity{Subject: subject, Name: name}
	id, err := f.svc.SyncUser(context.Background(), identity, name, "https://img.example/"+subject)
	require.NoError(t, err)
	require.NotNil(t, id)
	return member{identity: identity, id: *id}
}

func (f *fixture) send(t *testing.T, from member, conversationID, text string) string {
	t.Helper()
	f.clock.Advance(time.Second)
	id, err := f.svc.SendMessage(context.Background(), from.identity, chat.SendMessageInput{ConversationID: conversationID, Text: text})
	require.NoError(t, err)
	return id
}

func (f *fixture) unread(t *testing.T, who member, conversationID string) int {
	t.Helper()
	summaries, err := f.svc.ListConversations(context.Background(), who.identity)
	require.NoError(t, err)
	for _, s := range summaries {
		if s.Conversation.ID == conversationID {
			return s.UnreadCount
		}
	}
	t.Fatalf("conversation %s not listed for %s", conversationID, who.id)
	return 0
}
