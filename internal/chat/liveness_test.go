package chat_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-chat/internal/chat"
	"realtime-chat/internal/models"
	"realtime-chat/internal/repositories"
	"realtime-chat/internal/repositories/memory"
)

type lastSeenFailure struct{ repositories.UserRepository }

func (lastSeenFailure) TouchLastSeen(context.Context, string, time.Time) error {
	return errors.New("disk full")
}

// lastSeenFailingStore fails every TouchLastSeen made inside a transaction.
type lastSeenFailingStore struct{ *memory.Store }

func (s lastSeenFailingStore) WithTx(ctx context.Context, fn func(repositories.Repos) error) error {
	return s.Store.WithTx(ctx, func(r repositories.Repos) error {
		r.Users = lastSeenFailure{r.Users}
		return fn(r)
	})
}

func TestFailedHeartbeatLeavesNoPresence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "a", "Ann")

	svc := chat.NewService(lastSeenFailingStore{f.store}, chat.WithClock(f.clock.Now))
	err := svc.Heartbeat(ctx, a.identity)
	require.Error(t, err)
	assert.Equal(t, "INTERNAL", chat.ErrorCode(err))

	online, err := f.svc.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, online)

	user, err := f.store.Repos().Users.GetByID(ctx, a.id)
	require.NoError(t, err)
	assert.Nil(t, user.LastSeenAt)
}

func TestPresenceWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "a", "Ann")
	b := f.user(t, "b", "Ben")

	require.NoError(t, f.svc.Heartbeat(ctx, chat.Identity{}))
	require.NoError(t, f.svc.Heartbeat(ctx, a.identity))
	f.clock.Advance(10 * time.Second)
	require.NoError(t, f.svc.Heartbeat(ctx, b.identity))

	online, err := f.svc.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.id, b.id}, online)

	f.clock.Advance(10 * time.Second)
	online, err = f.svc.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.id, b.id}, online)

	f.clock.Advance(time.Millisecond)
	online, err = f.svc.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{b.id}, online)

	f.clock.Advance(10 * time.Second)
	online, err = f.svc.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, online)
}

func TestTypingWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "a", "Ann")
	b := f.user(t, "b", "Ben")
	c := f.user(t, "c", "Cat")
	group, err := f.svc.CreateGroup(ctx, a.identity, "Trip", []string{b.id, c.id})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetTyping(ctx, a.identity, group, true))
	require.NoError(t, f.svc.SetTyping(ctx, b.identity, group, true))
	require.NoError(t, f.svc.SetTyping(ctx, c.identity, group, false))

	typing, err := f.svc.TypingForConversation(ctx, a.identity, group)
	require.NoError(t, err)
	assert.Equal(t, []models.TypingUser{{ID: b.id, Name: "Ben"}}, typing)

	f.clock.Advance(2500 * time.Millisecond)
	typing, err = f.svc.TypingForConversation(ctx, c.identity, group)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.TypingUser{{ID: a.id, Name: "Ann"}, {ID: b.id, Name: "Ben"}}, typing)

	f.clock.Advance(time.Millisecond)
	typing, err = f.svc.TypingForConversation(ctx, c.identity, group)
	require.NoError(t, err)
	assert.Empty(t, typing)

	rows, err := f.store.Repos().Typing.ListByConversation(ctx, group)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestTypingRequiresAuthentication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "a", "Ann")
	conv, err := f.svc.GetOrCreateDirect(ctx, a.identity, a.id)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.SetTyping(ctx, chat.Identity{}, conv, true), chat.ErrAuthenticationRequired)
	_, err = f.svc.TypingForConversation(ctx, chat.Identity{}, conv)
	assert.ErrorIs(t, err, chat.ErrAuthenticationRequired)
	assert.ErrorIs(t, f.svc.SetTyping(ctx, a.identity, "missing", true), chat.ErrNotFound)
}

func TestCustomWindows(t *testing.T) {
	clock := newManualClock()
	f := newFixture(t)
	f.svc = chat.NewService(f.store, chat.WithClock(clock.Now), chat.WithWindows(time.Minute, 0))
	ctx := context.Background()
	a := f.user(t, "a", "Ann")

	require.NoError(t, f.svc.Heartbeat(ctx, a.identity))
	clock.Advance(45 * time.Second)
	online, err := f.svc.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{a.id}, online)
}
