package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-chat/internal/chat"
)

func TestSyncUserAnonymousIsNoop(t *testing.T) {
	f := newFixture(t)

	id, err := f.svc.SyncUser(context.Background(), chat.Identity{}, "Ghost", "")
	require.NoError(t, err)
	assert.Nil(t, id)

	users, err := f.store.Repos().Users.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestSyncUserCreatesThenRefreshes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	identity := chat.Identity{Subject: "sub-1"}

	first, err := f.svc.SyncUser(ctx, identity, "Alice", "a.png")
	require.NoError(t, err)
	created := f.clock.Now()

	f.clock.Advance(time.Minute)
	second, err := f.svc.SyncUser(ctx, identity, "Alice Liddell", "b.png")
	require.NoError(t, err)
	require.Equal(t, *first, *second)

	user, err := f.svc.CurrentUser(ctx, identity)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Alice Liddell", user.Name)
	assert.Equal(t, "b.png", user.AvatarURL)
	assert.Equal(t, created, user.CreatedAt)
	assert.Equal(t, f.clock.Now(), user.UpdatedAt)
	require.NotNil(t, user.LastSeenAt)
	assert.Equal(t, f.clock.Now(), *user.LastSeenAt)
}

func TestCurrentUserUnknownOrAnonymous(t *testing.T) {
	f := newFixture(t)

	user, err := f.svc.CurrentUser(context.Background(), chat.Identity{})
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = f.svc.CurrentUser(context.Background(), chat.Identity{Subject: "never-synced"})
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestSearchUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	me := f.user(t, "s-me", "Mallory")
	f.user(t, "s-z", "zoe")
	f.user(t, "s-b", "Bob")
	f.user(t, "s-a", "Alice")

	all, err := f.svc.SearchUsers(ctx, me.identity, "")
	require.NoError(t, err)
	names := make([]string, 0, len(all))
	for _, u := range all {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"Alice", "Bob", "zoe"}, names)

	matched, err := f.svc.SearchUsers(ctx, me.identity, "ZO")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "zoe", matched[0].Name)

	anonymous, err := f.svc.SearchUsers(ctx, chat.Identity{}, "")
	require.NoError(t, err)
	assert.Empty(t, anonymous)
}
