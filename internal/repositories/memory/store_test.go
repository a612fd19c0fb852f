package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-chat/internal/models"
	"realtime-chat/internal/repositories"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestWithTxRollsBackOnError(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(r repositories.Repos) error {
		require.NoError(t, r.Users.Create(ctx, models.User{ID: "u1", ExternalID: "s1", Name: "Ann", CreatedAt: t0}))
		_, err := r.Users.GetByID(ctx, "u1")
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Repos().Users.GetByID(ctx, "u1")
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)
}

func TestFailedTxLeavesNoPartialWrites(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	repos := store.Repos()
	key := models.DirectKey("u1", "u2")
	require.NoError(t, repos.Users.Create(ctx, models.User{ID: "u1", ExternalID: "s1", Name: "Ann", CreatedAt: t0}))
	require.NoError(t, repos.Conversations.Create(ctx, models.Conversation{ID: "c1", MemberIDs: []string{"u1", "u2"}, DirectKey: &key, CreatedAt: t0}))
	require.NoError(t, repos.Messages.Create(ctx, models.Message{ID: "m1", ConversationID: "c1", SenderID: "u1", Text: "hi", CreatedAt: t0}))
	require.NoError(t, repos.Reads.Upsert(ctx, models.ConversationRead{ConversationID: "c1", UserID: "u2", LastReadAt: t0}))
	seq := store.data.seq

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(r repositories.Repos) error {
		require.NoError(t, r.Users.UpdateProfile(ctx, "u1", "Changed", "", t0.Add(time.Minute)))
		require.NoError(t, r.Users.Create(ctx, models.User{ID: "u3", ExternalID: "s3", Name: "Cat", CreatedAt: t0}))
		require.NoError(t, r.Messages.Create(ctx, models.Message{ID: "m2", ConversationID: "c1", SenderID: "u1", CreatedAt: t0.Add(time.Second)}))
		require.NoError(t, r.Messages.SoftDelete(ctx, "m1"))
		_, err := r.Reads.DeleteByConversation(ctx, "c1")
		require.NoError(t, err)
		require.NoError(t, r.Conversations.Delete(ctx, "c1"))
		require.NoError(t, r.Blocks.Add(ctx, models.Block{BlockerID: "u1", BlockedID: "u2", CreatedAt: t0}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	user, err := repos.Users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Name)
	_, err = repos.Users.GetByID(ctx, "u3")
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)

	conv, err := repos.Conversations.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, conv.MemberIDs)

	msgs, err := repos.Messages.ListByConversation(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.False(t, msgs[0].Deleted)
	assert.Equal(t, seq, store.data.seq)

	read, err := repos.Reads.Get(ctx, "c1", "u2")
	require.NoError(t, err)
	assert.Equal(t, t0, read.LastReadAt)

	blocked, err := repos.Blocks.Exists(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.False(t, blocked)
	assert.Nil(t, store.data.undo)
}

func TestPanickingTxIsRolledBack(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = store.WithTx(ctx, func(r repositories.Repos) error {
			require.NoError(t, r.Users.Create(ctx, models.User{ID: "u1", ExternalID: "s1", Name: "Ann", CreatedAt: t0}))
			panic("boom")
		})
	})

	_, err := store.Repos().Users.GetByID(ctx, "u1")
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)
	require.NoError(t, store.WithTx(ctx, func(repositories.Repos) error { return nil }))
}

func TestWithTxCommits(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	require.NoError(t, store.WithTx(ctx, func(r repositories.Repos) error {
		return r.Users.Create(ctx, models.User{ID: "u1", ExternalID: "s1", Name: "Ann", CreatedAt: t0})
	}))

	user, err := store.Repos().Users.GetByExternalID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
}

func TestWithTxHonoursCancelledContext(t *testing.T) {
	store := NewStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.WithTx(ctx, func(repositories.Repos) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDirectKeyIsUnique(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	key := models.DirectKey("a", "b")
	repos := store.Repos()

	require.NoError(t, repos.Conversations.Create(ctx, models.Conversation{ID: "c1", MemberIDs: []string{"a", "b"}, DirectKey: &key, CreatedAt: t0}))
	err := repos.Conversations.Create(ctx, models.Conversation{ID: "c2", MemberIDs: []string{"b", "a"}, DirectKey: &key, CreatedAt: t0})
	assert.ErrorIs(t, err, repositories.ErrConversationExists)

	found, err := repos.Conversations.FindDirect(ctx, models.DirectKey("b", "a"))
	require.NoError(t, err)
	assert.Equal(t, "c1", found.ID)
}

func TestConversationMembersAreNotAliased(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	members := []string{"a", "b", "c"}
	require.NoError(t, store.Repos().Conversations.Create(ctx, models.Conversation{ID: "g", IsGroup: true, MemberIDs: members, CreatedAt: t0}))

	members[0] = "mutated"
	got, err := store.Repos().Conversations.Get(ctx, "g")
	require.NoError(t, err)
	got.MemberIDs[1] = "mutated"

	again, err := store.Repos().Conversations.Get(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, again.MemberIDs)
}

func TestMessagesOrderedByCreationThenInsertion(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	repos := store.Repos()
	for _, m := range []models.Message{
		{ID: "m3", ConversationID: "c", CreatedAt: t0.Add(time.Second)},
		{ID: "m1", ConversationID: "c", CreatedAt: t0},
		{ID: "m2", ConversationID: "c", CreatedAt: t0},
		{ID: "x", ConversationID: "other", CreatedAt: t0},
	} {
		require.NoError(t, repos.Messages.Create(ctx, m))
	}

	msgs, err := repos.Messages.ListByConversation(ctx, "c")
	require.NoError(t, err)
	ids := []string{}
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids)

	latest, err := repos.Messages.Latest(ctx, "c")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "m3", latest.ID)

	none, err := repos.Messages.Latest(ctx, "empty")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestReactionsAddIsIdempotent(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	repos := store.Repos()

	require.NoError(t, repos.Reactions.Add(ctx, models.MessageReaction{ID: "r1", MessageID: "m", UserID: "u", Emoji: "👍"}))
	require.NoError(t, repos.Reactions.Add(ctx, models.MessageReaction{ID: "r2", MessageID: "m", UserID: "u", Emoji: "👍"}))

	list, err := repos.Reactions.ListByMessages(ctx, []string{"m"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	removed, err := repos.Reactions.Remove(ctx, "m", "u", "👍")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repos.Reactions.Remove(ctx, "m", "u", "👍")
	require.NoError(t, err)
	assert.False(t, removed)
}
