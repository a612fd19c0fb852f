package chat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-chat/internal/chat"
)

func TestSendMessageValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "a", "Ann")
	b := f.user(t, "b", "Ben")
	c := f.user(t, "c", "Cat")
	conv, err := f.svc.GetOrCreateDirect(ctx, a.identity, b.id)
	require.NoError(t, err)
	other, err := f.svc.GetOrCreateDirect(ctx, a.identity, c.id)
	require.NoError(t, err)
	foreign := f.send(t, a, other, "elsewhere")

	cases := []struct {
		name   string
		caller chat.Identity
		in     chat.SendMessageInput
		want   error
	}{
		{"anonymous", chat.Identity{}, chat.SendMessageInput{ConversationID: conv, Text: "x"}, chat.ErrAuthenticationRequired},
		{"blank text", a.identity, chat.SendMessageInput{ConversationID: conv, Text: "   "}, chat.ErrInvalidArgument},
		{"missing conversation", a.identity, chat.SendMessageInput{ConversationID: "nope", Text: "x"}, chat.ErrNotFound},
		{"not a member", c.identity, chat.SendMessageInput{ConversationID: conv, Text: "x"}, chat.ErrForbidden},
		{"missing reply target", a.identity, chat.SendMessageInput{ConversationID: conv, Text: "x", ReplyToID: ptr("nope")}, chat.ErrNotFound},
		{"reply across conversations", a.identity, chat.SendMessageInput{ConversationID: conv, Text: "x", ReplyToID: &foreign}, chat.ErrInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.SendMessage(ctx, tc.caller, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSendMessageUpdatesConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "a", "Ann")
	b := f.user(t, "b", "Ben")
	conv, err := f.svc.GetOrCreateDirect(ctx, a.identity, b.id)
	require.NoError(t, err)

	f.send(t, a, conv, "hello")

	stored, err := f.store.Repos().Conversations.Get(ctx, conv)
	require.NoError(t, err)
	require.NotNil(t, stored.LastMessageAt)
	assert.Equal(t, f.clock.Now(), *stored.LastMessageAt)
	assert.Equal(t, f.clock.Now(), stored.UpdatedAt)
}

func TestListMessagesEnrichment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "a", "Ann")
	b := f.user(t, "b", "Ben")
	conv, err := f.svc.GetOrCreateDirect(ctx, a.identity, b.id)
	require.NoError(t, err)

	original := f.send(t, a, conv, "original")
	reply, err := f.svc.SendMessage(ctx, b.identity, chat.SendMessageInput{ConversationID: conv, Text: "reply", ReplyToID: &original})
	require.NoError(t, err)

	views, err := f.svc.ListMessages(ctx, a.identity, conv)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.True(t, views[0].IsOwn)
	assert.False(t, views[1].IsOwn)
	require.NotNil(t, views[1].Sender)
	assert.Equal(t, "Ben", views[1].Sender.Name)
	assert.Equal(t, reply, views[1].Message.ID)
	require.NotNil(t, views[1].ReplyTo)
	assert.Equal(t, original, views[1].ReplyTo.ID)
	assert.Equal(t, "original", views[1].ReplyTo.Text)
	assert.Equal(t, "Ann", views[1].ReplyTo.SenderName)
	assert.False(t, views[1].ReplyTo.Deleted)

	anonymous, err := f.svc.ListMessages(ctx, chat.Identity{}, conv)
	require.NoError(t, err)
	require.Len(t, anonymous, 2)
	assert.False(t, anonymous[0].IsOwn)
	assert.False(t, anonymous[1].IsOwn)
}

func TestSoftDeleteMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "a", "Ann")
	b := f.user(t, "b", "Ben")
	conv, err := f.svc.GetOrCreateDirect(ctx, a.identity, b.id)
	require.NoError(t, err)
	target := f.send(t, a, conv, "regret")
	_, err = f.svc.SendMessage(ctx, b.identity, chat.SendMessageInput{ConversationID: conv, Text: "quoting", ReplyToID: &target})
	require.NoError(t, err)
	_, err = f.svc.ToggleReaction(ctx, b.identity, target, "😮")
	require.NoError(t, err)

	err = f.svc.SoftDeleteMessage(ctx, b.identity, target)
	assert.ErrorIs(t, err, chat.ErrForbidden)
	assert.ErrorIs(t, f.svc.SoftDeleteMessage(ctx, a.identity, "missing"), chat.ErrNotFound)

	require.NoError(t, f.svc.SoftDeleteMessage(ctx, a.identity, target))
	require.NoError(t, f.svc.SoftDeleteMessage(ctx, a.identity, target))

	views, err := f.svc.ListMessages(ctx, b.identity, conv)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, target, views[0].Message.ID)
	assert.True(t, views[0].Message.Deleted)
	assert.Empty(t, views[0].Message.Text)
	assert.Len(t, views[0].Reactions, 1)

	require.NotNil(t, views[1].ReplyTo)
	assert.True(t, views[1].ReplyTo.Deleted)
	assert.Empty(t, views[1].ReplyTo.Text)
	assert.Equal(t, "Ann", views[1].ReplyTo.SenderName)
}

func TestToggleReactionIsItsOwnInverse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "a", "Ann")
	b := f.user(t, "b", "Ben")
	conv, err := f.svc.GetOrCreateDirect(ctx, a.identity, b.id)
	require.NoError(t, err)
	msg := f.send(t, a, conv, "react to me")

	removed, err := f.svc.ToggleReaction(ctx, b.identity, msg, "👍")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = f.svc.ToggleReaction(ctx, a.identity, msg, "👍")
	require.NoError(t, err)

	reactions, err := f.store.Repos().Reactions.ListByMessages(ctx, []string{msg})
	require.NoError(t, err)
	assert.Len(t, reactions, 2)

	removed, err = f.svc.ToggleReaction(ctx, b.identity, msg, "👍")
	require.NoError(t, err)
	assert.True(t, removed)

	reactions, err = f.store.Repos().Reactions.ListByMessages(ctx, []string{msg})
	require.NoError(t, err)
	require.Len(t, reactions, 1)
	assert.Equal(t, a.id, reactions[0].UserID)
}

func TestToggleReactionRejectsUnknownEmojiAndMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "a", "Ann")
	conv, err := f.svc.GetOrCreateDirect(ctx, a.identity, a.id)
	require.NoError(t, err)
	msg := f.send(t, a, conv, "note")

	_, err = f.svc.ToggleReaction(ctx, a.identity, msg, "🍕")
	assert.ErrorIs(t, err, chat.ErrInvalidArgument)

	_, err = f.svc.ToggleReaction(ctx, a.identity, "missing", "👍")
	assert.ErrorIs(t, err, chat.ErrNotFound)

	_, err = f.svc.ToggleReaction(ctx, chat.Identity{}, msg, "👍")
	assert.ErrorIs(t, err, chat.ErrAuthenticationRequired)

	for _, emoji := range chat.Reactions {
		removed, err := f.svc.ToggleReaction(ctx, a.identity, msg, emoji)
		require.NoError(t, err)
		assert.False(t, removed, emoji)
	}
}

func ptr(s string) *string { return &s }
