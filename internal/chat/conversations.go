package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"realtime-chat/internal/models"
	"realtime-chat/internal/observability"
	"realtime-chat/internal/repositories"
)

const (
	selfConversationName    = "Just me"
	defaultGroupName        = "Group chat"
	minGroupMembersBesideMe = 2
)

// GetOrCreateDirect returns the direct conversation between the caller and
// otherUserID, creating it on first use. Targeting oneself yields a
// single-member notes conversation.
func (s *Service) GetOrCreateDirect(ctx context.Context, caller Identity, otherUserID string) (string, error) {
	var conversationID string
	err := s.mutate(ctx, "get_or_create_direct", caller, func(rc *RequestContext) error {
		me, err := rc.RequireUser()
		if err != nil {
			return err
		}
		if _, err := rc.userByID(otherUserID); err != nil {
			return err
		}

		key := models.DirectKey(me.ID, otherUserID)
		existing, err := rc.Repos.Conversations.FindDirect(rc.Ctx, key)
		if err == nil {
			conversationID = existing.ID
			return nil
		}
		if !errors.Is(err, repositories.ErrConversationNotFound) {
			return err
		}

		conv := models.Conversation{
			ID:        s.newID(),
			MemberIDs: []string{me.ID, otherUserID},
			DirectKey: &key,
			CreatedAt: rc.Now,
			UpdatedAt: rc.Now,
		}
		if otherUserID == me.ID {
			name := selfConversationName
			conv.Name = &name
			conv.MemberIDs = []string{me.ID}
		}
		if err := rc.Repos.Conversations.Create(rc.Ctx, conv); err != nil {
			return err
		}
		conversationID = conv.ID
		rc.Emit(Event{Type: EventConversationCreated, ConversationID: conv.ID, ActorID: me.ID, UserIDs: conv.MemberIDs})
		return nil
	})
	return conversationID, err
}

// CreateGroup creates a group of the caller plus at least two other
// distinct users.
func (s *Service) CreateGroup(ctx context.Context, caller Identity, name string, memberIDs []string) (string, error) {
	var conversationID string
	err := s.mutate(ctx, "create_group", caller, func(rc *RequestContext) error {
		me, err := rc.RequireUser()
		if err != nil {
			return err
		}

		seen := map[string]bool{me.ID: true}
		others := make([]string, 0, len(memberIDs))
		for _, id := range memberIDs {
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			others = append(others, id)
		}
		if len(others) < minGroupMembersBesideMe {
			return fmt.Errorf("%w: a group must have at least %d other members", ErrInvalidArgument, minGroupMembersBesideMe)
		}
		for _, id := range others {
			if _, err := rc.userByID(id); err != nil {
				return err
			}
		}

		name = strings.TrimSpace(name)
		if name == "" {
			name = defaultGroupName
		}
		conv := models.Conversation{
			ID:        s.newID(),
			IsGroup:   true,
			Name:      &name,
			MemberIDs: append([]string{me.ID}, others...),
			CreatedAt: rc.Now,
			UpdatedAt: rc.Now,
		}
		if err := rc.Repos.Conversations.Create(rc.Ctx, conv); err != nil {
			return err
		}
		conversationID = conv.ID
		rc.Emit(Event{Type: EventConversationCreated, ConversationID: conv.ID, ActorID: me.ID, UserIDs: conv.MemberIDs})
		return nil
	})
	return conversationID, err
}

// ListConversations returns the caller's conversations, most recently
// active first, each with its members, latest message and unread count.
func (s *Service) ListConversations(ctx context.Context, caller Identity) ([]models.ConversationSummary, error) {
	out := []models.ConversationSummary{}
	err := s.query(ctx, "list_conversations", caller, func(rc *RequestContext) error {
		me, err := rc.CurrentUser()
		if err != nil || me == nil {
			return err
		}
		convs, err := rc.Repos.Conversations.ListForMember(rc.Ctx, me.ID)
		if err != nil {
			return err
		}
		for _, conv := range convs {
			summary, err := summarize(rc, *me, conv)
			if err != nil {
				return err
			}
			out = append(out, summary)
		}
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Conversation.ActivityAt().After(out[j].Conversation.ActivityAt())
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func summarize(rc *RequestContext, me models.User, conv models.Conversation) (models.ConversationSummary, error) {
	summary := models.ConversationSummary{Conversation: conv}

	others := conv.OtherMembers(me.ID)
	if len(others) == 0 {
		summary.Members = []models.User{me}
	} else {
		members, err := rc.usersByID(others)
		if err != nil {
			return summary, err
		}
		summary.Members = members
	}

	messages, err := rc.Repos.Messages.ListByConversation(rc.Ctx, conv.ID)
	if err != nil {
		return summary, err
	}
	if n := len(messages); n > 0 {
		last := messages[n-1]
		summary.LastMessage = &last
	}

	// without a read marker every message is unread
	var lastReadAt time.Time
	read, err := rc.Repos.Reads.Get(rc.Ctx, conv.ID, me.ID)
	switch {
	case err == nil:
		lastReadAt = read.LastReadAt
	case !errors.Is(err, repositories.ErrReadNotFound):
		return summary, err
	}
	for _, msg := range messages {
		if msg.SenderID != me.ID && msg.CreatedAt.After(lastReadAt) {
			summary.UnreadCount++
		}
	}
	return summary, nil
}

// LeaveGroup removes the caller from a group. The last member leaving
// deletes the group; otherwise a member-left notice is appended.
func (s *Service) LeaveGroup(ctx context.Context, caller Identity, conversationID string) error {
	return s.mutate(ctx, "leave_group", caller, func(rc *RequestContext) error {
		me, err := rc.RequireUser()
		if err != nil {
			return err
		}
		conv, err := rc.conversation(conversationID)
		if err != nil {
			return err
		}
		if !conv.IsGroup {
			return fmt.Errorf("%w: group %s", ErrNotFound, conversationID)
		}
		if !conv.HasMember(me.ID) {
			return fmt.Errorf("%w: not a member of this group", ErrForbidden)
		}

		remaining := conv.OtherMembers(me.ID)
		if len(remaining) == 0 {
			if err := cascadeDelete(rc, conv); err != nil {
				return err
			}
			rc.OnCommit(func() { observability.IncCascadeDeletion("leave") })
			return nil
		}

		if err := rc.Repos.Conversations.UpdateMembers(rc.Ctx, conv.ID, remaining, rc.Now); err != nil {
			return err
		}
		createdAt, err := nextMessageTime(rc, conv.ID)
		if err != nil {
			return err
		}
		notice := models.Message{
			ID:             s.newID(),
			ConversationID: conv.ID,
			SenderID:       me.ID,
			Text:           me.Name + " has left the group.",
			Kind:           models.MessageKindSystem,
			Notice:         &models.Notice{Type: models.NoticeMemberLeft, UserID: me.ID, UserName: me.Name},
			CreatedAt:      createdAt,
		}
		if err := rc.Repos.Messages.Create(rc.Ctx, notice); err != nil {
			return err
		}
		rc.OnCommit(func() { observability.IncMessageSent(string(models.MessageKindSystem)) })
		rc.Emit(Event{Type: EventConversationUpdated, ConversationID: conv.ID, ActorID: me.ID, UserIDs: conv.MemberIDs})
		rc.Emit(Event{Type: EventMessageCreated, ConversationID: conv.ID, MessageID: notice.ID, ActorID: me.ID, UserIDs: remaining})
		return nil
	})
}

// DeleteConversation removes a conversation the caller belongs to together
// with everything that hangs off it.
func (s *Service) DeleteConversation(ctx context.Context, caller Identity, conversationID string) error {
	return s.mutate(ctx, "delete_conversation", caller, func(rc *RequestContext) error {
		me, err := rc.RequireUser()
		if err != nil {
			return err
		}
		conv, err := rc.conversation(conversationID)
		if err != nil {
			return err
		}
		if !conv.HasMember(me.ID) {
			return fmt.Errorf("%w: not a member of this conversation", ErrForbidden)
		}
		if err := cascadeDelete(rc, conv); err != nil {
			return err
		}
		rc.OnCommit(func() { observability.IncCascadeDeletion("delete") })
		return nil
	})
}
