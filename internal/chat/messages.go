package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"realtime-chat/internal/models"
	"realtime-chat/internal/observability"
	"realtime-chat/internal/repositories"
)

// Reactions lists the emoji a message can be reacted with.
var Reactions = []string{"👍", "❤️", "😂", "😮", "😢"}

const unknownSender = "Unknown"

func validReaction(emoji string) bool {
	for _, r := range Reactions {
		if r == emoji {
			return true
		}
	}
	return false
}

// nextMessageTime returns rc.Now, nudged past the conversation's latest
// message so creation times stay strictly increasing.
func nextMessageTime(rc *RequestContext, conversationID string) (time.Time, error) {
	latest, err := rc.Repos.Messages.Latest(rc.Ctx, conversationID)
	if err != nil {
		return time.Time{}, err
	}
	if latest != nil && !rc.Now.After(latest.CreatedAt) {
		return latest.CreatedAt.Add(time.Microsecond), nil
	}
	return rc.Now, nil
}

// ListMessages returns a conversation's messages oldest first, enriched for
// the viewer. Anonymous viewers are allowed; IsOwn is then always false.
func (s *Service) ListMessages(ctx context.Context, caller Identity, conversationID string) ([]models.MessageView, error) {
	out := []models.MessageView{}
	err := s.query(ctx, "list_messages", caller, func(rc *RequestContext) error {
		me, err := rc.CurrentUser()
		if err != nil {
			return err
		}
		messages, err := rc.Repos.Messages.ListByConversation(rc.Ctx, conversationID)
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(messages))
		for _, m := range messages {
			ids = append(ids, m.ID)
		}
		reactions, err := rc.Repos.Reactions.ListByMessages(rc.Ctx, ids)
		if err != nil {
			return err
		}
		byMessage := make(map[string][]models.MessageReaction, len(messages))
		for _, r := range reactions {
			byMessage[r.MessageID] = append(byMessage[r.MessageID], r)
		}

		users := map[string]*models.User{}
		lookup := func(id string) (*models.User, error) {
			if u, ok := users[id]; ok {
				return u, nil
			}
			u, err := rc.Repos.Users.GetByID(rc.Ctx, id)
			if errors.Is(err, repositories.ErrUserNotFound) {
				users[id] = nil
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			users[id] = &u
			return &u, nil
		}

		for _, m := range messages {
			sender, err := lookup(m.SenderID)
			if err != nil {
				return err
			}
			view := models.MessageView{
				Message:   m,
				Sender:    sender,
				IsOwn:     me != nil && m.SenderID == me.ID,
				Reactions: byMessage[m.ID],
			}
			if view.Reactions == nil {
				view.Reactions = []models.MessageReaction{}
			}
			if m.ReplyToID != nil {
				if view.ReplyTo, err = replySummary(rc, *m.ReplyToID, lookup); err != nil {
					return err
				}
			}
			out = append(out, view)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func replySummary(rc *RequestContext, id string, lookup func(string) (*models.User, error)) (*models.ReplySummary, error) {
	target, err := rc.Repos.Messages.Get(rc.Ctx, id)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	summary := &models.ReplySummary{ID: target.ID, Deleted: target.Deleted, SenderName: unknownSender}
	if !target.Deleted {
		summary.Text = target.Text
	}
	sender, err := lookup(target.SenderID)
	if err != nil {
		return nil, err
	}
	if sender != nil {
		summary.SenderName = sender.Name
	}
	return summary, nil
}

// SendMessageInput is the payload of SendMessage.
type SendMessageInput struct {
	ConversationID string
	Text           string
	ReplyToID      *string
}

// SendMessage appends a message to a conversation the caller belongs to.
// Direct conversations reject the send while a block exists in either
// direction.
func (s *Service) SendMessage(ctx context.Context, caller Identity, in SendMessageInput) (string, error) {
	var messageID string
	err := s.mutate(ctx, "send_message", caller, func(rc *RequestContext) error {
		me, err := rc.RequireUser()
		if err != nil {
			return err
		}
		if strings.TrimSpace(in.Text) == "" {
			return fmt.Errorf("%w: message text is empty", ErrInvalidArgument)
		}
		conv, err := rc.conversation(in.ConversationID)
		if err != nil {
			return err
		}
		if !conv.HasMember(me.ID) {
			return fmt.Errorf("%w: not a member of this conversation", ErrForbidden)
		}
		if !conv.IsGroup {
			if err := checkDirectBlocks(rc, me.ID, conv); err != nil {
				return err
			}
		}
		if in.ReplyToID != nil {
			target, err := rc.message(*in.ReplyToID)
			if err != nil {
				return err
			}
			if target.ConversationID != conv.ID {
				return fmt.Errorf("%w: reply target belongs to another conversation", ErrInvalidArgument)
			}
		}

		createdAt, err := nextMessageTime(rc, conv.ID)
		if err != nil {
			return err
		}
		msg := models.Message{
			ID:             s.newID(),
			ConversationID: conv.ID,
			SenderID:       me.ID,
			Text:           in.Text,
			Kind:           models.MessageKindUser,
			ReplyToID:      in.ReplyToID,
			CreatedAt:      createdAt,
		}
		if err := rc.Repos.Messages.Create(rc.Ctx, msg); err != nil {
			return err
		}
		if err := rc.Repos.Conversations.TouchLastMessage(rc.Ctx, conv.ID, createdAt); err != nil {
			return err
		}
		messageID = msg.ID
		kind := "direct"
		if conv.IsGroup {
			kind = "group"
		}
		rc.OnCommit(func() { observability.IncMessageSent(kind) })
		rc.Emit(Event{Type: EventMessageCreated, ConversationID: conv.ID, MessageID: msg.ID, ActorID: me.ID, UserIDs: conv.MemberIDs})
		return nil
	})
	if errors.Is(err, ErrCommunicationBlocked) {
		observability.IncBlockedSend()
	}
	return messageID, err
}

func checkDirectBlocks(rc *RequestContext, meID string, conv models.Conversation) error {
	others := conv.OtherMembers(meID)
	if len(others) == 0 {
		return nil
	}
	other := others[0]
	blocked, err := rc.Repos.Blocks.Exists(rc.Ctx, other, meID)
	if err != nil {
		return err
	}
	if blocked {
		return fmt.Errorf("%w: you are blocked by this user", ErrCommunicationBlocked)
	}
	blocking, err := rc.Repos.Blocks.Exists(rc.Ctx, meID, other)
	if err != nil {
		return err
	}
	if blocking {
		return fmt.Errorf("%w: you have blocked this user", ErrCommunicationBlocked)
	}
	return nil
}

// SoftDeleteMessage blanks one of the caller's own messages. The message
// keeps its id, position and reactions.
func (s *Service) SoftDeleteMessage(ctx context.Context, caller Identity, messageID string) error {
	return s.mutate(ctx, "soft_delete_message", caller, func(rc *RequestContext) error {
		me, err := rc.RequireUser()
		if err != nil {
			return err
		}
		msg, err := rc.message(messageID)
		if err != nil {
			return err
		}
		if msg.SenderID != me.ID {
			return fmt.Errorf("%w: you can only delete your own messages", ErrForbidden)
		}
		if err := rc.Repos.Messages.SoftDelete(rc.Ctx, msg.ID); err != nil {
			return err
		}
		recipients, err := conversationRecipients(rc, msg.ConversationID)
		if err != nil {
			return err
		}
		rc.Emit(Event{Type: EventMessageDeleted, ConversationID: msg.ConversationID, MessageID: msg.ID, ActorID: me.ID, UserIDs: recipients})
		return nil
	})
}

// ToggleReaction adds the caller's emoji to a message, or removes it when
// already present. The result reports whether it was removed.
func (s *Service) ToggleReaction(ctx context.Context, caller Identity, messageID, emoji string) (bool, error) {
	var removed bool
	err := s.mutate(ctx, "toggle_reaction", caller, func(rc *RequestContext) error {
		me, err := rc.RequireUser()
		if err != nil {
			return err
		}
		if !validReaction(emoji) {
			return fmt.Errorf("%w: unsupported reaction %q", ErrInvalidArgument, emoji)
		}
		msg, err := rc.message(messageID)
		if err != nil {
			return err
		}
		if removed, err = rc.Repos.Reactions.Remove(rc.Ctx, msg.ID, me.ID, emoji); err != nil {
			return err
		}
		if !removed {
			if err := rc.Repos.Reactions.Add(rc.Ctx, models.MessageReaction{
				ID:        s.newID(),
				MessageID: msg.ID,
				UserID:    me.ID,
				Emoji:     emoji,
				CreatedAt: rc.Now,
			}); err != nil {
				return err
			}
		}
		recipients, err := conversationRecipients(rc, msg.ConversationID)
		if err != nil {
			return err
		}
		rc.Emit(Event{Type: EventReactionToggled, ConversationID: msg.ConversationID, MessageID: msg.ID, ActorID: me.ID, UserIDs: recipients})
		return nil
	})
	return removed, err
}

// MarkConversationRead moves the caller's read marker to the newest message
// of the conversation. With no messages the marker sits one microsecond
// before now, so a message created in the same instant still counts as
// unread. Anonymous callers are ignored.
func (s *Service) MarkConversationRead(ctx context.Context, caller Identity, conversationID string) error {
	if !caller.Authenticated() {
		return nil
	}
	return s.mutate(ctx, "mark_read", caller, func(rc *RequestContext) error {
		me, err := rc.CurrentUser()
		if err != nil || me == nil {
			return err
		}
		lastReadAt := rc.Now.Add(-time.Microsecond)
		latest, err := rc.Repos.Messages.Latest(rc.Ctx, conversationID)
		if err != nil {
			return err
		}
		if latest != nil {
			lastReadAt = latest.CreatedAt
		}
		if err := rc.Repos.Reads.Upsert(rc.Ctx, models.ConversationRead{
			ConversationID: conversationID,
			UserID:         me.ID,
			LastReadAt:     lastReadAt,
		}); err != nil {
			return err
		}
		rc.Emit(Event{Type: EventReadUpdated, ConversationID: conversationID, ActorID: me.ID, UserIDs: []string{me.ID}})
		return nil
	})
}

func conversationRecipients(rc *RequestContext, conversationID string) ([]string, error) {
	conv, err := rc.Repos.Conversations.Get(rc.Ctx, conversationID)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return conv.MemberIDs, nil
}
