package chat

import (
	"context"

	"realtime-chat/internal/models"
)

// SetTyping records the caller's typing flag for a conversation.
func (s *Service) SetTyping(ctx context.Context, caller Identity, conversationID string, isTyping bool) error {
	return s.mutate(ctx, "set_typing", caller, func(rc *RequestContext) error {
		me, err := rc.RequireUser()
		if err != nil {
			return err
		}
		conv, err := rc.conversation(conversationID)
		if err != nil {
			return err
		}
		if err := rc.Repos.Typing.Upsert(rc.Ctx, models.TypingStatus{
			ConversationID: conversationID,
			UserID:         me.ID,
			IsTyping:       isTyping,
			UpdatedAt:      rc.Now,
		}); err != nil {
			return err
		}
		rc.Emit(Event{Type: EventTypingUpdated, ConversationID: conversationID, ActorID: me.ID, UserIDs: conv.OtherMembers(me.ID)})
		return nil
	})
}

// TypingForConversation returns the other users with a fresh typing flag.
// Stale rows are ignored, not removed.
func (s *Service) TypingForConversation(ctx context.Context, caller Identity, conversationID string) ([]models.TypingUser, error) {
	out := []models.TypingUser{}
	err := s.query(ctx, "typing_for_conversation", caller, func(rc *RequestContext) error {
		me, err := rc.RequireUser()
		if err != nil {
			return err
		}
		statuses, err := rc.Repos.Typing.ListByConversation(rc.Ctx, conversationID)
		if err != nil {
			return err
		}
		cutoff := rc.Now.Add(-s.typingWindow)
		var ids []string
		for _, st := range statuses {
			if st.UserID == me.ID || !st.IsTyping || st.UpdatedAt.Before(cutoff) {
				continue
			}
			ids = append(ids, st.UserID)
		}
		users, err := rc.usersByID(ids)
		if err != nil {
			return err
		}
		for _, u := range users {
			out = append(out, models.TypingUser{ID: u.ID, Name: u.Name})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
