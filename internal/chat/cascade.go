package chat

import (
	"fmt"

	"realtime-chat/internal/models"
)

// cascadeDelete removes a conversation and every record that exists only in
// reference to it, children first: reactions, messages, read markers,
// typing rows, then the conversation.
func cascadeDelete(rc *RequestContext, conv models.Conversation) error {
	messageIDs, err := rc.Repos.Messages.IDsByConversation(rc.Ctx, conv.ID)
	if err != nil {
		return fmt.Errorf("cascade %s: list messages: %w", conv.ID, err)
	}
	if _, err := rc.Repos.Reactions.DeleteByMessages(rc.Ctx, messageIDs); err != nil {
		return fmt.Errorf("cascade %s: reactions: %w", conv.ID, err)
	}
	if _, err := rc.Repos.Messages.DeleteByConversation(rc.Ctx, conv.ID); err != nil {
		return fmt.Errorf("cascade %s: messages: %w", conv.ID, err)
	}
	if _, err := rc.Repos.Reads.DeleteByConversation(rc.Ctx, conv.ID); err != nil {
		return fmt.Errorf("cascade %s: reads: %w", conv.ID, err)
	}
	if _, err := rc.Repos.Typing.DeleteByConversation(rc.Ctx, conv.ID); err != nil {
		return fmt.Errorf("cascade %s: typing: %w", conv.ID, err)
	}
	if err := rc.Repos.Conversations.Delete(rc.Ctx, conv.ID); err != nil {
		return fmt.Errorf("cascade %s: conversation: %w", conv.ID, err)
	}
	actor := ""
	if me, _ := rc.CurrentUser(); me != nil {
		actor = me.ID
	}
	rc.Emit(Event{Type: EventConversationDeleted, ConversationID: conv.ID, ActorID: actor, UserIDs: conv.MemberIDs})
	return nil
}
