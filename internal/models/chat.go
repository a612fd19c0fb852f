package models

import (
	"slices"
	"time"
)

// Conversation is a direct or group chat.
type Conversation struct {
	ID            string     `json:"id"`
	IsGroup       bool       `json:"is_group"`
	Name          *string    `json:"name,omitempty"`
	MemberIDs     []string   `json:"member_ids"`
	DirectKey     *string    `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// HasMember reports whether userID belongs to the conversation.
func (c Conversation) HasMember(userID string) bool {
	return slices.Contains(c.MemberIDs, userID)
}

// OtherMembers returns every member except userID.
func (c Conversation) OtherMembers(userID string) []string {
	out := make([]string, 0, len(c.MemberIDs))
	for _, id := range c.MemberIDs {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}

// ActivityAt is the instant conversation lists are ordered by.
func (c Conversation) ActivityAt() time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}

// DirectKey derives the dedup key of a direct conversation between a and b.
// A self conversation (a == b) is keyed by the single member id.
func DirectKey(a, b string) string {
	if a == b {
		return a
	}
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// MessageKind distinguishes user-authored messages from system notices.
type MessageKind string

const (
	MessageKindUser   MessageKind = "user"
	MessageKindSystem MessageKind = "system"
)

// NoticeMemberLeft is the notice type appended when a member leaves a group.
const NoticeMemberLeft = "member_left"

// Notice carries the structured payload of a system message.
type Notice struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id,omitempty"`
	UserName string `json:"user_name,omitempty"`
}

// Message is a single entry in a conversation.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	Text           string      `json:"text"`
	Kind           MessageKind `json:"kind"`
	Notice         *Notice     `json:"notice,omitempty"`
	Deleted        bool        `json:"deleted"`
	ReplyToID      *string     `json:"reply_to_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// MessageReaction ties one emoji from one user to one message.
type MessageReaction struct {
	ID        string    `db:"id" json:"id"`
	MessageID string    `db:"message_id" json:"message_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Emoji     string    `db:"emoji" json:"emoji"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
