package models

// ConversationSummary is a conversation as listed for one viewer.
type ConversationSummary struct {
	Conversation Conversation `json:"conversation"`
	Members      []User       `json:"members"`
	LastMessage  *Message     `json:"last_message"`
	UnreadCount  int          `json:"unread_count"`
}

// ReplySummary describes the message a reply points at.
type ReplySummary struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Deleted    bool   `json:"deleted"`
	SenderName string `json:"sender_name"`
}

// MessageView is a message enriched for one viewer.
type MessageView struct {
	Message   Message           `json:"message"`
	Sender    *User             `json:"sender"`
	IsOwn     bool              `json:"is_own"`
	Reactions []MessageReaction `json:"reactions"`
	ReplyTo   *ReplySummary     `json:"reply_to"`
}

// TypingUser is a user currently typing.
type TypingUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BlockStatus reports both directions of blocking between two users.
type BlockStatus struct {
	AmIBlocked bool `json:"am_i_blocked"`
	DidIBlock  bool `json:"did_i_block"`
}
