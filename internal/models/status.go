package models

import "time"

// TypingStatus is the typing flag of one user in one conversation.
type TypingStatus struct {
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	UserID         string    `db:"user_id" json:"user_id"`
	IsTyping       bool      `db:"is_typing" json:"is_typing"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Presence is the last heartbeat of a user.
type Presence struct {
	UserID   string    `db:"user_id" json:"user_id"`
	LastSeen time.Time `db:"last_seen" json:"last_seen"`
}

// ConversationRead is the read watermark of one user in one conversation.
type ConversationRead struct {
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	UserID         string    `db:"user_id" json:"user_id"`
	LastReadAt     time.Time `db:"last_read_at" json:"last_read_at"`
}

// Block is a directed block relationship.
type Block struct {
	BlockerID string    `db:"blocker_id" json:"blocker_id"`
	BlockedID string    `db:"blocked_id" json:"blocked_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
