package repositories

import (
	"context"
	"errors"
	"time"

	"realtime-chat/internal/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationExists   = errors.New("conversation already exists")
	ErrMessageNotFound      = errors.New("message not found")
	ErrReadNotFound         = errors.New("read marker not found")
)

// UserRepository persists identity-bound users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (models.User, error)
	Create(ctx context.Context, user models.User) error
	UpdateProfile(ctx context.Context, id, name, avatarURL string, at time.Time) error
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context) ([]models.User, error)
}

// ConversationRepository persists direct and group conversations.
type ConversationRepository interface {
	// Create returns ErrConversationExists when a direct conversation with
	// the same key is already stored.
	Create(ctx context.Context, conv models.Conversation) error
	Get(ctx context.Context, id string) (models.Conversation, error)
	FindDirect(ctx context.Context, directKey string) (models.Conversation, error)
	ListForMember(ctx context.Context, userID string) ([]models.Conversation, error)
	UpdateMembers(ctx context.Context, id string, memberIDs []string, at time.Time) error
	TouchLastMessage(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// MessageRepository persists conversation messages.
type MessageRepository interface {
	Create(ctx context.Context, msg models.Message) error
	Get(ctx context.Context, id string) (models.Message, error)
	// ListByConversation returns messages in ascending creation order.
	ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error)
	Latest(ctx context.Context, conversationID string) (*models.Message, error)
	SoftDelete(ctx context.Context, id string) error
	IDsByConversation(ctx context.Context, conversationID string) ([]string, error)
	DeleteByConversation(ctx context.Context, conversationID string) (int, error)
}

// ReactionRepository persists message reactions.
type ReactionRepository interface {
	Add(ctx context.Context, reaction models.MessageReaction) error
	// Remove reports whether a matching reaction existed.
	Remove(ctx context.Context, messageID, userID, emoji string) (bool, error)
	ListByMessages(ctx context.Context, messageIDs []string) ([]models.MessageReaction, error)
	DeleteByMessages(ctx context.Context, messageIDs []string) (int, error)
}

// ReadRepository persists per-user read watermarks.
type ReadRepository interface {
	Get(ctx context.Context, conversationID, userID string) (models.ConversationRead, error)
	Upsert(ctx context.Context, read models.ConversationRead) error
	DeleteByConversation(ctx context.Context, conversationID string) (int, error)
}

// TypingRepository persists typing flags.
type TypingRepository interface {
	Upsert(ctx context.Context, status models.TypingStatus) error
	ListByConversation(ctx context.Context, conversationID string) ([]models.TypingStatus, error)
	DeleteByConversation(ctx context.Context, conversationID string) (int, error)
}

// PresenceRepository records heartbeats.
type PresenceRepository interface {
	Touch(ctx context.Context, userID string, at time.Time) error
	// ListSince returns every presence with a heartbeat at or after since.
	ListSince(ctx context.Context, since time.Time) ([]models.Presence, error)
}

// BlockRepository persists directed block relationships.
type BlockRepository interface {
	Exists(ctx context.Context, blockerID, blockedID string) (bool, error)
	Add(ctx context.Context, block models.Block) error
	// Remove reports whether the relationship existed.
	Remove(ctx context.Context, blockerID, blockedID string) (bool, error)
	ListBlockedBy(ctx context.Context, blockerID string) ([]models.Block, error)
}

// Repos groups the repositories bound to one unit of work.
type Repos struct {
	Users         UserRepository
	Conversations ConversationRepository
	Messages      MessageRepository
	Reactions     ReactionRepository
	Reads         ReadRepository
	Typing        TypingRepository
	Presence      PresenceRepository
	Blocks        BlockRepository
}

// Store hands out repositories and runs atomic units of work.
type Store interface {
	Repos() Repos
	// WithTx runs fn against repositories bound to a single transaction.
	// Nothing fn wrote is visible to others unless it returns nil.
	WithTx(ctx context.Context, fn func(Repos) error) error
	Ping(ctx context.Context) error
	Close() error
}
