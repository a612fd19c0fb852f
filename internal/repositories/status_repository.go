package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"realtime-chat/internal/models"
)

// ReadRepo is a sqlx implementation of ReadRepository.
type ReadRepo struct {
	db DBTX
}

// NewReadRepo constructs a ReadRepo.
func NewReadRepo(db DBTX) *ReadRepo {
	return &ReadRepo{db: db}
}

func (r *ReadRepo) Get(ctx context.Context, conversationID, userID string) (models.ConversationRead, error) {
	var read models.ConversationRead
	err := r.db.GetContext(ctx, &read, `SELECT conversation_id, user_id, last_read_at FROM conversation_reads
        WHERE conversation_id=$1 AND user_id=$2`, conversationID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ConversationRead{}, ErrReadNotFound
	}
	return read, err
}

func (r *ReadRepo) Upsert(ctx context.Context, read models.ConversationRead) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO conversation_reads (conversation_id, user_id, last_read_at) VALUES ($1, $2, $3)
        ON CONFLICT (conversation_id, user_id) DO UPDATE SET last_read_at = EXCLUDED.last_read_at`,
		read.ConversationID, read.UserID, read.LastReadAt)
	return err
}

func (r *ReadRepo) DeleteByConversation(ctx context.Context, conversationID string) (int, error) {
	return affected(r.db.ExecContext(ctx, `DELETE FROM conversation_reads WHERE conversation_id=$1`, conversationID))
}

// TypingRepo is a sqlx implementation of TypingRepository.
type TypingRepo struct {
	db DBTX
}

// NewTypingRepo constructs a TypingRepo.
func NewTypingRepo(db DBTX) *TypingRepo {
	return &TypingRepo{db: db}
}

func (r *TypingRepo) Upsert(ctx context.Context, status models.TypingStatus) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO typing_statuses (conversation_id, user_id, is_typing, updated_at) VALUES ($1, $2, $3, $4)
        ON CONFLICT (conversation_id, user_id) DO UPDATE SET is_typing = EXCLUDED.is_typing, updated_at = EXCLUDED.updated_at`,
		status.ConversationID, status.UserID, status.IsTyping, status.UpdatedAt)
	return err
}

func (r *TypingRepo) ListByConversation(ctx context.Context, conversationID string) ([]models.TypingStatus, error) {
	var statuses []models.TypingStatus
	err := r.db.SelectContext(ctx, &statuses, `SELECT conversation_id, user_id, is_typing, updated_at FROM typing_statuses
        WHERE conversation_id=$1 ORDER BY updated_at ASC`, conversationID)
	return statuses, err
}

func (r *TypingRepo) DeleteByConversation(ctx context.Context, conversationID string) (int, error) {
	return affected(r.db.ExecContext(ctx, `DELETE FROM typing_statuses WHERE conversation_id=$1`, conversationID))
}

// PresenceRepo is the table-backed PresenceRepository.
type PresenceRepo struct {
	db DBTX
}

// NewPresenceRepo constructs a PresenceRepo.
func NewPresenceRepo(db DBTX) *PresenceRepo {
	return &PresenceRepo{db: db}
}

func (r *PresenceRepo) Touch(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO presences (user_id, last_seen) VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE SET last_seen = EXCLUDED.last_seen`, userID, at)
	return err
}

func (r *PresenceRepo) ListSince(ctx context.Context, since time.Time) ([]models.Presence, error) {
	var presences []models.Presence
	err := r.db.SelectContext(ctx, &presences, `SELECT user_id, last_seen FROM presences WHERE last_seen >= $1 ORDER BY user_id`, since)
	return presences, err
}

// BlockRepo is a sqlx implementation of BlockRepository.
type BlockRepo struct {
	db DBTX
}

// NewBlockRepo constructs a BlockRepo.
func NewBlockRepo(db DBTX) *BlockRepo {
	return &BlockRepo{db: db}
}

func (r *BlockRepo) Exists(ctx context.Context, blockerID, blockedID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM blocked_users WHERE blocker_id=$1 AND blocked_id=$2)`, blockerID, blockedID)
	return exists, err
}

func (r *BlockRepo) Add(ctx context.Context, block models.Block) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO blocked_users (blocker_id, blocked_id, created_at) VALUES ($1, $2, $3)
        ON CONFLICT (blocker_id, blocked_id) DO NOTHING`, block.BlockerID, block.BlockedID, block.CreatedAt)
	return err
}

func (r *BlockRepo) Remove(ctx context.Context, blockerID, blockedID string) (bool, error) {
	n, err := affected(r.db.ExecContext(ctx, `DELETE FROM blocked_users WHERE blocker_id=$1 AND blocked_id=$2`, blockerID, blockedID))
	return n > 0, err
}

func (r *BlockRepo) ListBlockedBy(ctx context.Context, blockerID string) ([]models.Block, error) {
	var blocks []models.Block
	err := r.db.SelectContext(ctx, &blocks, `SELECT blocker_id, blocked_id, created_at FROM blocked_users
        WHERE blocker_id=$1 ORDER BY created_at ASC`, blockerID)
	return blocks, err
}
