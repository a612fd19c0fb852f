package repositories

import (
	"context"

	"github.com/lib/pq"

	"realtime-chat/internal/models"
)

// ReactionRepo is a sqlx implementation of ReactionRepository.
type ReactionRepo struct {
	db DBTX
}

// NewReactionRepo constructs a ReactionRepo.
func NewReactionRepo(db DBTX) *ReactionRepo {
	return &ReactionRepo{db: db}
}

// Add inserts the reaction. A duplicate (message, user, emoji) is ignored.
func (r *ReactionRepo) Add(ctx context.Context, reaction models.MessageReaction) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO message_reactions (id, message_id, user_id, emoji, created_at)
        VALUES ($1, $2, $3, $4, $5) ON CONFLICT (message_id, user_id, emoji) DO NOTHING`,
		reaction.ID, reaction.MessageID, reaction.UserID, reaction.Emoji, reaction.CreatedAt)
	return err
}

func (r *ReactionRepo) Remove(ctx context.Context, messageID, userID, emoji string) (bool, error) {
	n, err := affected(r.db.ExecContext(ctx, `DELETE FROM message_reactions WHERE message_id=$1 AND user_id=$2 AND emoji=$3`,
		messageID, userID, emoji))
	return n > 0, err
}

func (r *ReactionRepo) ListByMessages(ctx context.Context, messageIDs []string) ([]models.MessageReaction, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	var reactions []models.MessageReaction
	err := r.db.SelectContext(ctx, &reactions, `SELECT id, message_id, user_id, emoji, created_at FROM message_reactions
        WHERE message_id = ANY($1) ORDER BY created_at ASC, id ASC`, pq.Array(messageIDs))
	return reactions, err
}

func (r *ReactionRepo) DeleteByMessages(ctx context.Context, messageIDs []string) (int, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	return affected(r.db.ExecContext(ctx, `DELETE FROM message_reactions WHERE message_id = ANY($1)`, pq.Array(messageIDs)))
}
