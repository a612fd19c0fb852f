package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"realtime-chat/internal/models"
)

const conversationColumns = `id, is_group, name, member_ids, direct_key, created_at, updated_at, last_message_at`

type conversationRow struct {
	ID            string         `db:"id"`
	IsGroup       bool           `db:"is_group"`
	Name          sql.NullString `db:"name"`
	MemberIDs     pq.StringArray `db:"member_ids"`
	DirectKey     sql.NullString `db:"direct_key"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	LastMessageAt sql.NullTime   `db:"last_message_at"`
}

func (row conversationRow) model() models.Conversation {
	conv := models.Conversation{
		ID:        row.ID,
		IsGroup:   row.IsGroup,
		MemberIDs: []string(row.MemberIDs),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.Name.Valid {
		conv.Name = &row.Name.String
	}
	if row.DirectKey.Valid {
		conv.DirectKey = &row.DirectKey.String
	}
	if row.LastMessageAt.Valid {
		conv.LastMessageAt = &row.LastMessageAt.Time
	}
	return conv
}

func conversationModels(rows []conversationRow) []models.Conversation {
	out := make([]models.Conversation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db DBTX
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db DBTX) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) Create(ctx context.Context, conv models.Conversation) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO conversations (id, is_group, name, member_ids, direct_key, created_at, updated_at, last_message_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		conv.ID, conv.IsGroup, conv.Name, pq.Array(conv.MemberIDs), conv.DirectKey, conv.CreatedAt, conv.UpdatedAt, conv.LastMessageAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrConversationExists
	}
	return err
}

func (r *ConversationRepo) Get(ctx context.Context, id string) (models.Conversation, error) {
	var row conversationRow
	err := r.db.GetContext(ctx, &row, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Conversation{}, err
	}
	return row.model(), nil
}

// FindDirect looks up a direct conversation by its dedup key.
func (r *ConversationRepo) FindDirect(ctx context.Context, directKey string) (models.Conversation, error) {
	var row conversationRow
	err := r.db.GetContext(ctx, &row, `SELECT `+conversationColumns+` FROM conversations WHERE direct_key=$1`, directKey)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Conversation{}, err
	}
	return row.model(), nil
}

func (r *ConversationRepo) ListForMember(ctx context.Context, userID string) ([]models.Conversation, error) {
	var rows []conversationRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+conversationColumns+` FROM conversations
        WHERE member_ids @> ARRAY[$1]::TEXT[]
        ORDER BY COALESCE(last_message_at, created_at) DESC`, userID)
	if err != nil {
		return nil, err
	}
	return conversationModels(rows), nil
}

func (r *ConversationRepo) UpdateMembers(ctx context.Context, id string, memberIDs []string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conversations SET member_ids=$2, updated_at=$3 WHERE id=$1`, id, pq.Array(memberIDs), at)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrConversationNotFound)
}

func (r *ConversationRepo) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conversations SET last_message_at=$2, updated_at=$2 WHERE id=$1`, id, at)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrConversationNotFound)
}

func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrConversationNotFound)
}
