package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"realtime-chat/internal/models"
)

const messageColumns = `id, conversation_id, sender_id, text, kind, notice, deleted, reply_to_id, created_at`

type messageRow struct {
	ID             string         `db:"id"`
	ConversationID string         `db:"conversation_id"`
	SenderID       string         `db:"sender_id"`
	Text           string         `db:"text"`
	Kind           string         `db:"kind"`
	Notice         []byte         `db:"notice"`
	Deleted        bool           `db:"deleted"`
	ReplyToID      sql.NullString `db:"reply_to_id"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (row messageRow) model() (models.Message, error) {
	msg := models.Message{
		ID:             row.ID,
		ConversationID: row.ConversationID,
		SenderID:       row.SenderID,
		Text:           row.Text,
		Kind:           models.MessageKind(row.Kind),
		Deleted:        row.Deleted,
		CreatedAt:      row.CreatedAt,
	}
	if row.ReplyToID.Valid {
		msg.ReplyToID = &row.ReplyToID.String
	}
	if len(row.Notice) > 0 {
		var notice models.Notice
		if err := json.Unmarshal(row.Notice, &notice); err != nil {
			return models.Message{}, fmt.Errorf("decode notice of message %s: %w", row.ID, err)
		}
		msg.Notice = &notice
	}
	return msg, nil
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db DBTX
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db DBTX) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, msg models.Message) error {
	var notice sql.NullString
	if msg.Notice != nil {
		raw, err := json.Marshal(msg.Notice)
		if err != nil {
			return fmt.Errorf("encode notice: %w", err)
		}
		notice = sql.NullString{String: string(raw), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO messages (id, conversation_id, sender_id, text, kind, notice, deleted, reply_to_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Text, string(msg.Kind), notice, msg.Deleted, msg.ReplyToID, msg.CreatedAt)
	return err
}

func (r *MessageRepo) Get(ctx context.Context, id string) (models.Message, error) {
	var row messageRow
	err := r.db.GetContext(ctx, &row, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	return row.model()
}

func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	var rows []messageRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+messageColumns+` FROM messages
        WHERE conversation_id=$1 ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := row.model()
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// Latest returns the newest message of the conversation, or nil when it has none.
func (r *MessageRepo) Latest(ctx context.Context, conversationID string) (*models.Message, error) {
	var row messageRow
	err := r.db.GetContext(ctx, &row, `SELECT `+messageColumns+` FROM messages
        WHERE conversation_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	msg, err := row.model()
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepo) SoftDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET deleted = TRUE, text = '' WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrMessageNotFound)
}

func (r *MessageRepo) IDsByConversation(ctx context.Context, conversationID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM messages WHERE conversation_id=$1`, conversationID)
	return ids, err
}

func (r *MessageRepo) DeleteByConversation(ctx context.Context, conversationID string) (int, error) {
	return affected(r.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id=$1`, conversationID))
}
