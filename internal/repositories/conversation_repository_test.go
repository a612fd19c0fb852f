package repositories

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-chat/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func directConversation() models.Conversation {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	key := models.DirectKey("u1", "u2")
	return models.Conversation{ID: "c1", MemberIDs: []string{"u1", "u2"}, DirectKey: &key, CreatedAt: at, UpdatedAt: at}
}

var insertConversation = regexp.QuoteMeta(`INSERT INTO conversations`)

func TestConversationCreateMapsUniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(insertConversation).WillReturnError(&pq.Error{Code: "23505", Constraint: "conversations_direct_key_key"})

	err := NewConversationRepo(db).Create(context.Background(), directConversation())
	assert.ErrorIs(t, err, ErrConversationExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationCreatePassesOtherErrorsThrough(t *testing.T) {
	db, mock := newMockDB(t)
	fkViolation := &pq.Error{Code: "23503"}
	mock.ExpectExec(insertConversation).WillReturnError(fkViolation)

	err := NewConversationRepo(db).Create(context.Background(), directConversation())
	assert.False(t, errors.Is(err, ErrConversationExists))
	var pqErr *pq.Error
	require.ErrorAs(t, err, &pqErr)
	assert.Equal(t, pq.ErrorCode("23503"), pqErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationCreateInserts(t *testing.T) {
	db, mock := newMockDB(t)
	conv := directConversation()
	mock.ExpectExec(insertConversation).
		WithArgs(conv.ID, false, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), conv.CreatedAt, conv.UpdatedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewConversationRepo(db).Create(context.Background(), conv))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationGetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM conversations WHERE id=$1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewConversationRepo(db).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
