package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx.
type DBTX interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// SQLStore is the postgres-backed Store.
type SQLStore struct {
	db       *sqlx.DB
	presence PresenceRepository
}

// NewSQLStore constructs a SQLStore. A non-nil presence overrides the
// table-backed presence repository.
func NewSQLStore(db *sqlx.DB, presence PresenceRepository) *SQLStore {
	return &SQLStore{db: db, presence: presence}
}

func (s *SQLStore) bind(q DBTX) Repos {
	repos := Repos{
		Users:         NewUserRepo(q),
		Conversations: NewConversationRepo(q),
		Messages:      NewMessageRepo(q),
		Reactions:     NewReactionRepo(q),
		Reads:         NewReadRepo(q),
		Typing:        NewTypingRepo(q),
		Presence:      NewPresenceRepo(q),
		Blocks:        NewBlockRepo(q),
	}
	if s.presence != nil {
		repos.Presence = s.presence
	}
	return repos
}

// Repos returns repositories running outside any transaction.
func (s *SQLStore) Repos() Repos {
	return s.bind(s.db)
}

// WithTx runs fn in a single database transaction.
func (s *SQLStore) WithTx(ctx context.Context, fn func(Repos) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(s.bind(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
