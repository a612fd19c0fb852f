package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Connect opens the postgres pool and verifies it answers.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(pingCtx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	log.Info().Int("statements", len(migrations)).Msg("database migrations applied")
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            external_id TEXT NOT NULL UNIQUE,
            name TEXT NOT NULL,
            avatar_url TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            last_seen_at TIMESTAMPTZ
        );`,
	`CREATE TABLE IF NOT EXISTS conversations (
            id TEXT PRIMARY KEY,
            is_group BOOLEAN NOT NULL DEFAULT FALSE,
            name TEXT,
            member_ids TEXT[] NOT NULL,
            direct_key TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            last_message_at TIMESTAMPTZ
        );`,
	`CREATE UNIQUE INDEX IF NOT EXISTS conversations_direct_key_idx ON conversations (direct_key) WHERE direct_key IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS conversations_member_ids_idx ON conversations USING GIN (member_ids);`,
	`CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY,
            conversation_id TEXT NOT NULL,
            sender_id TEXT NOT NULL,
            text TEXT NOT NULL,
            kind TEXT NOT NULL DEFAULT 'user',
            notice JSONB,
            deleted BOOLEAN NOT NULL DEFAULT FALSE,
            reply_to_id TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
	`CREATE INDEX IF NOT EXISTS messages_conversation_created_idx ON messages (conversation_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS message_reactions (
            id TEXT PRIMARY KEY,
            message_id TEXT NOT NULL,
            user_id TEXT NOT NULL,
            emoji TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (message_id, user_id, emoji)
        );`,
	`CREATE TABLE IF NOT EXISTS typing_statuses (
            conversation_id TEXT NOT NULL,
            user_id TEXT NOT NULL,
            is_typing BOOLEAN NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL,
            PRIMARY KEY (conversation_id, user_id)
        );`,
	`CREATE TABLE IF NOT EXISTS presences (
            user_id TEXT PRIMARY KEY,
            last_seen TIMESTAMPTZ NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS conversation_reads (
            conversation_id TEXT NOT NULL,
            user_id TEXT NOT NULL,
            last_read_at TIMESTAMPTZ NOT NULL,
            PRIMARY KEY (conversation_id, user_id)
        );`,
	`CREATE TABLE IF NOT EXISTS blocked_users (
            blocker_id TEXT NOT NULL,
            blocked_id TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (blocker_id, blocked_id)
        );`,
	`CREATE INDEX IF NOT EXISTS blocked_users_blocked_idx ON blocked_users (blocked_id);`,
}
