package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"realtime-chat/internal/models"
)

const userColumns = `id, external_id, name, avatar_url, created_at, updated_at, last_seen_at`

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db DBTX
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

func (r *UserRepo) GetByExternalID(ctx context.Context, externalID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE external_id=$1`, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

func (r *UserRepo) Create(ctx context.Context, user models.User) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (id, external_id, name, avatar_url, created_at, updated_at, last_seen_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.ExternalID, user.Name, user.AvatarURL, user.CreatedAt, user.UpdatedAt, user.LastSeenAt)
	return err
}

// UpdateProfile overwrites name and avatar.
func (r *UserRepo) UpdateProfile(ctx context.Context, id, name, avatarURL string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET name=$2, avatar_url=$3, updated_at=$4 WHERE id=$1`, id, name, avatarURL, at)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrUserNotFound)
}

func (r *UserRepo) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_seen_at=$2 WHERE id=$1`, id, at)
	return err
}

// List returns every user ordered by name.
func (r *UserRepo) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY name ASC, id ASC`)
	return users, err
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func affected(res sql.Result, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
