package models

import "time"

// User is the local record bound to an external identity.
type User struct {
	ID         string     `db:"id" json:"id"`
	ExternalID string     `db:"external_id" json:"external_id"`
	Name       string     `db:"name" json:"name"`
	AvatarURL  string     `db:"avatar_url" json:"avatar_url"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	LastSeenAt *time.Time `db:"last_seen_at" json:"last_seen_at,omitempty"`
}
