package chat

import (
	"context"
	"errors"
	"sort"
	"strings"

	"realtime-chat/internal/models"
	"realtime-chat/internal/repositories"
)

// SyncUser binds the caller's identity to a local user, creating it on first
// sight and refreshing the profile on every call. Anonymous callers get nil.
func (s *Service) SyncUser(ctx context.Context, caller Identity, name, avatarURL string) (*string, error) {
	if !caller.Authenticated() {
		return nil, nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = caller.Name
	}

	var userID string
	err := s.mutate(ctx, "sync_user", caller, func(rc *RequestContext) error {
		existing, err := rc.Repos.Users.GetByExternalID(rc.Ctx, caller.Subject)
		switch {
		case err == nil:
			if err := rc.Repos.Users.UpdateProfile(rc.Ctx, existing.ID, name, avatarURL, rc.Now); err != nil {
				return err
			}
			userID = existing.ID
			return rc.Repos.Users.TouchLastSeen(rc.Ctx, existing.ID, rc.Now)
		case errors.Is(err, repositories.ErrUserNotFound):
			now := rc.Now
			user := models.User{
				ID:         s.newID(),
				ExternalID: caller.Subject,
				Name:       name,
				AvatarURL:  avatarURL,
				CreatedAt:  now,
				UpdatedAt:  now,
				LastSeenAt: &now,
			}
			userID = user.ID
			return rc.Repos.Users.Create(rc.Ctx, user)
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return &userID, nil
}

// CurrentUser returns the caller's user, or nil when there is none.
func (s *Service) CurrentUser(ctx context.Context, caller Identity) (*models.User, error) {
	var user *models.User
	err := s.query(ctx, "current_user", caller, func(rc *RequestContext) error {
		var err error
		user, err = rc.CurrentUser()
		return err
	})
	return user, err
}

// SearchUsers lists every other user whose name contains search, ignoring
// case, ordered by name.
func (s *Service) SearchUsers(ctx context.Context, caller Identity, search string) ([]models.User, error) {
	out := []models.User{}
	err := s.query(ctx, "search_users", caller, func(rc *RequestContext) error {
		me, err := rc.CurrentUser()
		if err != nil || me == nil {
			return err
		}
		all, err := rc.Repos.Users.List(rc.Ctx)
		if err != nil {
			return err
		}
		needle := strings.ToLower(strings.TrimSpace(search))
		for _, user := range all {
			if user.ID == me.ID {
				continue
			}
			if needle != "" && !strings.Contains(strings.ToLower(user.Name), needle) {
				continue
			}
			out = append(out, user)
		}
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
