package chat

import (
	"context"
	"fmt"
	"time"
)

// Heartbeat records that the caller is online. Anonymous callers are ignored.
// The presence backend may live outside the database, so it is written only
// after lastSeenAt has committed.
func (s *Service) Heartbeat(ctx context.Context, caller Identity) error {
	if !caller.Authenticated() {
		return nil
	}
	var (
		userID string
		at     time.Time
	)
	err := s.mutate(ctx, "heartbeat", caller, func(rc *RequestContext) error {
		me, err := rc.CurrentUser()
		if err != nil || me == nil {
			return err
		}
		if err := rc.Repos.Users.TouchLastSeen(rc.Ctx, me.ID, rc.Now); err != nil {
			return err
		}
		userID, at = me.ID, rc.Now
		return nil
	})
	if err != nil || userID == "" {
		return err
	}
	if err := s.store.Repos().Presence.Touch(ctx, userID, at); err != nil {
		return fmt.Errorf("record presence: %w", err)
	}
	return nil
}

// OnlineUsers returns the ids of users whose last heartbeat falls inside the
// presence window.
func (s *Service) OnlineUsers(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := s.query(ctx, "online_users", Identity{}, func(rc *RequestContext) error {
		presences, err := rc.Repos.Presence.ListSince(rc.Ctx, rc.Now.Add(-s.presenceWindow))
		if err != nil {
			return err
		}
		for _, p := range presences {
			ids = append(ids, p.UserID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
