package chat

import (
	"context"
	"fmt"

	"realtime-chat/internal/models"
)

// ToggleBlock flips the caller's block on otherUserID and reports whether the
// block is now in place.
func (s *Service) ToggleBlock(ctx context.Context, caller Identity, otherUserID string) (bool, error) {
	var blocked bool
	err := s.mutate(ctx, "toggle_block", caller, func(rc *RequestContext) error {
		me, err := rc.RequireUser()
		if err != nil {
			return err
		}
		if otherUserID == me.ID {
			return fmt.Errorf("%w: you cannot block yourself", ErrInvalidArgument)
		}
		if _, err := rc.userByID(otherUserID); err != nil {
			return err
		}
		removed, err := rc.Repos.Blocks.Remove(rc.Ctx, me.ID, otherUserID)
		if err != nil {
			return err
		}
		if !removed {
			if err := rc.Repos.Blocks.Add(rc.Ctx, models.Block{BlockerID: me.ID, BlockedID: otherUserID, CreatedAt: rc.Now}); err != nil {
				return err
			}
		}
		blocked = !removed
		rc.Emit(Event{Type: EventBlockUpdated, ActorID: me.ID, UserIDs: []string{me.ID, otherUserID}})
		return nil
	})
	return blocked, err
}

// BlockedUsers lists the ids the caller has blocked. Anonymous callers get
// an empty list.
func (s *Service) BlockedUsers(ctx context.Context, caller Identity) ([]string, error) {
	ids := []string{}
	err := s.query(ctx, "blocked_users", caller, func(rc *RequestContext) error {
		me, err := rc.CurrentUser()
		if err != nil || me == nil {
			return err
		}
		blocks, err := rc.Repos.Blocks.ListBlockedBy(rc.Ctx, me.ID)
		if err != nil {
			return err
		}
		for _, b := range blocks {
			ids = append(ids, b.BlockedID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CheckIfBlocked reports both block directions between the caller and
// otherUserID.
func (s *Service) CheckIfBlocked(ctx context.Context, caller Identity, otherUserID string) (models.BlockStatus, error) {
	var status models.BlockStatus
	err := s.query(ctx, "check_if_blocked", caller, func(rc *RequestContext) error {
		me, err := rc.CurrentUser()
		if err != nil || me == nil {
			return err
		}
		if status.AmIBlocked, err = rc.Repos.Blocks.Exists(rc.Ctx, otherUserID, me.ID); err != nil {
			return err
		}
		status.DidIBlock, err = rc.Repos.Blocks.Exists(rc.Ctx, me.ID, otherUserID)
		return err
	})
	return status, err
}
