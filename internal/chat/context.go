package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"realtime-chat/internal/models"
	"realtime-chat/internal/repositories"
)

// Identity is a verified assertion from the identity provider. The zero
// value means the caller is anonymous.
type Identity struct {
	Subject string
	Name    string
}

func (id Identity) Authenticated() bool {
	return id.Subject != ""
}

// RequestContext carries everything one operation may touch: the caller's
// identity, repositories bound to the operation's unit of work and the
// instant the operation runs at.
type RequestContext struct {
	Ctx      context.Context
	Identity Identity
	Repos    repositories.Repos
	Now      time.Time

	user     *models.User
	resolved bool
	events   []Event
	hooks    []func()
}

// CurrentUser resolves the caller's local user once. It returns nil without
// error when the caller is anonymous or has not been synced yet.
func (rc *RequestContext) CurrentUser() (*models.User, error) {
	if rc.resolved {
		return rc.user, nil
	}
	if !rc.Identity.Authenticated() {
		rc.resolved = true
		return nil, nil
	}
	user, err := rc.Repos.Users.GetByExternalID(rc.Ctx, rc.Identity.Subject)
	if errors.Is(err, repositories.ErrUserNotFound) {
		rc.resolved = true
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve current user: %w", err)
	}
	rc.user, rc.resolved = &user, true
	return rc.user, nil
}

// RequireUser is CurrentUser for operations that cannot run anonymously.
func (rc *RequestContext) RequireUser() (models.User, error) {
	user, err := rc.CurrentUser()
	if err != nil {
		return models.User{}, err
	}
	if user == nil {
		return models.User{}, ErrAuthenticationRequired
	}
	return *user, nil
}

// Emit queues an event for delivery after the unit of work commits.
func (rc *RequestContext) Emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = rc.Now
	}
	rc.events = append(rc.events, ev)
}

// OnCommit registers fn to run once the unit of work has committed.
func (rc *RequestContext) OnCommit(fn func()) {
	rc.hooks = append(rc.hooks, fn)
}

func (rc *RequestContext) conversation(id string) (models.Conversation, error) {
	conv, err := rc.Repos.Conversations.Get(rc.Ctx, id)
	if errors.Is(err, repositories.ErrConversationNotFound) {
		return models.Conversation{}, fmt.Errorf("%w: conversation %s", ErrNotFound, id)
	}
	return conv, err
}

func (rc *RequestContext) message(id string) (models.Message, error) {
	msg, err := rc.Repos.Messages.Get(rc.Ctx, id)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return models.Message{}, fmt.Errorf("%w: message %s", ErrNotFound, id)
	}
	return msg, err
}

func (rc *RequestContext) userByID(id string) (models.User, error) {
	user, err := rc.Repos.Users.GetByID(rc.Ctx, id)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{}, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	return user, err
}

// usersByID loads the given users, silently skipping ids that no longer resolve.
func (rc *RequestContext) usersByID(ids []string) ([]models.User, error) {
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		user, err := rc.Repos.Users.GetByID(rc.Ctx, id)
		if errors.Is(err, repositories.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}
