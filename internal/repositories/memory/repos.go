package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"realtime-chat/internal/models"
	"realtime-chat/internal/repositories"
)

type userRepo struct{ b binding }

func (r userRepo) GetByID(_ context.Context, id string) (user models.User, err error) {
	err = r.b.with(func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return repositories.ErrUserNotFound
		}
		user = u
		return nil
	})
	return user, err
}

func (r userRepo) GetByExternalID(_ context.Context, externalID string) (user models.User, err error) {
	err = r.b.with(func(d *dataset) error {
		for _, u := range d.users {
			if u.ExternalID == externalID {
				user = u
				return nil
			}
		}
		return repositories.ErrUserNotFound
	})
	return user, err
}

func (r userRepo) Create(_ context.Context, user models.User) error {
	return r.b.with(func(d *dataset) error {
		put(d, d.users, user.ID, user)
		return nil
	})
}

func (r userRepo) UpdateProfile(_ context.Context, id, name, avatarURL string, at time.Time) error {
	return r.b.with(func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return repositories.ErrUserNotFound
		}
		u.Name, u.AvatarURL, u.UpdatedAt = name, avatarURL, at
		put(d, d.users, id, u)
		return nil
	})
}

func (r userRepo) TouchLastSeen(_ context.Context, id string, at time.Time) error {
	return r.b.with(func(d *dataset) error {
		if u, ok := d.users[id]; ok {
			u.LastSeenAt = &at
			put(d, d.users, id, u)
		}
		return nil
	})
}

func (r userRepo) List(_ context.Context) (users []models.User, err error) {
	err = r.b.with(func(d *dataset) error {
		for _, u := range d.users {
			users = append(users, u)
		}
		return nil
	})
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
	return users, err
}

type conversationRepo struct{ b binding }

func copyConversation(c models.Conversation) models.Conversation {
	c.MemberIDs = slices.Clone(c.MemberIDs)
	return c
}

func (r conversationRepo) Create(_ context.Context, conv models.Conversation) error {
	return r.b.with(func(d *dataset) error {
		if conv.DirectKey != nil {
			for _, existing := range d.conversations {
				if existing.DirectKey != nil && *existing.DirectKey == *conv.DirectKey {
					return repositories.ErrConversationExists
				}
			}
		}
		put(d, d.conversations, conv.ID, copyConversation(conv))
		return nil
	})
}

func (r conversationRepo) Get(_ context.Context, id string) (conv models.Conversation, err error) {
	err = r.b.with(func(d *dataset) error {
		c, ok := d.conversations[id]
		if !ok {
			return repositories.ErrConversationNotFound
		}
		conv = copyConversation(c)
		return nil
	})
	return conv, err
}

func (r conversationRepo) FindDirect(_ context.Context, directKey string) (conv models.Conversation, err error) {
	err = r.b.with(func(d *dataset) error {
		for _, c := range d.conversations {
			if c.DirectKey != nil && *c.DirectKey == directKey {
				conv = copyConversation(c)
				return nil
			}
		}
		return repositories.ErrConversationNotFound
	})
	return conv, err
}

func (r conversationRepo) list(match func(models.Conversation) bool) (out []models.Conversation, err error) {
	err = r.b.with(func(d *dataset) error {
		for _, c := range d.conversations {
			if match(c) {
				out = append(out, copyConversation(c))
			}
		}
		return nil
	})
	return out, err
}

func (r conversationRepo) ListForMember(_ context.Context, userID string) ([]models.Conversation, error) {
	out, err := r.list(func(c models.Conversation) bool { return c.HasMember(userID) })
	sort.Slice(out, func(i, j int) bool { return out[i].ActivityAt().After(out[j].ActivityAt()) })
	return out, err
}

func (r conversationRepo) UpdateMembers(_ context.Context, id string, memberIDs []string, at time.Time) error {
	return r.b.with(func(d *dataset) error {
		c, ok := d.conversations[id]
		if !ok {
			return repositories.ErrConversationNotFound
		}
		c.MemberIDs = slices.Clone(memberIDs)
		c.UpdatedAt = at
		put(d, d.conversations, id, c)
		return nil
	})
}

func (r conversationRepo) TouchLastMessage(_ context.Context, id string, at time.Time) error {
	return r.b.with(func(d *dataset) error {
		c, ok := d.conversations[id]
		if !ok {
			return repositories.ErrConversationNotFound
		}
		c.LastMessageAt = &at
		c.UpdatedAt = at
		put(d, d.conversations, id, c)
		return nil
	})
}

func (r conversationRepo) Delete(_ context.Context, id string) error {
	return r.b.with(func(d *dataset) error {
		if _, ok := d.conversations[id]; !ok {
			return repositories.ErrConversationNotFound
		}
		drop(d, d.conversations, id)
		return nil
	})
}

type messageRepo struct{ b binding }

func (r messageRepo) Create(_ context.Context, msg models.Message) error {
	return r.b.with(func(d *dataset) error {
		put(d, d.messages, msg.ID, storedMessage{msg: msg, seq: d.nextSeq()})
		return nil
	})
}

func (r messageRepo) Get(_ context.Context, id string) (msg models.Message, err error) {
	err = r.b.with(func(d *dataset) error {
		m, ok := d.messages[id]
		if !ok {
			return repositories.ErrMessageNotFound
		}
		msg = m.msg
		return nil
	})
	return msg, err
}

func (r messageRepo) ordered(conversationID string) (out []storedMessage, err error) {
	err = r.b.with(func(d *dataset) error {
		for _, m := range d.messages {
			if m.msg.ConversationID == conversationID {
				out = append(out, m)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].msg.CreatedAt.Equal(out[j].msg.CreatedAt) {
			return out[i].msg.CreatedAt.Before(out[j].msg.CreatedAt)
		}
		return out[i].seq < out[j].seq
	})
	return out, err
}

func (r messageRepo) ListByConversation(_ context.Context, conversationID string) ([]models.Message, error) {
	stored, err := r.ordered(conversationID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(stored))
	for _, m := range stored {
		out = append(out, m.msg)
	}
	return out, nil
}

func (r messageRepo) Latest(_ context.Context, conversationID string) (*models.Message, error) {
	stored, err := r.ordered(conversationID)
	if err != nil || len(stored) == 0 {
		return nil, err
	}
	msg := stored[len(stored)-1].msg
	return &msg, nil
}

func (r messageRepo) SoftDelete(_ context.Context, id string) error {
	return r.b.with(func(d *dataset) error {
		m, ok := d.messages[id]
		if !ok {
			return repositories.ErrMessageNotFound
		}
		m.msg.Deleted = true
		m.msg.Text = ""
		put(d, d.messages, id, m)
		return nil
	})
}

func (r messageRepo) IDsByConversation(_ context.Context, conversationID string) (ids []string, err error) {
	err = r.b.with(func(d *dataset) error {
		for id, m := range d.messages {
			if m.msg.ConversationID == conversationID {
				ids = append(ids, id)
			}
		}
		return nil
	})
	return ids, err
}

func (r messageRepo) DeleteByConversation(_ context.Context, conversationID string) (n int, err error) {
	err = r.b.with(func(d *dataset) error {
		for id, m := range d.messages {
			if m.msg.ConversationID == conversationID {
				drop(d, d.messages, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

type reactionRepo struct{ b binding }

func (r reactionRepo) Add(_ context.Context, reaction models.MessageReaction) error {
	return r.b.with(func(d *dataset) error {
		for _, existing := range d.reactions {
			if existing.MessageID == reaction.MessageID && existing.UserID == reaction.UserID && existing.Emoji == reaction.Emoji {
				return nil
			}
		}
		put(d, d.reactions, reaction.ID, reaction)
		return nil
	})
}

func (r reactionRepo) Remove(_ context.Context, messageID, userID, emoji string) (removed bool, err error) {
	err = r.b.with(func(d *dataset) error {
		for id, existing := range d.reactions {
			if existing.MessageID == messageID && existing.UserID == userID && existing.Emoji == emoji {
				drop(d, d.reactions, id)
				removed = true
			}
		}
		return nil
	})
	return removed, err
}

func (r reactionRepo) ListByMessages(_ context.Context, messageIDs []string) (out []models.MessageReaction, err error) {
	err = r.b.with(func(d *dataset) error {
		for _, reaction := range d.reactions {
			if slices.Contains(messageIDs, reaction.MessageID) {
				out = append(out, reaction)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r reactionRepo) DeleteByMessages(_ context.Context, messageIDs []string) (n int, err error) {
	err = r.b.with(func(d *dataset) error {
		for id, reaction := range d.reactions {
			if slices.Contains(messageIDs, reaction.MessageID) {
				drop(d, d.reactions, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

type readRepo struct{ b binding }

func (r readRepo) Get(_ context.Context, conversationID, userID string) (read models.ConversationRead, err error) {
	err = r.b.with(func(d *dataset) error {
		rd, ok := d.reads[pairKey{conversationID, userID}]
		if !ok {
			return repositories.ErrReadNotFound
		}
		read = rd
		return nil
	})
	return read, err
}

func (r readRepo) Upsert(_ context.Context, read models.ConversationRead) error {
	return r.b.with(func(d *dataset) error {
		put(d, d.reads, pairKey{read.ConversationID, read.UserID}, read)
		return nil
	})
}

func (r readRepo) DeleteByConversation(_ context.Context, conversationID string) (n int, err error) {
	err = r.b.with(func(d *dataset) error {
		for k := range d.reads {
			if k.a == conversationID {
				drop(d, d.reads, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

type typingRepo struct{ b binding }

func (r typingRepo) Upsert(_ context.Context, status models.TypingStatus) error {
	return r.b.with(func(d *dataset) error {
		put(d, d.typing, pairKey{status.ConversationID, status.UserID}, status)
		return nil
	})
}

func (r typingRepo) ListByConversation(_ context.Context, conversationID string) (out []models.TypingStatus, err error) {
	err = r.b.with(func(d *dataset) error {
		for k, status := range d.typing {
			if k.a == conversationID {
				out = append(out, status)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, err
}

func (r typingRepo) DeleteByConversation(_ context.Context, conversationID string) (n int, err error) {
	err = r.b.with(func(d *dataset) error {
		for k := range d.typing {
			if k.a == conversationID {
				drop(d, d.typing, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

type presenceRepo struct{ b binding }

func (r presenceRepo) Touch(_ context.Context, userID string, at time.Time) error {
	return r.b.with(func(d *dataset) error {
		put(d, d.presence, userID, at)
		return nil
	})
}

func (r presenceRepo) ListSince(_ context.Context, since time.Time) (out []models.Presence, err error) {
	err = r.b.with(func(d *dataset) error {
		for id, seen := range d.presence {
			if !seen.Before(since) {
				out = append(out, models.Presence{UserID: id, LastSeen: seen})
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].UserID, out[j].UserID) < 0 })
	return out, err
}

type blockRepo struct{ b binding }

func (r blockRepo) Exists(_ context.Context, blockerID, blockedID string) (exists bool, err error) {
	err = r.b.with(func(d *dataset) error {
		_, exists = d.blocks[pairKey{blockerID, blockedID}]
		return nil
	})
	return exists, err
}

func (r blockRepo) Add(_ context.Context, block models.Block) error {
	return r.b.with(func(d *dataset) error {
		k := pairKey{block.BlockerID, block.BlockedID}
		if _, ok := d.blocks[k]; !ok {
			put(d, d.blocks, k, block)
		}
		return nil
	})
}

func (r blockRepo) Remove(_ context.Context, blockerID, blockedID string) (removed bool, err error) {
	err = r.b.with(func(d *dataset) error {
		k := pairKey{blockerID, blockedID}
		_, removed = d.blocks[k]
		drop(d, d.blocks, k)
		return nil
	})
	return removed, err
}

func (r blockRepo) ListBlockedBy(_ context.Context, blockerID string) (out []models.Block, err error) {
	err = r.b.with(func(d *dataset) error {
		for k, block := range d.blocks {
			if k.a == blockerID {
				out = append(out, block)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].BlockedID < out[j].BlockedID
	})
	return out, err
}
