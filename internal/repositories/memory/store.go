// Package memory is an in-process repositories.Store. Transactions write
// to the live dataset under the store lock and replay an undo log when they
// fail.
package memory

import (
	"context"
	"sync"
	"time"

	"realtime-chat/internal/models"
	"realtime-chat/internal/repositories"
)

type pairKey struct{ a, b string }

type storedMessage struct {
	msg models.Message
	seq uint64
}

type dataset struct {
	seq           uint64
	users         map[string]models.User
	conversations map[string]models.Conversation
	messages      map[string]storedMessage
	reactions     map[string]models.MessageReaction
	reads         map[pairKey]models.ConversationRead
	typing        map[pairKey]models.TypingStatus
	presence      map[string]time.Time
	blocks        map[pairKey]models.Block

	// undo is set while a transaction holds the store lock.
	undo *undoLog
}

func newDataset() *dataset {
	return &dataset{
		users:         map[string]models.User{},
		conversations: map[string]models.Conversation{},
		messages:      map[string]storedMessage{},
		reactions:     map[string]models.MessageReaction{},
		reads:         map[pairKey]models.ConversationRead{},
		typing:        map[pairKey]models.TypingStatus{},
		presence:      map[string]time.Time{},
		blocks:        map[pairKey]models.Block{},
	}
}

// undoLog records how to revert each write made inside a transaction.
type undoLog []func()

func (u *undoLog) rollback() {
	for i := len(*u) - 1; i >= 0; i-- {
		(*u)[i]()
	}
	*u = nil
}

func remember[K comparable, V any](u *undoLog, m map[K]V, k K) {
	if u == nil {
		return
	}
	old, existed := m[k]
	*u = append(*u, func() {
		if existed {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
}

// put and drop are the only ways repositories write to a table.
func put[K comparable, V any](d *dataset, m map[K]V, k K, v V) {
	remember(d.undo, m, k)
	m[k] = v
}

func drop[K comparable, V any](d *dataset, m map[K]V, k K) {
	if _, ok := m[k]; !ok {
		return
	}
	remember(d.undo, m, k)
	delete(m, k)
}

func (d *dataset) nextSeq() uint64 {
	if d.undo != nil {
		old := d.seq
		*d.undo = append(*d.undo, func() { d.seq = old })
	}
	d.seq++
	return d.seq
}

// Store is a mutex-guarded in-memory repositories.Store.
type Store struct {
	mu       sync.Mutex
	data     *dataset
	presence repositories.PresenceRepository
}

// NewStore returns an empty Store. A non-nil presence overrides the
// in-memory presence repository.
func NewStore(presence repositories.PresenceRepository) *Store {
	return &Store{data: newDataset(), presence: presence}
}

var _ repositories.Store = (*Store)(nil)

// binding routes repository calls to the live dataset. Outside a
// transaction each call takes the store lock; inside one the lock is
// already held.
type binding struct {
	store *Store
	inTx  bool
}

func (b binding) with(fn func(d *dataset) error) error {
	if b.inTx {
		return fn(b.store.data)
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return fn(b.store.data)
}

func (s *Store) bind(b binding) repositories.Repos {
	repos := repositories.Repos{
		Users:         userRepo{b},
		Conversations: conversationRepo{b},
		Messages:      messageRepo{b},
		Reactions:     reactionRepo{b},
		Reads:         readRepo{b},
		Typing:        typingRepo{b},
		Presence:      presenceRepo{b},
		Blocks:        blockRepo{b},
	}
	if s.presence != nil {
		repos.Presence = s.presence
	}
	return repos
}

func (s *Store) Repos() repositories.Repos {
	return s.bind(binding{store: s})
}

// WithTx serialises units of work. Writes made by fn are undone when it
// returns an error or panics.
func (s *Store) WithTx(ctx context.Context, fn func(repositories.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	undo := &undoLog{}
	s.data.undo = undo
	committed := false
	defer func() {
		s.data.undo = nil
		if !committed {
			undo.rollback()
		}
	}()
	if err := fn(s.bind(binding{store: s, inTx: true})); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}
