// Package chat holds the conversation and message consistency rules:
// identity binding, presence, typing, conversations, messages, blocks and
// cascade deletion.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"realtime-chat/internal/observability"
	"realtime-chat/internal/repositories"
)

const (
	DefaultPresenceWindow = 20 * time.Second
	DefaultTypingWindow   = 2500 * time.Millisecond
)

// Clock returns the current time.
type Clock func() time.Time

// Service runs chat operations against a Store.
type Service struct {
	store          repositories.Store
	clock          Clock
	newID          func() string
	notifier       Notifier
	presenceWindow time.Duration
	typingWindow   time.Duration
	tracer         trace.Tracer
	logger         zerolog.Logger
}

type Option func(*Service)

func WithClock(clock Clock) Option {
	return func(s *Service) { s.clock = clock }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithWindows overrides the presence and typing liveness windows. Zero
// values keep the defaults.
func WithWindows(presence, typing time.Duration) Option {
	return func(s *Service) {
		if presence > 0 {
			s.presenceWindow = presence
		}
		if typing > 0 {
			s.typingWindow = typing
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService constructs a Service.
func NewService(store repositories.Store, opts ...Option) *Service {
	s := &Service{
		store:          store,
		clock:          time.Now,
		newID:          uuid.NewString,
		presenceWindow: DefaultPresenceWindow,
		typingWindow:   DefaultTypingWindow,
		tracer:         otel.Tracer("realtime-chat/internal/chat"),
		logger:         log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// now truncates to the precision postgres stores.
func (s *Service) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

func (s *Service) newRequestContext(ctx context.Context, caller Identity, repos repositories.Repos) *RequestContext {
	return &RequestContext{Ctx: ctx, Identity: caller, Repos: repos, Now: s.now()}
}

// mutate runs fn as one atomic unit of work and delivers the events it
// emitted once the unit has committed.
func (s *Service) mutate(ctx context.Context, op string, caller Identity, fn func(rc *RequestContext) error) error {
	ctx, span := s.tracer.Start(ctx, "chat."+op, trace.WithAttributes(attribute.Bool("chat.authenticated", caller.Authenticated())))
	defer span.End()

	var committed *RequestContext
	run := func() error {
		return s.store.WithTx(ctx, func(repos repositories.Repos) error {
			rc := s.newRequestContext(ctx, caller, repos)
			if err := fn(rc); err != nil {
				return err
			}
			committed = rc
			return nil
		})
	}
	err := run()
	if errors.Is(err, repositories.ErrConversationExists) {
		// lost a race on the direct conversation key; the retry finds the winner
		err = run()
	}
	s.finish(span, op, err)
	if err != nil {
		return err
	}
	for _, hook := range committed.hooks {
		hook()
	}
	if s.notifier != nil {
		for _, ev := range committed.events {
			s.notifier.Notify(ctx, ev)
		}
	}
	return nil
}

// query runs fn against repositories outside a transaction.
func (s *Service) query(ctx context.Context, op string, caller Identity, fn func(rc *RequestContext) error) error {
	ctx, span := s.tracer.Start(ctx, "chat."+op)
	defer span.End()

	err := fn(s.newRequestContext(ctx, caller, s.store.Repos()))
	s.finish(span, op, err)
	return err
}

func (s *Service) finish(span trace.Span, op string, err error) {
	code := ErrorCode(err)
	observability.ObserveOperation(op, code)
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, code)
	if code == "INTERNAL" {
		s.logger.Error().Err(err).Str("operation", op).Msg("chat operation failed")
		return
	}
	s.logger.Debug().Err(err).Str("operation", op).Str("code", code).Msg("chat operation rejected")
}
