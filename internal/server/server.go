// Package server assembles the chat backend and runs it until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"realtime-chat/internal/chat"
	"realtime-chat/internal/config"
	"realtime-chat/internal/db"
	"realtime-chat/internal/healthcheck"
	"realtime-chat/internal/logging"
	"realtime-chat/internal/middleware"
	"realtime-chat/internal/rabbitmq"
	"realtime-chat/internal/repositories"
	"realtime-chat/internal/repositories/memory"
	"realtime-chat/internal/telemetry"
	"realtime-chat/internal/ws"
)

const (
	shutdownTimeout     = 10 * time.Second
	healthCheckInterval = 10 * time.Second
)

// Run starts the HTTP and gRPC health servers and blocks until ctx is
// cancelled or a server fails.
func Run(ctx context.Context, cfg config.Config) error {
	logger := logging.New(cfg.Logging, cfg.Telemetry.ServiceName)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Env,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	store, redisPresence, err := openStore(runCtx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("store close failed")
		}
		if redisPresence != nil {
			_ = redisPresence.Close()
		}
	}()
	if redisPresence != nil {
		go sweepPresence(runCtx, redisPresence, cfg.Presence.Window)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	defer publisher.Close()
	log.Info().
		Str("mode", rabbitmq.PublisherMode(publisher)).
		Str("reason", rabbitmq.PublisherNoopReason(publisher)).
		Msg("event publisher ready")

	audit := telemetry.NewAuditEmitter(publisher, cfg.AMQP.AuditRoute, cfg.Telemetry.ServiceName, cfg.Env)
	hub := ws.NewHub(publisher)
	service := chat.NewService(store,
		chat.WithNotifier(chat.Notifiers{hub, rabbitmq.NewEventNotifier(publisher)}),
		chat.WithWindows(cfg.Presence.Window, cfg.Typing.Window),
		chat.WithLogger(logger),
	)

	if cfg.Auth.JWTSecret == "" {
		log.Warn().Msg("AUTH_JWT_SECRET is empty, every caller is anonymous")
	}
	router := NewRouter(RouterDeps{
		Service:     service,
		Verifier:    middleware.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Hub:         hub,
		Audit:       audit,
		Logger:      logger,
		RateLimit:   cfg.RateLimit,
		DebugRoutes: cfg.DebugRoutes,
		ServiceName: cfg.Telemetry.ServiceName,
		Ping:        store.Ping,
		Done:        runCtx.Done(),
	})
	httpSrv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	health := healthcheck.NewServer()
	lis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	go healthcheck.Watch(runCtx, health.Health(), store.Ping, healthCheckInterval)

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("http listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		if err := health.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err = <-errCh:
		log.Error().Err(err).Msg("server failed")
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	hub.Close()
	if shutdownErr := httpSrv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn().Err(shutdownErr).Msg("http shutdown")
	}
	health.Stop(shutdownCtx)
	return err
}

// openStore selects the storage driver and presence backend.
func openStore(ctx context.Context, cfg config.Config) (repositories.Store, *repositories.RedisPresenceRepo, error) {
	var (
		presence      repositories.PresenceRepository
		redisPresence *repositories.RedisPresenceRepo
	)
	if cfg.Presence.Backend == config.PresenceRedis {
		repo, err := repositories.NewRedisPresenceRepo(ctx, cfg.Presence.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		presence, redisPresence = repo, repo
		log.Info().Msg("presence backed by redis")
	}

	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return memory.NewStore(presence), redisPresence, nil
	default:
		sqlDB, err := db.Connect(ctx, cfg.Database.DSN)
		if err != nil {
			if redisPresence != nil {
				_ = redisPresence.Close()
			}
			return nil, nil, err
		}
		if err := db.Migrate(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			if redisPresence != nil {
				_ = redisPresence.Close()
			}
			return nil, nil, err
		}
		return repositories.NewSQLStore(sqlDB, presence), redisPresence, nil
	}
}

// Migrate applies the schema and exits. The memory driver has no schema.
func Migrate(ctx context.Context, cfg config.Config) error {
	logging.New(cfg.Logging, cfg.Telemetry.ServiceName)
	if cfg.Database.Driver == config.DriverMemory {
		log.Info().Msg("memory driver selected, nothing to migrate")
		return nil
	}
	sqlDB, err := db.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	return db.Migrate(ctx, sqlDB)
}

// sweepPresence drops heartbeats older than window so the sorted set stays
// bounded.
func sweepPresence(ctx context.Context, repo *repositories.RedisPresenceRepo, window time.Duration) {
	ticker := time.NewTicker(window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := repo.Prune(ctx, time.Now().Add(-window))
			if err != nil {
				log.Warn().Err(err).Msg("presence prune failed")
				continue
			}
			if removed > 0 {
				log.Debug().Int64("removed", removed).Msg("presence pruned")
			}
		}
	}
}
