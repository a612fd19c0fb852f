package healthcheck

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"realtime-chat/internal/observability"
)

// ServiceName is the health service name reported for the chat backend.
const ServiceName = "realtime-chat.Chat"

// Server exposes the standard gRPC health protocol.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

func NewServer() *Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return &Server{grpc: srv, health: hs}
}

func (s *Server) Health() *health.Server {
	return s.health
}

// Serve blocks until lis fails or the server stops.
func (s *Server) Serve(lis net.Listener) error {
	log.Info().Str("addr", lis.Addr().String()).Msg("grpc health listening")
	return s.grpc.Serve(lis)
}

// Stop drains in-flight calls, forcing a stop once ctx is done.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
}

// Watch polls ping every interval and mirrors the result into hs until ctx
// is cancelled.
func Watch(ctx context.Context, hs *health.Server, ping func(context.Context) error, interval time.Duration) {
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		status := healthpb.HealthCheckResponse_SERVING
		if err := ping(pingCtx); err != nil {
			log.Warn().Err(err).Msg("store unreachable")
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(ServiceName, status)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
