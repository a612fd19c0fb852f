package healthcheck

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func statusOf(t *testing.T, client healthpb.HealthClient) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestWatchReflectsPing(t *testing.T) {
	srv := NewServer()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop(context.Background())

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, statusOf(t, client))

	var failing atomic.Bool
	ping := func(context.Context) error {
		if failing.Load() {
			return errors.New("db down")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, srv.Health(), ping, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return statusOf(t, client) == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 10*time.Millisecond)

	failing.Store(true)
	require.Eventually(t, func() bool {
		return statusOf(t, client) == healthpb.HealthCheckResponse_NOT_SERVING
	}, time.Second, 10*time.Millisecond)
}
