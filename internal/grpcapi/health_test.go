package grpcapi_test

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/assetlife/server/internal/grpcapi"
)

func startServer(t *testing.T, d grpcapi.Dependencies) (*grpcapi.Server, healthpb.HealthClient) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	d.Logger = zerolog.Nop()
	srv := grpcapi.NewServer(d)

	served := make(chan error, 1)
	go func() { served <- srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	t.Cleanup(func() {
		_ = conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		if err := <-served; err != nil {
			t.Errorf("Serve returned %v", err)
		}
	})
	return srv, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestServingAfterStart(t *testing.T) {
	_, client := startServer(t, grpcapi.Dependencies{})

	for _, svc := range []string{"", grpcapi.ServiceName} {
		if got := check(t, client, svc); got != healthpb.HealthCheckResponse_SERVING {
			t.Errorf("Check(%q) = %v, want SERVING", svc, got)
		}
	}
}

func TestNotServingAfterShutdown(t *testing.T) {
	srv, client := startServer(t, grpcapi.Dependencies{})

	// Watch sees the flip before the transport is torn down.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stream, err := client.Watch(ctx, &healthpb.HealthCheckRequest{Service: grpcapi.ServiceName})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	first, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if first.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("initial status = %v", first.GetStatus())
	}

	go func() {
		sctx, scancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}()

	next, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv after shutdown: %v", err)
	}
	if next.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status after shutdown = %v, want NOT_SERVING", next.GetStatus())
	}
}

func TestReadinessDrivesStatus(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)

	_, client := startServer(t, grpcapi.Dependencies{
		CheckInterval: 10 * time.Millisecond,
		Ready: func(context.Context) error {
			if healthy.Load() {
				return nil
			}
			return errors.New("db down")
		},
	})

	waitFor := func(want healthpb.HealthCheckResponse_ServingStatus) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if check(t, client, "") == want {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("status never became %v", want)
	}

	healthy.Store(false)
	waitFor(healthpb.HealthCheckResponse_NOT_SERVING)

	healthy.Store(true)
	waitFor(healthpb.HealthCheckResponse_SERVING)
}
