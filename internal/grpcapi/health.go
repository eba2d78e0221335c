// Package grpcapi exposes the standard grpc.health.v1 service so that
// orchestrators can probe the server without speaking its REST surface.
package grpcapi

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is reported alongside the overall ("") status.
const ServiceName = "assetlife.Lifecycle"

type Dependencies struct {
	Logger zerolog.Logger
	Addr   string
	// Ready, if set, is polled every CheckInterval and drives the status.
	Ready         func(ctx context.Context) error
	CheckInterval time.Duration
}

type Server struct {
	addr     string
	log      zerolog.Logger
	grpc     *grpc.Server
	health   *health.Server
	ready    func(ctx context.Context) error
	interval time.Duration
	stop     chan struct{}
}

func NewServer(d Dependencies) *Server {
	if d.CheckInterval <= 0 {
		d.CheckInterval = 10 * time.Second
	}

	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	s := &Server{
		addr:     d.Addr,
		log:      d.Logger.With().Str("component", "grpcapi").Logger(),
		grpc:     gs,
		health:   hs,
		ready:    d.Ready,
		interval: d.CheckInterval,
		stop:     make(chan struct{}),
	}
	s.setServing(true)
	return s
}

// Start listens on the configured address and blocks until Shutdown.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Serve blocks serving on lis until Shutdown.
func (s *Server) Serve(lis net.Listener) error {
	go s.probe()
	s.log.Info().Str("addr", lis.Addr().String()).Msg("grpc health listening")
	err := s.grpc.Serve(lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Shutdown flips every service to NOT_SERVING and drains in-flight calls,
// forcing a stop if ctx expires first.
func (s *Server) Shutdown(ctx context.Context) error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.grpc.Stop()
		return ctx.Err()
	}
}

func (s *Server) setServing(ok bool) {
	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

func (s *Server) probe() {
	if s.ready == nil {
		return
	}

	t := time.NewTicker(s.interval)
	defer t.Stop()

	last := true
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			err := s.ready(ctx)
			cancel()

			select {
			case <-s.stop:
				return
			default:
			}

			ok := err == nil
			if ok != last {
				if ok {
					s.log.Info().Msg("readiness restored")
				} else {
					s.log.Warn().Err(err).Msg("readiness check failed")
				}
				s.setServing(ok)
				last = ok
			}
		}
	}
}
