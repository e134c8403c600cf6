// Package health serves grpc.health.v1 and keeps the serving status in step
// with database reachability.
package health

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Server struct {
	log    *slog.Logger
	grpc   *grpc.Server
	health *health.Server
	check  func(ctx context.Context) error
	every  time.Duration
}

// New registers the health service for service (and the overall "" entry).
func New(log *slog.Logger, service string, check func(ctx context.Context) error, every time.Duration) *Server {
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	s := &Server{log: log, grpc: gs, health: hs, check: check, every: every}
	s.set(service, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) set(service string, st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(service, st)
}

// Probe runs one check and publishes the result.
func (s *Server) Probe(ctx context.Context, service string) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.check(ctx); err != nil {
		s.log.Warn("health probe failed", "err", err)
		s.set(service, healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.set(service, healthpb.HealthCheckResponse_SERVING)
}

// Watch probes until ctx is done, then marks everything NOT_SERVING.
func (s *Server) Watch(ctx context.Context, service string) {
	t := time.NewTicker(s.every)
	defer t.Stop()
	s.Probe(ctx, service)
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return
		case <-t.C:
			s.Probe(ctx, service)
		}
	}
}

// Serve blocks serving on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("grpc listening", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

func (s *Server) Stop() {
	s.grpc.GracefulStop()
}
