package grpc

import (
	"context"
	"log"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"roomloop/internal/observability"
)

// Server is the internal gRPC listener used by orchestrators for health probes.
type Server struct {
	server  *gogrpc.Server
	health  *health.Server
	service string
}

// NewServer builds a gRPC server that reports service as SERVING.
func NewServer(service string) *Server {
	srv := gogrpc.NewServer(
		gogrpc.UnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
		gogrpc.StatsHandler(otelgrpc.NewServerHandler()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(service, healthpb.HealthCheckResponse_SERVING)

	return &Server{server: srv, health: hs, service: service}
}

// Serve blocks accepting connections on lis.
func (s *Server) Serve(lis net.Listener) error {
	log.Printf("grpc: serving on %s", lis.Addr())
	return s.server.Serve(lis)
}

// Drain flips every registered service to NOT_SERVING. Later status changes are ignored.
func (s *Server) Drain() {
	s.health.Shutdown()
}

// Shutdown drains and then stops gracefully, forcing the stop if ctx ends first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Drain()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	}
}
