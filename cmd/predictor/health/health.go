// Package health serves the gRPC health checking protocol for the predictor,
// so orchestrators can check readiness without speaking HTTP.
package health

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Service is the service name reported alongside the overall status.
const Service = "trafficcast.Predictor"

// Server is a gRPC server exposing only health and reflection.
type Server struct {
	grpc   *grpc.Server
	health *grpchealth.Server
	logger *slog.Logger
}

// New creates a server that reports NOT_SERVING until SetServing(true).
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	grpcServer := grpc.NewServer()
	healthServer := grpchealth.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	s := &Server{grpc: grpcServer, health: healthServer, logger: logger}
	s.SetServing(false)
	return s
}

// SetServing updates the status of both the overall server and Service.
func (s *Server) SetServing(ok bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if ok {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(Service, status)
}

// Serve blocks serving lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("grpc health server listening", "address", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight RPCs.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
