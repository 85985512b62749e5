// Package grpc pkg/grpc/server.go
package grpc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

var errInternalError = errors.New("internal error")

const shutdownTimer = 5 * time.Second

// Server wraps a gRPC server that only exposes the standard health service.
// The bridge has no RPC API of its own; orchestrators probe this endpoint to
// learn whether the telemetry connections are alive.
type Server struct {
	srv         *grpc.Server
	healthCheck *health.Server
	addr        string
}

// NewServer creates a health-serving gRPC server on addr.
func NewServer(addr string) *Server {
	s := &Server{
		addr: addr,
		srv: grpc.NewServer(
			grpc.ChainUnaryInterceptor(
				LoggingInterceptor,
				RecoveryInterceptor,
			),
		),
		healthCheck: health.NewServer(),
	}

	healthpb.RegisterHealthServer(s.srv, s.healthCheck)
	reflection.Register(s.srv)

	return s
}

// GetHealthCheck returns the health server instance so callers can publish
// serving status.
func (s *Server) GetHealthCheck() *health.Server {
	return s.healthCheck
}

// Start starts the gRPC server and blocks until it stops.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	log.Printf("gRPC health server listening on %s", s.addr)

	if err := s.srv.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}

// Stop gracefully stops the gRPC server, forcing the stop if graceful
// shutdown exceeds the grace period.
func (s *Server) Stop(ctx context.Context) {
	_, cancel := context.WithTimeout(ctx, shutdownTimer)
	defer cancel()

	s.healthCheck.Shutdown()

	stopped := make(chan struct{})

	go func() {
		s.srv.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Printf("gRPC server stopped gracefully")
	case <-time.After(shutdownTimer):
		log.Printf("gRPC server shutdown timed out, forcing stop")
		s.srv.Stop()
	}
}

// LoggingInterceptor logs RPC calls.
func LoggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	log.Printf("gRPC call: %s Duration: %v Error: %v",
		info.FullMethod,
		time.Since(start),
		err)

	return resp, err
}

// RecoveryInterceptor handles panics in RPC handlers.
func RecoveryInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in %s: %v", info.FullMethod, r)

			err = errInternalError
		}
	}()

	return handler(ctx, req)
}
