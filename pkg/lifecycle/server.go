package lifecycle

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mfreeman451/upsbridge/pkg/grpc"
)

const ShutdownTimeout = 10 * time.Second

// Service defines the interface that all services must implement.
type Service interface {
	Start(context.Context) error
	Stop(context.Context) error
}

// HTTPServer is the surface the lifecycle needs from the API server.
type HTTPServer interface {
	Start(ctx context.Context, addr string) error
}

// ServerOptions holds configuration for running the bridge daemon.
type ServerOptions struct {
	ListenAddr  string // gRPC health endpoint
	HTTPAddr    string // status/refresh API
	ServiceName string
	Service     Service
	HTTP        HTTPServer
	Health      *HealthTracker
}

// RunServer starts the bridge service, the HTTP API, and the gRPC health
// endpoint, then blocks until a signal, a service error, or context
// cancellation triggers shutdown.
func RunServer(ctx context.Context, opts *ServerOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Printf("*** Starting service %s", opts.ServiceName)

	grpcServer := grpc.NewServer(opts.ListenAddr)

	if opts.Health != nil {
		opts.Health.Attach(grpcServer.GetHealthCheck())
	}

	errChan := make(chan error, 1)

	go func() {
		if err := opts.Service.Start(ctx); err != nil {
			select {
			case errChan <- err:
			default:
				log.Printf("Service error: %v", err)
			}
		}
	}()

	if opts.HTTP != nil {
		go func() {
			if err := opts.HTTP.Start(ctx, opts.HTTPAddr); err != nil {
				select {
				case errChan <- err:
				default:
					log.Printf("HTTP server error: %v", err)
				}
			}
		}()
	}

	go func() {
		if err := grpcServer.Start(); err != nil {
			select {
			case errChan <- err:
			default:
				log.Printf("gRPC server error: %v", err)
			}
		}
	}()

	return handleShutdown(ctx, cancel, grpcServer, opts.Service, errChan)
}

func handleShutdown(
	ctx context.Context, cancel context.CancelFunc, grpcServer *grpc.Server, svc Service, errChan chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, initiating shutdown", sig)
	case err := <-errChan:
		log.Printf("Received error: %v, initiating shutdown", err)

		runErr = fmt.Errorf("service error: %w", err)
	case <-ctx.Done():
		log.Printf("Context canceled, initiating shutdown")

		runErr = ctx.Err()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	cancel()

	grpcServer.Stop(shutdownCtx)

	if err := svc.Stop(shutdownCtx); err != nil {
		log.Printf("Error during service shutdown: %v", err)

		if runErr == nil {
			runErr = fmt.Errorf("shutdown error: %w", err)
		}
	}

	return runErr
}
