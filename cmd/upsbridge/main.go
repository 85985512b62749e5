// cmd/upsbridge/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/mfreeman451/upsbridge/pkg/api"
	"github.com/mfreeman451/upsbridge/pkg/bridge"
	"github.com/mfreeman451/upsbridge/pkg/config"
	"github.com/mfreeman451/upsbridge/pkg/lifecycle"
)

var errFailedToLoadConfig = fmt.Errorf("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log.Printf("Starting UPS bridge...")

	configPath := flag.String("config", "/etc/upsbridge/upsbridge.json", "Path to config file")
	flag.Parse()

	var cfg config.BridgeConfig

	if err := config.LoadAndValidate(*configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	tracker := lifecycle.NewHealthTracker("upsbridge")

	svc, err := bridge.NewService(&cfg.Bridge, bridge.WithStateListener(tracker.OnState))
	if err != nil {
		return fmt.Errorf("failed to create bridge service: %w", err)
	}

	opts := lifecycle.ServerOptions{
		ListenAddr:  cfg.ListenAddr,
		HTTPAddr:    cfg.HTTPAddr,
		ServiceName: "upsbridge",
		Service:     svc,
		HTTP:        api.NewAPIServer(svc),
		Health:      tracker,
	}

	if err := lifecycle.RunServer(context.Background(), &opts); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
