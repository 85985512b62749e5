package config

import (
	"github.com/mfreeman451/upsbridge/pkg/bridge"
)

const (
	defaultListenAddr = ":50055"
	defaultHTTPAddr   = ":8090"
)

// BridgeConfig is the top-level daemon configuration.
type BridgeConfig struct {
	ListenAddr string        `json:"listen_addr,omitempty"` // gRPC health endpoint
	HTTPAddr   string        `json:"http_addr,omitempty"`   // status/refresh HTTP API
	Bridge     bridge.Config `json:"bridge"`
}

func (c *BridgeConfig) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if c.HTTPAddr == "" {
		c.HTTPAddr = defaultHTTPAddr
	}

	return c.Bridge.Validate()
}
