// Package bridge pkg/bridge/types.go
package bridge

import (
	"fmt"
	"time"

	"github.com/mfreeman451/upsbridge/pkg/models"
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultReadTimeout = 90 * time.Second
	defaultBackoffBase = time.Second
	defaultBackoffMax  = time.Minute
	defaultJitter      = 0.2
	defaultMaxFailures = 10
	defaultRefreshRate = 6 // per minute
)

// ConnectionConfig carries the reliability tunables shared by every
// connection manager.
type ConnectionConfig struct {
	DialTimeout      models.Duration `json:"dial_timeout,omitempty"`
	ReadTimeout      models.Duration `json:"read_timeout,omitempty"`
	BackoffBase      models.Duration `json:"backoff_base,omitempty"`
	BackoffMax       models.Duration `json:"backoff_max,omitempty"`
	Jitter           float64         `json:"jitter,omitempty"`
	MaxFailures      int             `json:"max_failures,omitempty"`
	RefreshPerMinute float64         `json:"refresh_per_minute,omitempty"`
}

func (c *ConnectionConfig) applyDefaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = models.Duration(defaultDialTimeout)
	}

	if c.ReadTimeout == 0 {
		c.ReadTimeout = models.Duration(defaultReadTimeout)
	}

	if c.BackoffBase == 0 {
		c.BackoffBase = models.Duration(defaultBackoffBase)
	}

	if c.BackoffMax == 0 {
		c.BackoffMax = models.Duration(defaultBackoffMax)
	}

	if c.Jitter == 0 {
		c.Jitter = defaultJitter
	}

	if c.MaxFailures == 0 {
		c.MaxFailures = defaultMaxFailures
	}

	if c.RefreshPerMinute == 0 {
		c.RefreshPerMinute = defaultRefreshRate
	}
}

// Config is the bridge service configuration.
type Config struct {
	// SeedURL optionally points at the upstream's HTTP status endpoint (or
	// its ws:// equivalent) used to seed snapshots before the first frame.
	SeedURL    string                `json:"seed_url,omitempty"`
	Devices    []models.DeviceConfig `json:"devices"`
	Connection ConnectionConfig      `json:"connection"`
}

func (c *Config) Validate() error {
	if len(c.Devices) == 0 {
		return ErrNoDevices
	}

	seen := make(map[string]struct{}, len(c.Devices))

	for i := range c.Devices {
		dev := &c.Devices[i]
		if err := dev.Validate(); err != nil {
			return err
		}

		if _, ok := seen[dev.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateDeviceID, dev.ID)
		}

		seen[dev.ID] = struct{}{}
	}

	c.Connection.applyDefaults()

	return nil
}
