// Package bridge pkg/bridge/seed.go
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/mfreeman451/upsbridge/pkg/models"
	"github.com/mfreeman451/upsbridge/pkg/protocol"
)

const seedTimeout = 10 * time.Second

// seedDevice mirrors one element of the upstream's HTTP status report.
type seedDevice struct {
	DeviceName string                 `json:"device_name"`
	Type       string                 `json:"type,omitempty"`
	Attributes map[string]interface{} `json:"attributes"`
}

// BuildHTTPURL converts a ws:// or wss:// endpoint into its http/https
// equivalent with the given path. Returns an empty string when the input is
// not usable as an HTTP base.
func BuildHTTPURL(serverURL, path string) string {
	if serverURL == "" {
		return ""
	}

	u, err := url.Parse(serverURL)
	if err != nil {
		return ""
	}

	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return ""
	}

	u.Path = path
	u.RawQuery = ""
	u.Fragment = ""

	return u.String()
}

// seed fetches the upstream's current status report once over HTTP and
// applies it, so consumers see last-known state before the first websocket
// frame lands. Best effort: any failure is logged and ignored. Runs without
// the service lock; the store and dispatcher do their own locking.
func (s *Service) seed(ctx context.Context, seedURL string, configuredDevices []models.DeviceConfig) {
	statusURL := BuildHTTPURL(seedURL, "/api/status")
	if statusURL == "" {
		log.Printf("Seed fetch skipped: unusable seed URL %q", seedURL)
		return
	}

	devices, err := fetchSeed(ctx, statusURL)
	if err != nil {
		log.Printf("Seed fetch failed (will rely on websocket): %v", err)
		return
	}

	configured := make(map[string]models.DeviceConfig, len(configuredDevices))
	for _, dev := range configuredDevices {
		configured[dev.ID] = dev
	}

	seeded := 0

	for _, sd := range devices {
		dev, ok := configured[sd.DeviceName]
		if !ok || len(sd.Attributes) == 0 {
			continue
		}

		// The attribute map is the same flat vocabulary the NUT-style frames
		// carry, so the frame decoder handles it for either device type.
		frame, err := json.Marshal(sd.Attributes)
		if err != nil {
			continue
		}

		status, err := protocol.Decode(models.TypeNUT, frame)
		if err != nil {
			log.Printf("Device %s: seed attributes undecodable: %v", dev.ID, err)
			continue
		}

		status.ObservedAt = s.clock.Now()

		if changes := s.store.Apply(dev.ID, status); !changes.IsEmpty() {
			s.dispatcher.Notify(dev.ID, status, changes)
		}

		seeded++
	}

	if seeded > 0 {
		log.Printf("Seeded %d device(s) from %s", seeded, statusURL)
	}
}

func fetchSeed(ctx context.Context, statusURL string) ([]seedDevice, error) {
	reqCtx, cancel := context.WithTimeout(ctx, seedTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, statusURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status fetch returned %d", resp.StatusCode)
	}

	var devices []seedDevice
	if err := json.NewDecoder(resp.Body).Decode(&devices); err != nil {
		return nil, err
	}

	return devices, nil
}
