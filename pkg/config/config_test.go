package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreeman451/upsbridge/pkg/bridge"
	"github.com/mfreeman451/upsbridge/pkg/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "upsbridge.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidateBridgeConfig(t *testing.T) {
	path := writeConfig(t, `{
		"listen_addr": ":50055",
		"http_addr": ":8090",
		"bridge": {
			"seed_url": "ws://192.168.1.10:3000/ws",
			"devices": [
				{
					"id": "rack-ups",
					"type": "apcupsd",
					"display_name": "Rack UPS",
					"host": "192.168.1.10",
					"port": 3000,
					"username": "apc",
					"password": "secret"
				},
				{
					"id": "desk-ups",
					"type": "nut",
					"host": "192.168.1.11",
					"port": 3000
				}
			],
			"connection": {
				"dial_timeout": "5s",
				"read_timeout": "2m",
				"backoff_base": "500ms",
				"backoff_max": "30s",
				"jitter": 0.1,
				"max_failures": 5,
				"refresh_per_minute": 12
			}
		}
	}`)

	var cfg BridgeConfig
	require.NoError(t, LoadAndValidate(path, &cfg))

	assert.Equal(t, ":50055", cfg.ListenAddr)
	assert.Equal(t, ":8090", cfg.HTTPAddr)
	assert.Equal(t, "ws://192.168.1.10:3000/ws", cfg.Bridge.SeedURL)

	require.Len(t, cfg.Bridge.Devices, 2)
	assert.Equal(t, "rack-ups", cfg.Bridge.Devices[0].ID)
	assert.Equal(t, models.TypeApcupsd, cfg.Bridge.Devices[0].Type)
	assert.Equal(t, "apc", cfg.Bridge.Devices[0].Username)
	assert.Equal(t, models.TypeNUT, cfg.Bridge.Devices[1].Type)

	conn := cfg.Bridge.Connection
	assert.Equal(t, 5*time.Second, time.Duration(conn.DialTimeout))
	assert.Equal(t, 2*time.Minute, time.Duration(conn.ReadTimeout))
	assert.Equal(t, 500*time.Millisecond, time.Duration(conn.BackoffBase))
	assert.Equal(t, 30*time.Second, time.Duration(conn.BackoffMax))
	assert.InDelta(t, 0.1, conn.Jitter, 0.0001)
	assert.Equal(t, 5, conn.MaxFailures)
	assert.InDelta(t, 12.0, conn.RefreshPerMinute, 0.0001)
}

func TestLoadAndValidateAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"bridge": {
			"devices": [
				{"id": "ups-1", "type": "nut", "host": "127.0.0.1", "port": 3000}
			]
		}
	}`)

	var cfg BridgeConfig
	require.NoError(t, LoadAndValidate(path, &cfg))

	assert.Equal(t, ":50055", cfg.ListenAddr)
	assert.Equal(t, ":8090", cfg.HTTPAddr)

	conn := cfg.Bridge.Connection
	assert.Equal(t, 10*time.Second, time.Duration(conn.DialTimeout))
	assert.Equal(t, 90*time.Second, time.Duration(conn.ReadTimeout))
	assert.Equal(t, time.Second, time.Duration(conn.BackoffBase))
	assert.Equal(t, time.Minute, time.Duration(conn.BackoffMax))
	assert.InDelta(t, 0.2, conn.Jitter, 0.0001)
	assert.Equal(t, 10, conn.MaxFailures)
	assert.InDelta(t, 6.0, conn.RefreshPerMinute, 0.0001)
}

func TestLoadAndValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "no devices",
			content: `{"bridge": {"devices": []}}`,
			wantErr: bridge.ErrNoDevices,
		},
		{
			name: "duplicate device ids",
			content: `{"bridge": {"devices": [
				{"id": "ups-1", "type": "nut", "host": "h", "port": 1},
				{"id": "ups-1", "type": "nut", "host": "h", "port": 1}
			]}}`,
			wantErr: bridge.ErrDuplicateDeviceID,
		},
		{
			name: "unknown device type",
			content: `{"bridge": {"devices": [
				{"id": "ups-1", "type": "snmp", "host": "h", "port": 1}
			]}}`,
			wantErr: models.ErrUnknownDeviceType,
		},
		{
			name: "missing host",
			content: `{"bridge": {"devices": [
				{"id": "ups-1", "type": "nut", "port": 1}
			]}}`,
			wantErr: models.ErrDeviceHostRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg BridgeConfig

			err := LoadAndValidate(writeConfig(t, tt.content), &cfg)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		var cfg BridgeConfig
		require.Error(t, LoadFile(filepath.Join(t.TempDir(), "absent.json"), &cfg))
	})

	t.Run("invalid json", func(t *testing.T) {
		var cfg BridgeConfig
		require.Error(t, LoadFile(writeConfig(t, "{not json"), &cfg))
	})
}

func TestValidateConfigSkipsNonValidators(t *testing.T) {
	type plain struct{ Name string }

	require.NoError(t, ValidateConfig(&plain{Name: "x"}))
}
