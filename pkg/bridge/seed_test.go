package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mfreeman451/upsbridge/pkg/models"
)

func TestBuildHTTPURL(t *testing.T) {
	tests := []struct {
		name      string
		serverURL string
		path      string
		want      string
	}{
		{"ws to http", "ws://192.168.1.10:3000/ws", "/api/status", "http://192.168.1.10:3000/api/status"},
		{"wss to https", "wss://ups.local:3000/ws", "/api/status", "https://ups.local:3000/api/status"},
		{"http passthrough", "http://ups.local:3000", "/api/status", "http://ups.local:3000/api/status"},
		{"query stripped", "ws://ups.local:3000/ws?token=abc", "/api/status", "http://ups.local:3000/api/status"},
		{"empty input", "", "/api/status", ""},
		{"unusable scheme", "ftp://ups.local", "/api/status", ""},
		{"no scheme", "ups.local:not-a-port", "/api/status", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildHTTPURL(tt.serverURL, tt.path))
		})
	}
}

func TestServiceSeedsFromHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/status", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{
				"device_name": "ups-1",
				"type": "apcupsd",
				"attributes": {"status": "ONLINE", "battery_charge": 88, "load_percentage": 14.5}
			},
			{
				"device_name": "not-configured",
				"attributes": {"status": "ONLINE"}
			}
		]`))
	}))
	defer ts.Close()

	dev := models.DeviceConfig{ID: "ups-1", Type: models.TypeApcupsd, Host: "10.0.0.2", Port: 3000}
	dialer, _ := hostDialer(ctrl, map[string]Conn{"10.0.0.2": scriptedConn(ctrl)})

	cfg := testServiceConfig(dev)
	cfg.SeedURL = ts.URL

	svc, err := NewService(cfg, WithDialer(dialer), WithClock(testClock(ctrl)))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))

	// Seeding happens during Start, before any websocket frame arrives.
	latest, err := svc.Latest("ups-1")
	require.NoError(t, err)
	assert.Equal(t, models.UpsOnline, latest.Status)
	require.NotNil(t, latest.BatteryCharge)
	assert.InDelta(t, 88.0, *latest.BatteryCharge, 0.001)
	require.NotNil(t, latest.Load)
	assert.InDelta(t, 14.5, *latest.Load, 0.001)
	assert.True(t, latest.ObservedAt.Equal(testObserved))

	require.NoError(t, svc.Stop(ctx))
}

func TestServiceStartSeedDoesNotBlockAccessors(t *testing.T) {
	ctrl := gomock.NewController(t)

	fetching := make(chan struct{})
	release := make(chan struct{})
	releaseSeed := sync.OnceFunc(func() { close(release) })
	defer releaseSeed()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(fetching)
		<-release

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	dev := models.DeviceConfig{ID: "ups-1", Type: models.TypeApcupsd, Host: "10.0.0.2", Port: 3000}
	dialer, _ := hostDialer(ctrl, map[string]Conn{"10.0.0.2": scriptedConn(ctrl)})

	cfg := testServiceConfig(dev)
	cfg.SeedURL = ts.URL

	svc, err := NewService(cfg, WithDialer(dialer), WithClock(testClock(ctrl)))
	require.NoError(t, err)

	ctx := context.Background()

	started := make(chan error, 1)
	go func() { started <- svc.Start(ctx) }()

	select {
	case <-fetching:
	case <-time.After(2 * time.Second):
		t.Fatal("seed fetch never started")
	}

	// The seed fetch is stalled mid-flight; the service must still answer.
	answered := make(chan struct{})

	go func() {
		defer close(answered)

		_, _ = svc.Latest("ups-1")
		_, _ = svc.ConnectionState("ups-1")
		_ = svc.Devices()
	}()

	select {
	case <-answered:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("accessors blocked behind the seed fetch")
	}

	releaseSeed()
	require.NoError(t, <-started)
	require.NoError(t, svc.Stop(ctx))
}

func TestServiceSeedFailureIsNonFatal(t *testing.T) {
	ctrl := gomock.NewController(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	dev := models.DeviceConfig{ID: "ups-1", Type: models.TypeApcupsd, Host: "10.0.0.2", Port: 3000}

	conn := scriptedConn(ctrl, "STATUS : ONLINE")
	dialer, _ := hostDialer(ctrl, map[string]Conn{"10.0.0.2": conn})
	states := newServiceStateRecorder()

	cfg := testServiceConfig(dev)
	cfg.SeedURL = ts.URL

	svc, err := NewService(cfg,
		WithDialer(dialer),
		WithClock(testClock(ctrl)),
		WithStateListener(states.onState),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))

	// The websocket path still delivers despite the failed seed.
	states.waitFor(t, "ups-1", models.StateConnected)

	assert.Eventually(t, func() bool {
		latest, err := svc.Latest("ups-1")
		return err == nil && latest.Status == models.UpsOnline
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, svc.Stop(ctx))
}
