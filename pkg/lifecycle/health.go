package lifecycle

import (
	"sync"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/mfreeman451/upsbridge/pkg/models"
)

// HealthTracker folds per-device connection states into the gRPC health
// status: SERVING while at least one device is Connected, NOT_SERVING
// otherwise. Wire its OnState into the bridge service's state listener.
type HealthTracker struct {
	serviceName string

	mu     sync.Mutex
	states map[string]models.ConnectionState
	hs     *health.Server
}

func NewHealthTracker(serviceName string) *HealthTracker {
	return &HealthTracker{
		serviceName: serviceName,
		states:      make(map[string]models.ConnectionState),
	}
}

// Attach binds the tracker to a health server and publishes the current
// aggregate immediately.
func (t *HealthTracker) Attach(hs *health.Server) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.hs = hs
	t.publishLocked()
}

// OnState records a device transition. Safe for concurrent use from every
// connection manager.
func (t *HealthTracker) OnState(deviceID string, state models.ConnectionState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.states[deviceID] = state
	t.publishLocked()
}

// DeviceState reports the last observed state for a device.
func (t *HealthTracker) DeviceState(deviceID string) (models.ConnectionState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.states[deviceID]

	return state, ok
}

func (t *HealthTracker) publishLocked() {
	if t.hs == nil {
		return
	}

	status := healthpb.HealthCheckResponse_NOT_SERVING

	for _, state := range t.states {
		if state == models.StateConnected {
			status = healthpb.HealthCheckResponse_SERVING
			break
		}
	}

	t.hs.SetServingStatus(t.serviceName, status)
	t.hs.SetServingStatus("", status)
}
