// Package bridge pkg/bridge/service.go
package bridge

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mfreeman451/upsbridge/pkg/dispatch"
	"github.com/mfreeman451/upsbridge/pkg/models"
	"github.com/mfreeman451/upsbridge/pkg/store"
)

// Service is the composition root of the telemetry client: it owns the
// metric store, the dispatcher, and one ConnectionManager per configured
// device. Devices share no mutable state; a permanently failing device never
// affects a healthy one.
type Service struct {
	cfg        *Config
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	dialer     Dialer
	clock      Clock
	onState    StateFunc

	mu       sync.RWMutex
	managers map[string]*ConnectionManager
	limiters map[string]*rate.Limiter
	runCtx   context.Context
	cancel   context.CancelFunc
	started  bool
}

// ServiceOption tweaks Service construction; used mainly by tests to inject
// fake dialers and clocks.
type ServiceOption func(*Service)

func WithDialer(d Dialer) ServiceOption {
	return func(s *Service) { s.dialer = d }
}

func WithClock(c Clock) ServiceOption {
	return func(s *Service) { s.clock = c }
}

// WithStateListener registers a listener for connection state transitions of
// every device (health endpoint, connectivity sensors).
func WithStateListener(fn StateFunc) ServiceOption {
	return func(s *Service) { s.onState = fn }
}

func NewService(cfg *Config, opts ...ServiceOption) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bridge config: %w", err)
	}

	st := store.New()

	s := &Service{
		cfg:        cfg,
		store:      st,
		dispatcher: dispatch.New(st.Latest),
		clock:      SystemClock(),
		managers:   make(map[string]*ConnectionManager),
		limiters:   make(map[string]*rate.Limiter),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.dialer == nil {
		s.dialer = NewWebsocketDialer(time.Duration(cfg.Connection.DialTimeout))
	}

	return s, nil
}

// Start creates and starts a connection manager per configured device. It
// implements lifecycle.Service and returns once the managers are launched.
// The seed fetch runs before the managers but outside the service lock, so
// a slow upstream never blocks the accessors.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}

	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.started = true

	runCtx := s.runCtx
	seedURL := s.cfg.SeedURL
	devices := make([]models.DeviceConfig, len(s.cfg.Devices))
	copy(devices, s.cfg.Devices)

	s.mu.Unlock()

	if seedURL != "" {
		s.seed(runCtx, seedURL, devices)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, dev := range devices {
		if err := s.addDeviceLocked(dev); err != nil {
			return err
		}
	}

	log.Printf("Bridge service started with %d device(s)", len(s.managers))

	return nil
}

// Stop tears down every connection manager and drains the dispatcher.
// Bounded by ctx.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()

	if s.cancel != nil {
		s.cancel()
	}

	managers := make([]*ConnectionManager, 0, len(s.managers))
	for _, m := range s.managers {
		managers = append(managers, m)
	}

	s.mu.Unlock()

	var firstErr error

	for _, m := range managers {
		if err := m.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.dispatcher.Stop()

	return firstErr
}

// Subscribe registers a consumer callback for a device's change events. The
// subscriber is primed with the current snapshot when one exists.
func (s *Service) Subscribe(deviceID string, callback dispatch.Callback) *dispatch.Subscription {
	return s.dispatcher.Subscribe(deviceID, callback)
}

// Unsubscribe removes a subscription.
func (s *Service) Unsubscribe(sub *dispatch.Subscription) {
	s.dispatcher.Unsubscribe(sub)
}

// Latest returns the last known snapshot for a device.
func (s *Service) Latest(deviceID string) (*models.UpsStatus, error) {
	return s.store.Latest(deviceID)
}

// ConnectionState reports where a device's manager is in its lifecycle.
func (s *Service) ConnectionState(deviceID string) (models.ConnectionState, error) {
	s.mu.RLock()
	m, ok := s.managers[deviceID]
	s.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDevice, deviceID)
	}

	return m.State(), nil
}

// Devices lists the configured devices in configuration order.
func (s *Service) Devices() []models.DeviceConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.DeviceConfig, 0, len(s.cfg.Devices))
	for _, dev := range s.cfg.Devices {
		if _, ok := s.managers[dev.ID]; ok {
			out = append(out, dev)
		}
	}

	return out
}

// RequestRefresh asks a device for an immediate status report. Accepted only
// while the device is Connected and inside its rate budget; the caller
// decides whether to retry.
func (s *Service) RequestRefresh(deviceID string) error {
	s.mu.RLock()
	m, ok := s.managers[deviceID]
	limiter := s.limiters[deviceID]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDevice, deviceID)
	}

	if limiter != nil && !limiter.Allow() {
		return fmt.Errorf("device %s: %w", deviceID, ErrRefreshThrottled)
	}

	return m.Refresh()
}

// ResetDevice clears a terminal Failed state, typically after the user fixed
// credentials or brought the local service back.
func (s *Service) ResetDevice(deviceID string) error {
	s.mu.RLock()
	m, ok := s.managers[deviceID]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDevice, deviceID)
	}

	return m.Reset()
}

// ApplyConfig reconciles the running managers with a new device list.
// Changed or removed devices have their managers torn down and recreated;
// managers are never mutated in place.
func (s *Service) ApplyConfig(ctx context.Context, devices []models.DeviceConfig) error {
	want := make(map[string]models.DeviceConfig, len(devices))

	for i := range devices {
		dev := devices[i]
		if err := dev.Validate(); err != nil {
			return err
		}

		if _, ok := want[dev.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateDeviceID, dev.ID)
		}

		want[dev.ID] = dev
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Before Start there are no managers to reconcile; the new device list
	// simply becomes the one Start will launch.
	if !s.started {
		s.cfg.Devices = devices
		return nil
	}

	for id, m := range s.managers {
		dev, keep := want[id]
		if keep && dev == m.Device() {
			delete(want, id)
			continue
		}

		if err := m.Stop(ctx); err != nil {
			log.Printf("Device %s: stop during reconfigure: %v", id, err)
		}

		delete(s.managers, id)
		delete(s.limiters, id)

		if !keep {
			s.store.Forget(id)
		}
	}

	for _, dev := range want {
		if err := s.addDeviceLocked(dev); err != nil {
			return err
		}
	}

	s.cfg.Devices = devices

	return nil
}

func (s *Service) addDeviceLocked(dev models.DeviceConfig) error {
	if _, ok := s.managers[dev.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDeviceExists, dev.ID)
	}

	m, err := NewConnectionManager(dev, s.cfg.Connection, Deps{
		Dialer:   s.dialer,
		Clock:    s.clock,
		Store:    s.store,
		Notifier: s.dispatcher,
		OnState:  s.onState,
	})
	if err != nil {
		return err
	}

	if err := m.Start(s.runCtx); err != nil {
		return err
	}

	s.managers[dev.ID] = m
	s.limiters[dev.ID] = rate.NewLimiter(
		rate.Limit(s.cfg.Connection.RefreshPerMinute/60), 1)

	return nil
}
