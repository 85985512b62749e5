// Package bridge pkg/bridge/connection.go
package bridge

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mfreeman451/upsbridge/pkg/models"
	"github.com/mfreeman451/upsbridge/pkg/protocol"
)

// Deps are the collaborators a ConnectionManager needs. Dialer and Clock
// default to the real implementations when nil; Store is required.
type Deps struct {
	Dialer   Dialer
	Clock    Clock
	Store    MetricStore
	Notifier Notifier
	OnState  StateFunc
}

// ConnectionManager owns the websocket connection for exactly one configured
// device and drives its state machine:
//
//	Disconnected -> Connecting -> Connected -> Reconnecting -> Connecting ...
//
// Failed is entered when the consecutive-failure budget is spent or the
// upstream rejects the credentials, and is terminal until Reset. Each
// successfully decoded frame goes through the store; non-empty change sets
// reach the notifier. Frame processing is strictly sequential per device.
type ConnectionManager struct {
	device models.DeviceConfig
	cfg    ConnectionConfig

	dialer   Dialer
	clock    Clock
	store    MetricStore
	notifier Notifier
	onState  StateFunc

	mu      sync.RWMutex
	state   models.ConnectionState
	conn    Conn
	started bool

	writeMu  sync.Mutex
	resetCh  chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewConnectionManager(device models.DeviceConfig, cfg ConnectionConfig, deps Deps) (*ConnectionManager, error) {
	if err := device.Validate(); err != nil {
		return nil, err
	}

	if deps.Store == nil {
		return nil, errors.New("metric store is required")
	}

	cfg.applyDefaults()

	if deps.Dialer == nil {
		deps.Dialer = NewWebsocketDialer(time.Duration(cfg.DialTimeout))
	}

	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}

	return &ConnectionManager{
		device:   device,
		cfg:      cfg,
		dialer:   deps.Dialer,
		clock:    deps.Clock,
		store:    deps.Store,
		notifier: deps.Notifier,
		onState:  deps.OnState,
		state:    models.StateDisconnected,
		resetCh:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Start launches the connection loop. It returns immediately; connection
// progress is observable through State and the state listener.
func (m *ConnectionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("device %s: %w", m.device.ID, ErrAlreadyStarted)
	}

	m.started = true
	m.mu.Unlock()

	m.wg.Add(1)

	go m.run(ctx)

	return nil
}

// Stop aborts any in-flight wait, closes the socket, and joins the loop
// goroutine. Bounded by ctx.
func (m *ConnectionManager) Stop(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.done) })

	m.closeConn()

	waited := make(chan struct{})

	go func() {
		m.wg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		m.setState(models.StateDisconnected)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("device %s: shutdown timed out: %w", m.device.ID, ctx.Err())
	}
}

// State returns the current connection state.
func (m *ConnectionManager) State() models.ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

// Device returns the immutable configuration this manager was built with.
func (m *ConnectionManager) Device() models.DeviceConfig {
	return m.device
}

// Reset re-issues Connecting after a terminal Failed state, typically on a
// configuration reload.
func (m *ConnectionManager) Reset() error {
	if m.State() != models.StateFailed {
		return fmt.Errorf("device %s: %w", m.device.ID, ErrNotFailed)
	}

	select {
	case m.resetCh <- struct{}{}:
	default:
	}

	return nil
}

// Refresh writes the protocol-defined refresh request on the existing
// socket. Accepted only while Connected; the refreshed status arrives
// asynchronously through the normal frame path.
func (m *ConnectionManager) Refresh() error {
	m.mu.RLock()
	state, conn := m.state, m.conn
	m.mu.RUnlock()

	if state != models.StateConnected || conn == nil {
		return fmt.Errorf("device %s: %w", m.device.ID, ErrNotConnected)
	}

	frame, err := protocol.RefreshFrame(m.device.Type)
	if err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("device %s: refresh write failed: %w", m.device.ID, err)
	}

	return nil
}

func (m *ConnectionManager) run(ctx context.Context) {
	defer m.wg.Done()

	backoff := NewBackoff(
		time.Duration(m.cfg.BackoffBase),
		time.Duration(m.cfg.BackoffMax),
		m.cfg.Jitter,
	)

	failures := 0

	for m.running(ctx) {
		m.setState(models.StateConnecting)

		conn, err := m.dial(ctx)
		if err != nil {
			if !m.running(ctx) {
				return
			}

			if errors.Is(err, ErrAuthRejected) {
				// Retrying with the same bad credentials is futile.
				log.Printf("Device %s: %v; waiting for reset", m.device.ID, err)

				if !m.awaitReset(ctx) {
					return
				}

				backoff.Reset()

				failures = 0

				continue
			}

			failures++
			log.Printf("Device %s: connect attempt %d failed: %v", m.device.ID, failures, err)

			if failures >= m.cfg.MaxFailures {
				log.Printf("Device %s: retry budget exhausted after %d failures", m.device.ID, failures)

				if !m.awaitReset(ctx) {
					return
				}

				backoff.Reset()

				failures = 0

				continue
			}

			m.setState(models.StateReconnecting)

			if !m.wait(ctx, backoff.Next()) {
				return
			}

			continue
		}

		m.setConn(conn)
		m.setState(models.StateConnected)
		log.Printf("Device %s: connected to %s", m.device.ID, m.endpoint())

		failures = 0

		backoff.Reset()

		err = m.readLoop(ctx, conn)
		m.closeConn()

		if !m.running(ctx) {
			return
		}

		log.Printf("Device %s: connection lost: %v", m.device.ID, err)

		failures = 1

		m.setState(models.StateReconnecting)

		if !m.wait(ctx, backoff.Next()) {
			return
		}
	}
}

func (m *ConnectionManager) dial(ctx context.Context) (Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, time.Duration(m.cfg.DialTimeout))
	defer cancel()

	var header http.Header

	if m.device.Username != "" {
		cred := base64.StdEncoding.EncodeToString(
			[]byte(m.device.Username + ":" + m.device.Password))
		header = http.Header{}
		header.Set("Authorization", "Basic "+cred)
	}

	conn, resp, err := m.dialer.DialContext(dialCtx, m.endpoint(), header)
	if err != nil {
		if resp != nil &&
			(resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: upgrade returned %d", ErrAuthRejected, resp.StatusCode)
		}

		return nil, err
	}

	return conn, nil
}

func (m *ConnectionManager) endpoint() string {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(m.device.Host, strconv.Itoa(m.device.Port)),
		Path:   "/ws",
	}

	return u.String()
}

// readLoop reads frames until a transport error. A side goroutine closes the
// socket on shutdown so a blocked read cannot outlive its manager.
func (m *ConnectionManager) readLoop(ctx context.Context, conn Conn) error {
	loopDone := make(chan struct{})
	defer close(loopDone)

	go func() {
		select {
		case <-ctx.Done():
		case <-m.done:
		case <-loopDone:
			return
		}

		_ = conn.Close()
	}()

	for {
		if m.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(m.clock.Now().Add(time.Duration(m.cfg.ReadTimeout)))
		}

		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		m.handleFrame(frame)
	}
}

// handleFrame decodes one frame and routes the result. A malformed frame is
// dropped and logged; the connection stays up.
func (m *ConnectionManager) handleFrame(frame []byte) {
	status, err := protocol.Decode(m.device.Type, frame)
	if err != nil {
		log.Printf("Device %s: dropping frame: %v", m.device.ID, err)
		return
	}

	status.ObservedAt = m.clock.Now()

	changes := m.store.Apply(m.device.ID, status)
	if changes.IsEmpty() {
		return
	}

	if m.notifier != nil {
		m.notifier.Notify(m.device.ID, status, changes)
	}
}

func (m *ConnectionManager) awaitReset(ctx context.Context) bool {
	m.setState(models.StateFailed)

	select {
	case <-m.resetCh:
		log.Printf("Device %s: reset received, reconnecting", m.device.ID)
		return true
	case <-ctx.Done():
		return false
	case <-m.done:
		return false
	}
}

func (m *ConnectionManager) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-m.clock.After(d):
		return true
	case <-ctx.Done():
		return false
	case <-m.done:
		return false
	}
}

func (m *ConnectionManager) running(ctx context.Context) bool {
	select {
	case <-m.done:
		return false
	default:
	}

	return ctx.Err() == nil
}

func (m *ConnectionManager) setConn(conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conn = conn
}

func (m *ConnectionManager) closeConn() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

func (m *ConnectionManager) setState(state models.ConnectionState) {
	m.mu.Lock()

	if m.state == state {
		m.mu.Unlock()
		return
	}

	m.state = state
	m.mu.Unlock()

	if m.onState != nil {
		m.onState(m.device.ID, state)
	}
}
