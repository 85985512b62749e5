// Package bridge pkg/bridge/interfaces.go
package bridge

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mfreeman451/upsbridge/pkg/models"
)

//go:generate mockgen -destination=mock_bridge.go -package=bridge github.com/mfreeman451/upsbridge/pkg/bridge Conn,Dialer,Clock,MetricStore,Notifier

// Conn is the slice of a websocket connection the read loop needs.
type Conn interface {
	// ReadMessage blocks for the next frame
	ReadMessage() (messageType int, p []byte, err error)
	// WriteMessage sends a single frame
	WriteMessage(messageType int, data []byte) error
	// SetReadDeadline bounds the next ReadMessage
	SetReadDeadline(t time.Time) error
	Close() error
}

// Dialer establishes websocket connections.
type Dialer interface {
	// DialContext performs the websocket handshake. The response is returned
	// even on handshake failure so the caller can distinguish an auth
	// rejection from a transport error.
	DialContext(ctx context.Context, url string, header http.Header) (Conn, *http.Response, error)
}

// Clock abstracts time so backoff and read deadlines are testable without
// real network timing.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// MetricStore is the slice of the store the read loop writes into.
type MetricStore interface {
	Apply(deviceID string, status *models.UpsStatus) models.ChangeSet
	Latest(deviceID string) (*models.UpsStatus, error)
}

// Notifier receives non-empty change sets for fan-out.
type Notifier interface {
	Notify(deviceID string, status *models.UpsStatus, changed models.ChangeSet)
}

// StateFunc observes connection state transitions for a device.
type StateFunc func(deviceID string, state models.ConnectionState)

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

type wsDialer struct {
	handshakeTimeout time.Duration
}

// NewWebsocketDialer returns a Dialer backed by gorilla/websocket.
func NewWebsocketDialer(handshakeTimeout time.Duration) Dialer {
	return &wsDialer{handshakeTimeout: handshakeTimeout}
}

func (d *wsDialer) DialContext(ctx context.Context, url string, header http.Header) (Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.handshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, resp, err
	}

	return conn, resp, nil
}
