// Package api exposes the bridge's live state over HTTP: device list with
// connection state and last-known snapshot, plus the refresh and reset
// actions. Read-only apart from those two commands; the bridge offers no
// other control surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mfreeman451/upsbridge/pkg/bridge"
	httpx "github.com/mfreeman451/upsbridge/pkg/http"
	"github.com/mfreeman451/upsbridge/pkg/models"
	"github.com/mfreeman451/upsbridge/pkg/store"
)

//go:generate mockgen -destination=mock_api.go -package=api github.com/mfreeman451/upsbridge/pkg/api BridgeService

const shutdownGrace = 5 * time.Second

// BridgeService is the slice of the bridge the API serves.
type BridgeService interface {
	Devices() []models.DeviceConfig
	Latest(deviceID string) (*models.UpsStatus, error)
	ConnectionState(deviceID string) (models.ConnectionState, error)
	RequestRefresh(deviceID string) error
	ResetDevice(deviceID string) error
}

// DeviceStatus is one device as rendered by the API.
type DeviceStatus struct {
	ID              string                 `json:"id"`
	DisplayName     string                 `json:"display_name,omitempty"`
	Type            models.DeviceType      `json:"type"`
	ConnectionState models.ConnectionState `json:"connection_state"`
	Status          *models.UpsStatus      `json:"status,omitempty"`
}

type APIServer struct {
	svc    BridgeService
	router *mux.Router
	srv    *http.Server
}

func NewAPIServer(svc BridgeService) *APIServer {
	s := &APIServer{
		svc:    svc,
		router: mux.NewRouter(),
	}

	s.setupRoutes()

	return s
}

func (s *APIServer) setupRoutes() {
	s.router.Use(httpx.CommonMiddleware)

	s.router.HandleFunc("/api/devices", s.getDevices).Methods(http.MethodGet)
	s.router.HandleFunc("/api/devices/{id}", s.getDevice).Methods(http.MethodGet)
	s.router.HandleFunc("/api/devices/{id}/refresh", s.postRefresh).Methods(http.MethodPost)
	s.router.HandleFunc("/api/devices/{id}/reset", s.postReset).Methods(http.MethodPost)
}

func (s *APIServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves the API on addr until the context is canceled.
func (s *APIServer) Start(ctx context.Context, addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP API shutdown: %v", err)
		}
	}()

	log.Printf("HTTP API listening on %s", addr)

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *APIServer) getDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.svc.Devices()
	out := make([]DeviceStatus, 0, len(devices))

	for _, dev := range devices {
		out = append(out, s.deviceStatus(dev))
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *APIServer) getDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	for _, dev := range s.svc.Devices() {
		if dev.ID == id {
			writeJSON(w, http.StatusOK, s.deviceStatus(dev))
			return
		}
	}

	writeError(w, http.StatusNotFound, "unknown device")
}

func (s *APIServer) postRefresh(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := s.svc.RequestRefresh(id)

	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"result": "accepted"})
	case errors.Is(err, bridge.ErrUnknownDevice):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, bridge.ErrNotConnected):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, bridge.ErrRefreshThrottled):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *APIServer) postReset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := s.svc.ResetDevice(id)

	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"result": "accepted"})
	case errors.Is(err, bridge.ErrUnknownDevice):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, bridge.ErrNotFailed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *APIServer) deviceStatus(dev models.DeviceConfig) DeviceStatus {
	ds := DeviceStatus{
		ID:          dev.ID,
		DisplayName: dev.DisplayName,
		Type:        dev.Type,
	}

	if state, err := s.svc.ConnectionState(dev.ID); err == nil {
		ds.ConnectionState = state
	}

	if status, err := s.svc.Latest(dev.ID); err == nil {
		ds.Status = status
	} else if !errors.Is(err, store.ErrDeviceNotFound) {
		log.Printf("Device %s: latest lookup: %v", dev.ID, err)
	}

	return ds
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
