// Package store holds the latest known UpsStatus per device and detects
// field-level changes between consecutive snapshots. It is the single source
// of truth consumers read; the per-device read loop is its sole writer.
package store

import (
	"sync"

	"github.com/mfreeman451/upsbridge/pkg/models"
)

type slot struct {
	mu     sync.RWMutex
	status *models.UpsStatus
}

// Store keeps at most one snapshot per device id; latest wins. Isolation is
// per device: the outer lock only guards slot lookup and creation, so a
// write for one device never blocks reads for another.
type Store struct {
	mu    sync.RWMutex
	slots map[string]*slot
}

func New() *Store {
	return &Store{
		slots: make(map[string]*slot),
	}
}

// Apply diffs the snapshot against the previously stored one (treating every
// present field as changed when none is stored yet), replaces it, and
// returns the diff. Apply is the sole mutator.
func (s *Store) Apply(deviceID string, status *models.UpsStatus) models.ChangeSet {
	sl := s.slot(deviceID)

	sl.mu.Lock()
	defer sl.mu.Unlock()

	changes := status.Diff(sl.status)
	sl.status = status.Clone()

	return changes
}

// Latest returns a copy of the stored snapshot for the device. The snapshot
// survives connection failure; consumers see last-good state, not "unknown".
func (s *Store) Latest(deviceID string) (*models.UpsStatus, error) {
	s.mu.RLock()
	sl, ok := s.slots[deviceID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrDeviceNotFound
	}

	sl.mu.RLock()
	defer sl.mu.RUnlock()

	if sl.status == nil {
		return nil, ErrDeviceNotFound
	}

	return sl.status.Clone(), nil
}

// Forget drops the slot for a device removed from configuration.
func (s *Store) Forget(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slots, deviceID)
}

func (s *Store) slot(deviceID string) *slot {
	s.mu.RLock()
	sl, ok := s.slots[deviceID]
	s.mu.RUnlock()

	if ok {
		return sl
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sl, ok = s.slots[deviceID]; ok {
		return sl
	}

	sl = &slot{}
	s.slots[deviceID] = sl

	return sl
}
