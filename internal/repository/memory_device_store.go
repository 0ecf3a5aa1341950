package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/quocanhngo/pricewatch/internal/model"
)

type userDevices struct {
	mu      sync.Mutex
	devices []model.UserDevice
}

// MemoryDeviceStore keeps each user's device list behind its own mutex;
// the outer lock only guards the user index.
type MemoryDeviceStore struct {
	mu    sync.RWMutex
	users map[string]*userDevices
}

func NewMemoryDeviceStore() *MemoryDeviceStore {
	return &MemoryDeviceStore{users: make(map[string]*userDevices)}
}

func (s *MemoryDeviceStore) entry(userID string, create bool) *userDevices {
	s.mu.RLock()
	e, ok := s.users[userID]
	s.mu.RUnlock()
	if ok || !create {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.users[userID]; !ok {
		e = &userDevices{}
		s.users[userID] = e
	}
	return e
}

func (s *MemoryDeviceStore) Upsert(_ context.Context, device model.UserDevice) error {
	e := s.entry(device.UserID, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.devices[:0]
	for _, d := range e.devices {
		if d.DeviceID != device.DeviceID {
			kept = append(kept, d)
		}
	}
	e.devices = append(kept, device)
	return nil
}

func (s *MemoryDeviceStore) Remove(_ context.Context, userID, deviceID string) error {
	e := s.entry(userID, false)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.devices[:0]
	for _, d := range e.devices {
		if d.DeviceID != deviceID {
			kept = append(kept, d)
		}
	}
	e.devices = kept
	return nil
}

func (s *MemoryDeviceStore) ListByUser(_ context.Context, userID string) ([]model.UserDevice, error) {
	return s.list(userID, false), nil
}

func (s *MemoryDeviceStore) ListActive(_ context.Context, userID string) ([]model.UserDevice, error) {
	return s.list(userID, true), nil
}

func (s *MemoryDeviceStore) list(userID string, activeOnly bool) []model.UserDevice {
	e := s.entry(userID, false)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]model.UserDevice, 0, len(e.devices))
	for _, d := range e.devices {
		if activeOnly && !d.IsActive {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

func (s *MemoryDeviceStore) Deactivate(_ context.Context, userID, deviceID, pushToken string) (bool, error) {
	e := s.entry(userID, false)
	if e == nil {
		return false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.devices {
		d := &e.devices[i]
		if d.DeviceID == deviceID && d.PushToken == pushToken && d.IsActive {
			d.IsActive = false
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryDeviceStore) Stats(_ context.Context) (model.DeviceStats, error) {
	s.mu.RLock()
	entries := make([]*userDevices, 0, len(s.users))
	for _, e := range s.users {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var stats model.DeviceStats
	for _, e := range entries {
		e.mu.Lock()
		for _, d := range e.devices {
			stats.Add(d)
		}
		e.mu.Unlock()
	}
	return stats, nil
}
