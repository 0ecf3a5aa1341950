package repository

import (
	"context"
	"sync"

	"github.com/quocanhngo/pricewatch/internal/model"
)

type MemoryPreferenceStore struct {
	mu    sync.RWMutex
	prefs map[string]model.NotificationPreferences
}

func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{prefs: make(map[string]model.NotificationPreferences)}
}

func (s *MemoryPreferenceStore) Get(_ context.Context, userID string) (*model.NotificationPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prefs[userID]
	if !ok {
		return nil, model.NewNotFoundError("preferences", userID)
	}
	return &p, nil
}

func (s *MemoryPreferenceStore) Save(_ context.Context, prefs model.NotificationPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[prefs.UserID] = prefs
	return nil
}
