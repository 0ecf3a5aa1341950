package repository

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/quocanhngo/pricewatch/internal/model"
)

const alertShards = 32

type alertShard struct {
	mu      sync.RWMutex
	records map[string]*model.PriceAlert
}

// MemoryAlertStore is a lock-striped in-memory AlertStore. Writers to
// unrelated alerts only contend when they hash to the same shard.
type MemoryAlertStore struct {
	shards [alertShards]*alertShard
}

func NewMemoryAlertStore() *MemoryAlertStore {
	s := &MemoryAlertStore{}
	for i := range s.shards {
		s.shards[i] = &alertShard{records: make(map[string]*model.PriceAlert)}
	}
	return s
}

func (s *MemoryAlertStore) shard(id string) *alertShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return s.shards[h.Sum32()%alertShards]
}

func (s *MemoryAlertStore) Create(_ context.Context, alert *model.PriceAlert) error {
	if alert.ID == "" {
		return model.NewValidationError("id", "must be assigned before create")
	}
	sh := s.shard(alert.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.records[alert.ID] = alert.Clone()
	return nil
}

func (s *MemoryAlertStore) Get(_ context.Context, id string) (*model.PriceAlert, error) {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	a, ok := sh.records[id]
	if !ok {
		return nil, model.NewNotFoundError("alert", id)
	}
	return a.Clone(), nil
}

func (s *MemoryAlertStore) Update(_ context.Context, alert *model.PriceAlert) error {
	sh := s.shard(alert.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.records[alert.ID]; !ok {
		return model.NewNotFoundError("alert", alert.ID)
	}
	sh.records[alert.ID] = alert.Clone()
	return nil
}

func (s *MemoryAlertStore) Modify(_ context.Context, id string, fn func(*model.PriceAlert) error) (*model.PriceAlert, error) {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	current, ok := sh.records[id]
	if !ok {
		return nil, model.NewNotFoundError("alert", id)
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	sh.records[id] = next
	return next.Clone(), nil
}

func (s *MemoryAlertStore) Delete(_ context.Context, id string) error {
	sh := s.shard(id)
	sh.mu.Lock()
	delete(sh.records, id)
	sh.mu.Unlock()
	return nil
}

func (s *MemoryAlertStore) ListByUser(_ context.Context, userID string) ([]*model.PriceAlert, error) {
	return s.collect(func(a *model.PriceAlert) bool { return a.UserID == userID }), nil
}

func (s *MemoryAlertStore) ListActive(_ context.Context) ([]*model.PriceAlert, error) {
	return s.collect(func(a *model.PriceAlert) bool { return a.IsActive }), nil
}

// collect snapshots matching records, newest first like the SQL store
func (s *MemoryAlertStore) collect(match func(*model.PriceAlert) bool) []*model.PriceAlert {
	var out []*model.PriceAlert
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, a := range sh.records {
			if match(a) {
				out = append(out, a.Clone())
			}
		}
		sh.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
