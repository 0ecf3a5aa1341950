package service

import (
	"container/list"
	"sync"

	"github.com/quocanhngo/pricewatch/internal/model"
)

const (
	DefaultHistorySize  = 100
	DefaultHistoryLimit = 50
	// DefaultHistoryUsers bounds how many users keep a ring at once
	DefaultHistoryUsers = 10000
)

// History keeps the most recent notifications per user in a bounded ring.
// Once maxUsers is reached the user written to least recently is dropped.
type History struct {
	mu       sync.Mutex
	size     int
	maxUsers int
	byUser   map[string]*ring
	recency  *list.List
}

type ring struct {
	items []model.NotificationRecord
	next  int
	full  bool
	elem  *list.Element
}

func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		size:     size,
		maxUsers: DefaultHistoryUsers,
		byUser:   make(map[string]*ring),
		recency:  list.New(),
	}
}

func (h *History) Add(userID string, rec model.NotificationRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.byUser[userID]
	if !ok {
		r = &ring{items: make([]model.NotificationRecord, h.size)}
		r.elem = h.recency.PushFront(userID)
		h.byUser[userID] = r
		if h.recency.Len() > h.maxUsers {
			oldest := h.recency.Back()
			h.recency.Remove(oldest)
			delete(h.byUser, oldest.Value.(string))
		}
	} else {
		h.recency.MoveToFront(r.elem)
	}
	r.items[r.next] = rec
	r.next = (r.next + 1) % h.size
	if r.next == 0 {
		r.full = true
	}
}

// List returns up to limit records, most recent first
func (h *History) List(userID string, limit int) []model.NotificationRecord {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.byUser[userID]
	if !ok {
		return []model.NotificationRecord{}
	}

	n := r.next
	if r.full {
		n = h.size
	}
	if limit > n {
		limit = n
	}

	out := make([]model.NotificationRecord, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (r.next - i + h.size) % h.size
		out = append(out, r.items[idx])
	}
	return out
}
