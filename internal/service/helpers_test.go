package service

import (
	"context"
	"sync"
	"time"

	"github.com/quocanhngo/pricewatch/internal/model"
)

type stubPrices struct {
	mu     sync.Mutex
	prices map[string]float64
	fail   map[string]error
	calls  map[string]int
}

func newStubPrices(prices map[string]float64) *stubPrices {
	return &stubPrices{prices: prices, fail: map[string]error{}, calls: map[string]int{}}
}

func (s *stubPrices) Get(_ context.Context, symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[symbol]++
	if err := s.fail[symbol]; err != nil {
		return 0, &model.PriceFetchError{Symbol: symbol, Err: err}
	}
	p, ok := s.prices[symbol]
	if !ok {
		return 0, &model.PriceFetchError{Symbol: symbol, Err: model.ErrUnknownSymbol}
	}
	return p, nil
}

func (s *stubPrices) Snapshot(context.Context) (map[string]model.CachedPrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.CachedPrice, len(s.prices))
	for k, v := range s.prices {
		out[k] = model.CachedPrice{Price: v}
	}
	return out, nil
}

func (s *stubPrices) set(symbol string, price float64) {
	s.mu.Lock()
	s.prices[symbol] = price
	s.mu.Unlock()
}

func (s *stubPrices) callsFor(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[symbol]
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingHandler struct {
	mu     sync.Mutex
	events []model.TriggeredAlert
	err    error
}

func (h *recordingHandler) HandleTrigger(_ context.Context, t model.TriggeredAlert) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, t)
	return h.err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

type allowAll struct{}

func (allowAll) IsAllowed(context.Context, string, model.NotificationCategory) bool { return true }

func btcAlert(id string) *model.PriceAlert {
	return &model.PriceAlert{
		ID:          id,
		UserID:      "user-1",
		TokenSymbol: "BTC",
		Condition:   model.ConditionAbove,
		TargetPrice: 45000,
		Currency:    "USD",
		Network:     model.NetworkEthereum,
		IsActive:    true,
	}
}
