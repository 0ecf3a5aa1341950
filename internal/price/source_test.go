package price

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quocanhngo/pricewatch/internal/model"
	"go.uber.org/zap/zaptest"
)

type countingFeed struct {
	calls atomic.Int32
	price float64
	err   error
	delay time.Duration
}

func (f *countingFeed) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if f.err != nil {
		return 0, f.err
	}
	return f.price, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestSource_CacheHitWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	feed := &countingFeed{price: 45500}
	src := NewSource(feed, NewMemoryCache(), zaptest.NewLogger(t), WithClock(clock.Now))

	first, err := src.Get(context.Background(), "btc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	feed.price = 99999
	clock.Advance(29 * time.Second)

	second, err := src.Get(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Errorf("expected identical price within TTL, got %v then %v", first, second)
	}
	if got := feed.calls.Load(); got != 1 {
		t.Errorf("expected 1 feed call, got %d", got)
	}
}

func TestSource_StaleEntryRefreshes(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	feed := &countingFeed{price: 100}
	cache := NewMemoryCache()
	src := NewSource(feed, cache, zaptest.NewLogger(t), WithClock(clock.Now))

	if _, err := src.Get(context.Background(), "SOL"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	feed.price = 120
	clock.Advance(30 * time.Second)

	p, err := src.Get(context.Background(), "SOL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != 120 {
		t.Errorf("expected refreshed price 120, got %v", p)
	}
	if got := feed.calls.Load(); got != 2 {
		t.Errorf("expected 2 feed calls, got %d", got)
	}

	entry, ok, _ := cache.Get(context.Background(), "SOL")
	if !ok || entry.Price != 120 || !entry.LastUpdated.Equal(clock.Now()) {
		t.Errorf("cache not rewritten: %+v (ok=%v)", entry, ok)
	}
}

func TestSource_FetchErrorIsTypedAndNotCached(t *testing.T) {
	feed := &countingFeed{err: model.ErrUnknownSymbol}
	cache := NewMemoryCache()
	src := NewSource(feed, cache, zaptest.NewLogger(t))

	_, err := src.Get(context.Background(), "NOPE")
	var fetchErr *model.PriceFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected PriceFetchError, got %v", err)
	}
	if fetchErr.Symbol != "NOPE" {
		t.Errorf("expected symbol NOPE, got %s", fetchErr.Symbol)
	}
	if !errors.Is(err, model.ErrUnknownSymbol) {
		t.Errorf("expected ErrUnknownSymbol in chain, got %v", err)
	}

	snap, _ := cache.Snapshot(context.Background())
	if len(snap) != 0 {
		t.Errorf("failed fetch must not be cached, got %v", snap)
	}
}

func TestSource_FetchTimeout(t *testing.T) {
	feed := &countingFeed{price: 1, delay: time.Second}
	src := NewSource(feed, NewMemoryCache(), zaptest.NewLogger(t), WithFetchTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := src.Get(context.Background(), "ETH")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("fetch did not honor the timeout")
	}
}

func TestSource_ConcurrentMissesShareOneFetch(t *testing.T) {
	feed := &countingFeed{price: 2900, delay: 50 * time.Millisecond}
	src := NewSource(feed, NewMemoryCache(), zaptest.NewLogger(t))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := src.Get(context.Background(), "ETH"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := feed.calls.Load(); got != 1 {
		t.Errorf("expected a single shared fetch, got %d", got)
	}
}

func TestSource_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	feed := &countingFeed{price: 2900, delay: 100 * time.Millisecond}
	src := NewSource(feed, NewMemoryCache(), zaptest.NewLogger(t))

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := src.Get(ctxA, "ETH")
		errA <- err
	}()

	// let A start the fetch before B joins it
	time.Sleep(10 * time.Millisecond)
	type result struct {
		price float64
		err   error
	}
	resB := make(chan result, 1)
	go func() {
		p, err := src.Get(context.Background(), "ETH")
		resB <- result{p, err}
	}()

	time.Sleep(10 * time.Millisecond)
	cancelA()

	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller: expected context.Canceled, got %v", err)
	}
	b := <-resB
	if b.err != nil {
		t.Fatalf("live caller failed: %v", b.err)
	}
	if b.price != 2900 {
		t.Errorf("live caller got %v, want 2900", b.price)
	}
	if got := feed.calls.Load(); got != 1 {
		t.Errorf("expected one shared fetch, got %d", got)
	}
}

func TestStaticFeed(t *testing.T) {
	strict := NewStaticFeed(DefaultQuotes, false)
	if p, err := strict.FetchPrice(context.Background(), "BTC"); err != nil || p != 45500 {
		t.Errorf("BTC = %v, %v", p, err)
	}
	if _, err := strict.FetchPrice(context.Background(), "TYPO"); !errors.Is(err, model.ErrUnknownSymbol) {
		t.Errorf("expected ErrUnknownSymbol, got %v", err)
	}

	lenient := NewStaticFeed(nil, true)
	a, err := lenient.FetchPrice(context.Background(), "TYPO")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := lenient.FetchPrice(context.Background(), "TYPO")
	if a != b {
		t.Errorf("fallback must be deterministic: %v != %v", a, b)
	}
	if a < 0.01 || a > 100 {
		t.Errorf("fallback out of range: %v", a)
	}

	lenient.SetPrice("typo", 3)
	if p, _ := lenient.FetchPrice(context.Background(), "TYPO"); p != 3 {
		t.Errorf("SetPrice not applied, got %v", p)
	}
}

func TestFallbackFeed(t *testing.T) {
	feed := FallbackFeed{Feed: NewStaticFeed(map[string]float64{"ETH": 2900}, false)}

	if p, err := feed.FetchPrice(context.Background(), "ETH"); err != nil || p != 2900 {
		t.Errorf("ETH = %v, %v", p, err)
	}
	if p, err := feed.FetchPrice(context.Background(), "NOPE"); err != nil || p != FallbackPrice("NOPE") {
		t.Errorf("NOPE = %v, %v", p, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := feed.FetchPrice(ctx, "ETH"); !errors.Is(err, context.Canceled) {
		t.Errorf("other errors must pass through, got %v", err)
	}
}
