package price

import (
	"context"
	"time"

	"github.com/quocanhngo/pricewatch/internal/metrics"
	"github.com/quocanhngo/pricewatch/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL          = 30 * time.Second
	DefaultFetchTimeout = 5 * time.Second
)

// Source is the cache-first price adapter. Concurrent misses for the same
// symbol share one feed call.
type Source struct {
	feed    Feed
	cache   Cache
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
	group   singleflight.Group
	log     *zap.Logger
}

type SourceOption func(*Source)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) SourceOption {
	return func(s *Source) { s.now = now }
}

func WithTTL(ttl time.Duration) SourceOption {
	return func(s *Source) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithFetchTimeout(d time.Duration) SourceOption {
	return func(s *Source) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewSource(feed Feed, cache Cache, log *zap.Logger, opts ...SourceOption) *Source {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Source{
		feed:    feed,
		cache:   cache,
		ttl:     DefaultTTL,
		timeout: DefaultFetchTimeout,
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current price for symbol, hitting the feed only when the
// cached entry is missing or older than the TTL.
func (s *Source) Get(ctx context.Context, symbol string) (float64, error) {
	symbol = model.NormalizeSymbol(symbol)

	entry, ok, err := s.cache.Get(ctx, symbol)
	if err != nil {
		s.log.Warn("price cache read failed", zap.String("symbol", symbol), zap.Error(err))
	}
	if ok && entry.Fresh(s.now(), s.ttl) {
		metrics.PriceCacheHits.Inc()
		return entry.Price, nil
	}
	metrics.PriceCacheMisses.Inc()

	// the shared fetch outlives any single caller; each waiter still honors
	// its own ctx
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(symbol, func() (interface{}, error) {
		return s.refresh(fetchCtx, symbol)
	})
	select {
	case <-ctx.Done():
		return 0, &model.PriceFetchError{Symbol: symbol, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(float64), nil
	}
}

func (s *Source) refresh(ctx context.Context, symbol string) (float64, error) {
	ctx, span := otel.Tracer("pricewatch").Start(ctx, "price.refresh")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.feed.FetchPrice(fetchCtx, symbol)
	if err != nil {
		metrics.PriceFetchErrors.WithLabelValues(symbol).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return 0, &model.PriceFetchError{Symbol: symbol, Err: err}
	}

	if err := s.cache.Set(ctx, symbol, model.CachedPrice{Price: p, LastUpdated: s.now()}); err != nil {
		s.log.Warn("price cache write failed", zap.String("symbol", symbol), zap.Error(err))
	}
	return p, nil
}

// Snapshot exposes the raw cache contents for the stats endpoint
func (s *Source) Snapshot(ctx context.Context) (map[string]model.CachedPrice, error) {
	return s.cache.Snapshot(ctx)
}
