package price

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/quocanhngo/pricewatch/internal/model"
)

// Feed fetches a current quote for an uppercase symbol. Unknown symbols
// return an error wrapping model.ErrUnknownSymbol.
type Feed interface {
	FetchPrice(ctx context.Context, symbol string) (float64, error)
}

// StaticFeed serves fixed quotes. It backs development setups and tests.
type StaticFeed struct {
	mu              sync.RWMutex
	prices          map[string]float64
	fallbackUnknown bool
}

// DefaultQuotes are the development reference prices in USD
var DefaultQuotes = map[string]float64{
	"BTC":   45500,
	"ETH":   2900,
	"SOL":   110,
	"USDC":  1,
	"USDT":  1,
	"MATIC": 0.9,
	"AVAX":  27.5,
	"LINK":  16.5,
	"DOT":   7,
	"ADA":   0.55,
}

// NewStaticFeed copies quotes. With fallbackUnknown set, unknown symbols get
// a stable pseudo price instead of ErrUnknownSymbol.
func NewStaticFeed(quotes map[string]float64, fallbackUnknown bool) *StaticFeed {
	prices := make(map[string]float64, len(quotes))
	for k, v := range quotes {
		prices[model.NormalizeSymbol(k)] = v
	}
	return &StaticFeed{prices: prices, fallbackUnknown: fallbackUnknown}
}

func (f *StaticFeed) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.mu.RLock()
	p, ok := f.prices[symbol]
	f.mu.RUnlock()
	if ok {
		return p, nil
	}
	if f.fallbackUnknown {
		return FallbackPrice(symbol), nil
	}
	return 0, model.ErrUnknownSymbol
}

// SetPrice overrides one quote
func (f *StaticFeed) SetPrice(symbol string, price float64) {
	f.mu.Lock()
	f.prices[model.NormalizeSymbol(symbol)] = price
	f.mu.Unlock()
}

// FallbackPrice maps a symbol to a stable value in [0.01, 100.00]
func FallbackPrice(symbol string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	return float64(h.Sum32()%10000+1) / 100
}

// FallbackFeed answers unknown symbols from FallbackPrice and passes every
// other result through unchanged.
type FallbackFeed struct {
	Feed Feed
}

func (f FallbackFeed) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	p, err := f.Feed.FetchPrice(ctx, symbol)
	if errors.Is(err, model.ErrUnknownSymbol) {
		return FallbackPrice(symbol), nil
	}
	return p, err
}
