package price

// CoinGecko simple-price client. Requests go through a token-bucket rate
// limiter and a circuit breaker so a failing upstream is not hammered
// every evaluation pass.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quocanhngo/pricewatch/internal/model"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// coinGeckoIDs maps ticker symbols to CoinGecko coin ids
var coinGeckoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"USDC":  "usd-coin",
	"USDT":  "tether",
	"MATIC": "matic-network",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"DOT":   "polkadot",
	"ADA":   "cardano",
	"BONK":  "bonk",
	"JUP":   "jupiter-exchange-solana",
	"RAY":   "raydium",
	"UNI":   "uniswap",
	"AAVE":  "aave",
}

const maxResponseSize = 1 << 20

type CoinGeckoFeed struct {
	baseURL        string
	apiKey         string
	currency       string
	httpClient     *http.Client
	rateLimiter    *rate.Limiter
	circuitBreaker *gobreaker.CircuitBreaker
	log            *zap.Logger
}

type CoinGeckoOptions struct {
	BaseURL        string
	APIKey         string
	RequestsPerSec float64
	Timeout        time.Duration
}

func NewCoinGeckoFeed(opts CoinGeckoOptions, log *zap.Logger) *CoinGeckoFeed {
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	burst := int(opts.RequestsPerSec * 2)
	if burst < 1 {
		burst = 1
	}

	return &CoinGeckoFeed{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		currency:    "usd",
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), burst),
		circuitBreaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "CoinGecko",
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
			// an unknown symbol is a caller problem, not an upstream failure
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, model.ErrUnknownSymbol)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		log: log,
	}
}

func (f *CoinGeckoFeed) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	id, ok := coinGeckoIDs[symbol]
	if !ok {
		return 0, model.ErrUnknownSymbol
	}

	if err := f.rateLimiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter: %w", err)
	}

	result, err := f.circuitBreaker.Execute(func() (interface{}, error) {
		return f.fetch(ctx, id)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return 0, fmt.Errorf("%w: %v", model.ErrPriceFeedUnavailable, err)
	}
	if err != nil {
		return 0, err
	}
	return result.(float64), nil
}

func (f *CoinGeckoFeed) fetch(ctx context.Context, id string) (float64, error) {
	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", f.currency)
	endpoint := f.baseURL + "/simple/price?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if f.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", f.apiKey)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrPriceFeedUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, fmt.Errorf("%w: read body: %v", model.ErrPriceFeedUnavailable, err)
	}

	f.log.Debug("coingecko response",
		zap.String("id", id),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: http %d", model.ErrPriceFeedUnavailable, resp.StatusCode)
	}

	var payload map[string]map[string]float64
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("%w: decode: %v", model.ErrPriceFeedUnavailable, err)
	}
	price, ok := payload[id][f.currency]
	if !ok {
		return 0, model.ErrUnknownSymbol
	}
	return price, nil
}
