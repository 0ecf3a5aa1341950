package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/quocanhngo/pricewatch/internal/metrics"
	"github.com/quocanhngo/pricewatch/internal/model"
	"github.com/quocanhngo/pricewatch/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultCooldown           = 5 * time.Minute
	DefaultMaxConcurrentFetch = 8
)

// PriceSource resolves the current price of a symbol
type PriceSource interface {
	Get(ctx context.Context, symbol string) (float64, error)
}

// TriggerHandler receives every fired alert
type TriggerHandler interface {
	HandleTrigger(ctx context.Context, t model.TriggeredAlert) error
}

// TriggerHandlerFunc adapts a function to TriggerHandler
type TriggerHandlerFunc func(ctx context.Context, t model.TriggeredAlert) error

func (f TriggerHandlerFunc) HandleTrigger(ctx context.Context, t model.TriggeredAlert) error {
	return f(ctx, t)
}

// PassResult counts what one evaluation pass did
type PassResult struct {
	Alerts        int
	Symbols       int
	Triggered     int
	Suppressed    int
	FailedSymbols int
	Errors        int
}

// Evaluator runs evaluation passes over the active alerts
type Evaluator struct {
	store         repository.AlertStore
	prices        PriceSource
	handler       TriggerHandler
	cooldown      time.Duration
	maxConcurrent int
	now           func() time.Time
	log           *zap.Logger
}

type EvaluatorOption func(*Evaluator)

func WithCooldown(d time.Duration) EvaluatorOption {
	return func(e *Evaluator) {
		if d > 0 {
			e.cooldown = d
		}
	}
}

// WithMaxConcurrentFetch bounds how many symbol groups are priced at once
func WithMaxConcurrentFetch(n int) EvaluatorOption {
	return func(e *Evaluator) {
		if n > 0 {
			e.maxConcurrent = n
		}
	}
}

func WithEvaluatorClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) { e.now = now }
}

func NewEvaluator(store repository.AlertStore, prices PriceSource, handler TriggerHandler, log *zap.Logger, opts ...EvaluatorOption) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Evaluator{
		store:         store,
		prices:        prices,
		handler:       handler,
		cooldown:      DefaultCooldown,
		maxConcurrent: DefaultMaxConcurrentFetch,
		now:           time.Now,
		log:           log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunPass evaluates every active alert once. Errors are isolated per symbol
// group and per alert; the pass itself only fails when the active list
// cannot be read.
func (e *Evaluator) RunPass(ctx context.Context) (PassResult, error) {
	ctx, span := otel.Tracer("pricewatch").Start(ctx, "evaluator.pass")
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.EvaluationPasses.Inc()
		metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	}()

	var result PassResult

	alerts, err := e.store.ListActive(ctx)
	if err != nil {
		e.log.Error("list active alerts failed", zap.Error(err))
		span.RecordError(err)
		return result, err
	}
	if len(alerts) == 0 {
		return result, nil
	}

	groups := groupBySymbol(alerts)
	result.Alerts = len(alerts)
	result.Symbols = len(groups)
	span.SetAttributes(
		attribute.Int("alerts", result.Alerts),
		attribute.Int("symbols", result.Symbols),
	)

	// one timestamp per pass keeps cooldown decisions consistent across groups
	now := e.now()

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(e.maxConcurrent)

	for symbol, group := range groups {
		g.Go(func() error {
			r := e.evaluateGroup(ctx, symbol, group, now)
			mu.Lock()
			result.Triggered += r.Triggered
			result.Suppressed += r.Suppressed
			result.FailedSymbols += r.FailedSymbols
			result.Errors += r.Errors
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(
		attribute.Int("triggered", result.Triggered),
		attribute.Int("failed_symbols", result.FailedSymbols),
	)
	e.log.Debug("evaluation pass finished",
		zap.Int("alerts", result.Alerts),
		zap.Int("symbols", result.Symbols),
		zap.Int("triggered", result.Triggered),
		zap.Int("suppressed", result.Suppressed),
		zap.Int("failed_symbols", result.FailedSymbols),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (e *Evaluator) evaluateGroup(ctx context.Context, symbol string, group []*model.PriceAlert, now time.Time) PassResult {
	var r PassResult

	price, err := e.prices.Get(ctx, symbol)
	if err != nil {
		e.log.Warn("price fetch failed, skipping symbol",
			zap.String("symbol", symbol),
			zap.Int("alerts", len(group)),
			zap.Error(err),
		)
		r.FailedSymbols++
		return r
	}

	for _, alert := range group {
		outcome, err := e.evaluate(ctx, alert.ID, price, now)
		switch {
		case errors.Is(err, model.ErrNotFound):
			// deleted since the pass listed it
			continue
		case err != nil:
			e.log.Error("alert evaluation failed",
				zap.String("alert_id", alert.ID),
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			r.Errors++
			continue
		}

		if outcome.suppressed {
			r.Suppressed++
		}
		if outcome.triggered {
			r.Triggered++
			if outcome.handoffErr != nil {
				r.Errors++
			}
		}
	}
	return r
}

type evaluation struct {
	alert      *model.PriceAlert
	triggered  bool
	suppressed bool
	handoffErr error
}

// evaluate applies the trigger rule to the stored record under its lock so a
// concurrent edit or toggle is never overwritten, then hands a fired alert to
// the trigger handler.
func (e *Evaluator) evaluate(ctx context.Context, id string, price float64, now time.Time) (evaluation, error) {
	var out evaluation

	updated, err := e.store.Modify(ctx, id, func(a *model.PriceAlert) error {
		out.triggered, out.suppressed = false, false
		a.CurrentPrice = price
		if !a.IsActive || !a.Matches(price) {
			return nil
		}
		if a.InCooldown(now, e.cooldown) {
			out.suppressed = true
			return nil
		}
		a.MarkTriggered(now)
		out.triggered = true
		return nil
	})
	if err != nil {
		return out, err
	}
	out.alert = updated

	if out.suppressed {
		metrics.AlertsSuppressed.WithLabelValues(updated.TokenSymbol).Inc()
	}
	if !out.triggered {
		return out, nil
	}

	metrics.AlertsTriggered.WithLabelValues(updated.TokenSymbol, string(updated.Condition)).Inc()
	e.log.Info("price alert triggered",
		zap.String("alert_id", updated.ID),
		zap.String("user_id", updated.UserID),
		zap.String("symbol", updated.TokenSymbol),
		zap.String("condition", string(updated.Condition)),
		zap.Float64("target", updated.TargetPrice),
		zap.Float64("price", price),
	)

	if e.handler != nil {
		event := model.TriggeredAlert{Alert: *updated.Clone(), ObservedAt: now, Price: price}
		// the trigger is already persisted, so a caller going away must not
		// drop its notification
		if err := e.handler.HandleTrigger(context.WithoutCancel(ctx), event); err != nil {
			e.log.Error("trigger handoff failed",
				zap.String("alert_id", updated.ID),
				zap.String("user_id", updated.UserID),
				zap.Error(err),
			)
			out.handoffErr = err
		}
	}
	return out, nil
}

// CheckOne evaluates a single alert right away with the same rule, cooldown
// and persistence as a scheduled pass.
func (e *Evaluator) CheckOne(ctx context.Context, id string) (*model.PriceAlert, bool, error) {
	alert, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}

	price, err := e.prices.Get(ctx, alert.TokenSymbol)
	if err != nil {
		return nil, false, err
	}

	out, err := e.evaluate(ctx, id, price, e.now())
	if err != nil {
		return nil, false, err
	}
	return out.alert, out.triggered, nil
}

func groupBySymbol(alerts []*model.PriceAlert) map[string][]*model.PriceAlert {
	groups := make(map[string][]*model.PriceAlert)
	for _, a := range alerts {
		symbol := model.NormalizeSymbol(a.TokenSymbol)
		groups[symbol] = append(groups[symbol], a)
	}
	return groups
}
