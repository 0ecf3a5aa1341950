package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/pricewatch/internal/model"
	"github.com/quocanhngo/pricewatch/internal/repository"
	"go.uber.org/zap"
)

// PriceReader is a PriceSource that can also expose its cache
type PriceReader interface {
	PriceSource
	Snapshot(ctx context.Context) (map[string]model.CachedPrice, error)
}

// AlertService handles price alert business logic. Every operation is
// scoped to the calling user; alerts owned by someone else look absent.
type AlertService struct {
	store     repository.AlertStore
	prices    PriceReader
	evaluator *Evaluator
	now       func() time.Time
	log       *zap.Logger
}

func NewAlertService(store repository.AlertStore, prices PriceReader, evaluator *Evaluator, log *zap.Logger) *AlertService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AlertService{
		store:     store,
		prices:    prices,
		evaluator: evaluator,
		now:       time.Now,
		log:       log,
	}
}

// Create validates the request, assigns an id and stores an active alert.
// The initial price lookup is best effort.
func (s *AlertService) Create(ctx context.Context, userID string, req model.CreateAlertRequest) (*model.PriceAlert, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = model.DefaultCurrency
	}

	alert := &model.PriceAlert{
		ID:           uuid.NewString(),
		UserID:       userID,
		TokenSymbol:  model.NormalizeSymbol(req.TokenSymbol),
		Condition:    model.AlertCondition(strings.ToLower(string(req.Condition))),
		TargetPrice:  req.TargetPrice,
		Currency:     currency,
		Network:      model.Network(strings.ToLower(string(req.Network))),
		TokenAddress: req.TokenAddress,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	}

	if price, err := s.prices.Get(ctx, alert.TokenSymbol); err != nil {
		s.log.Warn("initial price lookup failed",
			zap.String("symbol", alert.TokenSymbol),
			zap.Error(err),
		)
	} else {
		alert.CurrentPrice = price
	}

	if err := s.store.Create(ctx, alert); err != nil {
		return nil, err
	}

	s.log.Info("price alert created",
		zap.String("alert_id", alert.ID),
		zap.String("user_id", userID),
		zap.String("symbol", alert.TokenSymbol),
	)
	return alert, nil
}

func (s *AlertService) Get(ctx context.Context, userID, id string) (*model.PriceAlert, error) {
	alert, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.UserID != userID {
		return nil, model.NewNotFoundError("alert", id)
	}
	return alert, nil
}

func (s *AlertService) List(ctx context.Context, userID string) ([]*model.PriceAlert, error) {
	return s.store.ListByUser(ctx, userID)
}

// Update applies a partial update atomically against the stored record
func (s *AlertService) Update(ctx context.Context, userID, id string, req model.UpdateAlertRequest) (*model.PriceAlert, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.store.Modify(ctx, id, func(a *model.PriceAlert) error {
		if a.UserID != userID {
			return model.NewNotFoundError("alert", id)
		}
		req.Apply(a)
		return nil
	})
}

// Toggle flips IsActive
func (s *AlertService) Toggle(ctx context.Context, userID, id string) (*model.PriceAlert, error) {
	alert, err := s.store.Modify(ctx, id, func(a *model.PriceAlert) error {
		if a.UserID != userID {
			return model.NewNotFoundError("alert", id)
		}
		a.IsActive = !a.IsActive
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("price alert toggled",
		zap.String("alert_id", id),
		zap.Bool("active", alert.IsActive),
	)
	return alert, nil
}

// Delete is idempotent: an unknown id, or one owned by another user, is a
// successful no-op.
func (s *AlertService) Delete(ctx context.Context, userID, id string) error {
	alert, err := s.store.Get(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if alert.UserID != userID {
		return nil
	}
	return s.store.Delete(ctx, id)
}

// Check evaluates one alert immediately
func (s *AlertService) Check(ctx context.Context, userID, id string) (*model.CheckAlertResponse, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	alert, triggered, err := s.evaluator.CheckOne(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.CheckAlertResponse{Alert: alert, Triggered: triggered}, nil
}

// PriceStats reports the cache contents next to the active alert count
func (s *AlertService) PriceStats(ctx context.Context) (*model.PriceStats, error) {
	snapshot, err := s.prices.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return &model.PriceStats{
		CachedTokens: len(snapshot),
		ActiveAlerts: len(active),
		PriceData:    snapshot,
	}, nil
}
