package service

import (
	"context"
	"errors"
	"time"

	"github.com/quocanhngo/pricewatch/internal/metrics"
	"github.com/quocanhngo/pricewatch/internal/model"
	"github.com/quocanhngo/pricewatch/internal/repository"
	"go.uber.org/zap"
)

// PreferenceService stores notification switches and gates dispatch on them
type PreferenceService struct {
	store repository.PreferenceStore
	now   func() time.Time
	log   *zap.Logger
}

func NewPreferenceService(store repository.PreferenceStore, log *zap.Logger) *PreferenceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PreferenceService{store: store, now: time.Now, log: log}
}

// Get returns the stored preferences, or the defaults when none were saved
func (s *PreferenceService) Get(ctx context.Context, userID string) (model.NotificationPreferences, error) {
	prefs, err := s.store.Get(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.DefaultPreferences(userID), nil
	}
	if err != nil {
		return model.NotificationPreferences{}, err
	}
	return *prefs, nil
}

// Update replaces all five switches
func (s *PreferenceService) Update(ctx context.Context, userID string, req model.UpdatePreferencesRequest) (model.NotificationPreferences, error) {
	if req.PushNotificationsEnabled == nil || req.PriceAlertsEnabled == nil ||
		req.TransactionNotificationsEnabled == nil || req.PortfolioUpdatesEnabled == nil ||
		req.MarketNewsEnabled == nil {
		return model.NotificationPreferences{}, model.NewValidationError("preferences", "all five flags are required")
	}

	prefs := req.ToPreferences(userID)
	prefs.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, prefs); err != nil {
		return model.NotificationPreferences{}, err
	}

	s.log.Debug("preferences updated", zap.String("user_id", userID))
	return prefs, nil
}

// IsAllowed reports whether category may reach the user's devices. A store
// failure blocks the notification.
func (s *PreferenceService) IsAllowed(ctx context.Context, userID string, category model.NotificationCategory) bool {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		s.log.Error("load preferences failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		metrics.NotificationsGated.WithLabelValues(string(category)).Inc()
		return false
	}
	if !prefs.Allows(category) {
		metrics.NotificationsGated.WithLabelValues(string(category)).Inc()
		return false
	}
	return true
}
