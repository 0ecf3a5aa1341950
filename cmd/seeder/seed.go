package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/pricewatch/internal/model"
	"github.com/quocanhngo/pricewatch/internal/repository"
	"go.uber.org/zap"
)

type seedOptions struct {
	Users          int
	AlertsPerUser  int
	DevicesPerUser int
	AllCategories  bool
}

type seeder struct {
	alerts  repository.AlertStore
	devices repository.DeviceStore
	prefs   repository.PreferenceStore
	log     *zap.Logger
}

// run is idempotent for devices and preferences; alerts are added every time.
// It returns the seeded user ids.
func (s seeder) run(ctx context.Context, opts seedOptions) ([]string, error) {
	users := make([]string, 0, opts.Users)
	now := time.Now().UTC()

	for i := 1; i <= opts.Users; i++ {
		userID := fmt.Sprintf("user%d", i)

		prefs := model.DefaultPreferences(userID)
		if opts.AllCategories {
			prefs.PortfolioUpdatesEnabled = true
			prefs.MarketNewsEnabled = true
		}
		prefs.UpdatedAt = now
		if err := s.prefs.Save(ctx, prefs); err != nil {
			return nil, fmt.Errorf("save preferences for %s: %w", userID, err)
		}

		for d := 1; d <= opts.DevicesPerUser; d++ {
			platform := model.PlatformAndroid
			if d%2 == 0 {
				platform = model.PlatformIOS
			}
			device := model.UserDevice{
				UserID:       userID,
				DeviceID:     fmt.Sprintf("%s-device-%d", userID, d),
				PushToken:    fmt.Sprintf("seed-token-%s-%d", userID, d),
				Platform:     platform,
				RegisteredAt: now,
				IsActive:     true,
			}
			if err := s.devices.Upsert(ctx, device); err != nil {
				return nil, fmt.Errorf("register device for %s: %w", userID, err)
			}
		}

		for a := 0; a < opts.AlertsPerUser; a++ {
			pick := seedSymbols[(i+a)%len(seedSymbols)]
			condition := model.ConditionAbove
			if a%2 == 1 {
				condition = model.ConditionBelow
			}
			alert := &model.PriceAlert{
				ID:          uuid.NewString(),
				UserID:      userID,
				TokenSymbol: pick.symbol,
				Condition:   condition,
				TargetPrice: pick.target,
				Currency:    model.DefaultCurrency,
				Network:     pick.network,
				IsActive:    true,
				CreatedAt:   now,
			}
			if err := s.alerts.Create(ctx, alert); err != nil {
				return nil, fmt.Errorf("create alert for %s: %w", userID, err)
			}
		}

		s.log.Info("seeded user",
			zap.String("user_id", userID),
			zap.Int("devices", opts.DevicesPerUser),
			zap.Int("alerts", opts.AlertsPerUser),
		)
		users = append(users, userID)
	}
	return users, nil
}
