package model

import "time"

// NotificationCategory tags a notification for preference gating
type NotificationCategory string

const (
	CategoryPriceAlert      NotificationCategory = "price_alert"
	CategoryTransaction     NotificationCategory = "transaction"
	CategoryPortfolioUpdate NotificationCategory = "portfolio_update"
	CategoryMarketNews      NotificationCategory = "market_news"
	CategoryTest            NotificationCategory = "test"
)

// NotificationPreferences holds the per-user switches
type NotificationPreferences struct {
	UserID                          string    `json:"-" gorm:"size:128;primaryKey"`
	PushNotificationsEnabled        bool      `json:"push_notifications_enabled" gorm:"not null"`
	PriceAlertsEnabled              bool      `json:"price_alerts_enabled" gorm:"not null"`
	TransactionNotificationsEnabled bool      `json:"transaction_notifications_enabled" gorm:"not null"`
	PortfolioUpdatesEnabled         bool      `json:"portfolio_updates_enabled" gorm:"not null"`
	MarketNewsEnabled               bool      `json:"market_news_enabled" gorm:"not null"`
	UpdatedAt                       time.Time `json:"updated_at"`
}

func (NotificationPreferences) TableName() string {
	return "notification_preferences"
}

// DefaultPreferences is what a user without a stored record gets
func DefaultPreferences(userID string) NotificationPreferences {
	return NotificationPreferences{
		UserID:                          userID,
		PushNotificationsEnabled:        true,
		PriceAlertsEnabled:              true,
		TransactionNotificationsEnabled: true,
		PortfolioUpdatesEnabled:         false,
		MarketNewsEnabled:               false,
	}
}

// Allows requires the global push switch and the category switch.
// Test notifications only need push enabled.
func (p NotificationPreferences) Allows(category NotificationCategory) bool {
	if !p.PushNotificationsEnabled {
		return false
	}
	switch category {
	case CategoryPriceAlert:
		return p.PriceAlertsEnabled
	case CategoryTransaction:
		return p.TransactionNotificationsEnabled
	case CategoryPortfolioUpdate:
		return p.PortfolioUpdatesEnabled
	case CategoryMarketNews:
		return p.MarketNewsEnabled
	case CategoryTest:
		return true
	}
	return false
}
