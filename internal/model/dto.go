package model

import "strings"

// ========== Alert DTOs ==========

type CreateAlertRequest struct {
	TokenSymbol  string         `json:"token_symbol" binding:"required,max=32"`
	Condition    AlertCondition `json:"condition" binding:"required"`
	TargetPrice  float64        `json:"target_price" binding:"required"`
	Currency     string         `json:"currency" binding:"omitempty,max=10"`
	Network      Network        `json:"network" binding:"required"`
	TokenAddress *string        `json:"token_address,omitempty" binding:"omitempty,max=128"`
}

// Validate checks the request the same way for the API and internal callers
func (r *CreateAlertRequest) Validate() error {
	if NormalizeSymbol(r.TokenSymbol) == "" {
		return NewValidationError("token_symbol", "must not be empty")
	}
	if !AlertCondition(strings.ToLower(string(r.Condition))).Valid() {
		return NewValidationError("condition", "must be above or below")
	}
	if !(r.TargetPrice > 0) {
		return NewValidationError("target_price", "must be greater than 0")
	}
	if !Network(strings.ToLower(string(r.Network))).Valid() {
		return NewValidationError("network", "must be solana or ethereum")
	}
	return nil
}

// UpdateAlertRequest is a partial update; nil fields are left unchanged
type UpdateAlertRequest struct {
	Condition   *AlertCondition `json:"condition,omitempty"`
	TargetPrice *float64        `json:"target_price,omitempty"`
	IsActive    *bool           `json:"is_active,omitempty"`
}

func (r *UpdateAlertRequest) Validate() error {
	if r.Condition != nil && !AlertCondition(strings.ToLower(string(*r.Condition))).Valid() {
		return NewValidationError("condition", "must be above or below")
	}
	if r.TargetPrice != nil && !(*r.TargetPrice > 0) {
		return NewValidationError("target_price", "must be greater than 0")
	}
	return nil
}

// Apply copies the set fields onto alert. Call Validate first.
func (r *UpdateAlertRequest) Apply(alert *PriceAlert) {
	if r.Condition != nil {
		alert.Condition = AlertCondition(strings.ToLower(string(*r.Condition)))
	}
	if r.TargetPrice != nil {
		alert.TargetPrice = *r.TargetPrice
	}
	if r.IsActive != nil {
		alert.IsActive = *r.IsActive
	}
}

type CheckAlertResponse struct {
	Alert     *PriceAlert `json:"alert"`
	Triggered bool        `json:"triggered"`
}

// ========== Device DTOs ==========

type RegisterDeviceRequest struct {
	PushToken string   `json:"push_token" binding:"required"`
	Platform  Platform `json:"platform" binding:"required,oneof=ios android"`
	DeviceID  string   `json:"device_id" binding:"required,max=255"`
}

// ========== Preference DTOs ==========

type UpdatePreferencesRequest struct {
	PushNotificationsEnabled        *bool `json:"push_notifications_enabled" binding:"required"`
	PriceAlertsEnabled              *bool `json:"price_alerts_enabled" binding:"required"`
	TransactionNotificationsEnabled *bool `json:"transaction_notifications_enabled" binding:"required"`
	PortfolioUpdatesEnabled         *bool `json:"portfolio_updates_enabled" binding:"required"`
	MarketNewsEnabled               *bool `json:"market_news_enabled" binding:"required"`
}

func (r *UpdatePreferencesRequest) ToPreferences(userID string) NotificationPreferences {
	return NotificationPreferences{
		UserID:                          userID,
		PushNotificationsEnabled:        *r.PushNotificationsEnabled,
		PriceAlertsEnabled:              *r.PriceAlertsEnabled,
		TransactionNotificationsEnabled: *r.TransactionNotificationsEnabled,
		PortfolioUpdatesEnabled:         *r.PortfolioUpdatesEnabled,
		MarketNewsEnabled:               *r.MarketNewsEnabled,
	}
}

// ========== Stats DTOs ==========

type PriceStats struct {
	CachedTokens int                    `json:"cached_tokens"`
	ActiveAlerts int                    `json:"active_alerts"`
	PriceData    map[string]CachedPrice `json:"price_data"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
