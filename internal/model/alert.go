package model

import (
	"strings"
	"time"
)

// AlertCondition defines which side of the target price fires an alert
type AlertCondition string

const (
	ConditionAbove AlertCondition = "above"
	ConditionBelow AlertCondition = "below"
)

// Valid reports whether c is one of the known conditions
func (c AlertCondition) Valid() bool {
	return c == ConditionAbove || c == ConditionBelow
}

// Network identifies the chain a token lives on
type Network string

const (
	NetworkSolana   Network = "solana"
	NetworkEthereum Network = "ethereum"
)

func (n Network) Valid() bool {
	return n == NetworkSolana || n == NetworkEthereum
}

// DefaultCurrency is used when an alert is created without one
const DefaultCurrency = "USD"

// PriceAlert is a user-defined rule pairing a token, a condition and a target
// price with its delivery state.
type PriceAlert struct {
	ID              string         `json:"id" gorm:"type:uuid;primaryKey"`
	UserID          string         `json:"user_id" gorm:"size:128;not null;index"`
	TokenSymbol     string         `json:"token_symbol" gorm:"size:32;not null;index:idx_active_symbol,priority:2"`
	Condition       AlertCondition `json:"condition" gorm:"size:10;not null"`
	TargetPrice     float64        `json:"target_price" gorm:"not null"`
	CurrentPrice    float64        `json:"current_price"`
	Currency        string         `json:"currency" gorm:"size:10;default:'USD'"`
	Network         Network        `json:"network" gorm:"size:20;not null"`
	TokenAddress    *string        `json:"token_address,omitempty" gorm:"size:128"`
	IsActive        bool           `json:"is_active" gorm:"not null;index:idx_active_symbol,priority:1"`
	CreatedAt       time.Time      `json:"created_at"`
	LastTriggeredAt *time.Time     `json:"last_triggered_at,omitempty"`
	TriggerCount    int            `json:"trigger_count" gorm:"not null;default:0"`
}

func (PriceAlert) TableName() string {
	return "price_alerts"
}

// Matches reports whether price satisfies the alert condition, ignoring
// activity and cooldown.
func (a *PriceAlert) Matches(price float64) bool {
	switch a.Condition {
	case ConditionAbove:
		return price >= a.TargetPrice
	case ConditionBelow:
		return price <= a.TargetPrice
	}
	return false
}

// InCooldown reports whether the alert fired less than cooldown ago.
// An alert that never fired is never in cooldown.
func (a *PriceAlert) InCooldown(now time.Time, cooldown time.Duration) bool {
	if a.LastTriggeredAt == nil {
		return false
	}
	return now.Sub(*a.LastTriggeredAt) < cooldown
}

// ShouldTrigger combines the activity flag, the condition and the cooldown
func (a *PriceAlert) ShouldTrigger(price float64, now time.Time, cooldown time.Duration) bool {
	if !a.IsActive {
		return false
	}
	if a.InCooldown(now, cooldown) {
		return false
	}
	return a.Matches(price)
}

// MarkTriggered records a trigger event at now
func (a *PriceAlert) MarkTriggered(now time.Time) {
	t := now
	a.LastTriggeredAt = &t
	a.TriggerCount++
}

// Clone returns a deep copy so callers never share pointer fields with the store
func (a *PriceAlert) Clone() *PriceAlert {
	if a == nil {
		return nil
	}
	c := *a
	if a.TokenAddress != nil {
		addr := *a.TokenAddress
		c.TokenAddress = &addr
	}
	if a.LastTriggeredAt != nil {
		t := *a.LastTriggeredAt
		c.LastTriggeredAt = &t
	}
	return &c
}

// NormalizeSymbol uppercases and trims a token symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// TriggeredAlert is emitted when an evaluation fires an alert
type TriggeredAlert struct {
	Alert      PriceAlert `json:"alert"`
	ObservedAt time.Time  `json:"observed_at"`
	Price      float64    `json:"price"`
}
