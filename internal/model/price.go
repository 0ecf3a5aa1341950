package model

import "time"

// CachedPrice is the last known quote for a symbol
type CachedPrice struct {
	Price       float64   `json:"price"`
	LastUpdated time.Time `json:"last_updated"`
}

// Fresh reports whether the entry is still within ttl at now
func (c CachedPrice) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.LastUpdated) < ttl
}
