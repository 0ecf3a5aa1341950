package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ALERT_EVAL_INTERVAL", "")
	t.Setenv("PRICE_CACHE_TTL", "")
	t.Setenv("PRICE_FALLBACK_UNKNOWN", "")

	cfg := Load()

	if cfg.Alerts.EvaluationInterval != 30*time.Second {
		t.Errorf("expected 30s evaluation interval, got %v", cfg.Alerts.EvaluationInterval)
	}
	if cfg.Alerts.Cooldown != 5*time.Minute {
		t.Errorf("expected 5m cooldown, got %v", cfg.Alerts.Cooldown)
	}
	if cfg.Price.CacheTTL != 30*time.Second {
		t.Errorf("expected 30s cache TTL, got %v", cfg.Price.CacheTTL)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("expected memory storage, got %s", cfg.Storage.Driver)
	}
	if !cfg.Price.FallbackUnknown {
		t.Error("expected unknown symbols to get a fallback price by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ALERT_EVAL_INTERVAL", "10s")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("PRICE_FEED_RPS", "2.5")
	t.Setenv("ALERT_MAX_CONCURRENT_FETCH", "3")
	t.Setenv("PRICE_FALLBACK_UNKNOWN", "false")

	cfg := Load()

	if cfg.Alerts.EvaluationInterval != 10*time.Second {
		t.Errorf("expected 10s, got %v", cfg.Alerts.EvaluationInterval)
	}
	if !cfg.Redis.Enabled {
		t.Error("expected redis enabled")
	}
	if cfg.Price.RequestsPerSec != 2.5 {
		t.Errorf("expected 2.5 rps, got %v", cfg.Price.RequestsPerSec)
	}
	if cfg.Alerts.MaxConcurrentFetch != 3 {
		t.Errorf("expected 3, got %d", cfg.Alerts.MaxConcurrentFetch)
	}
	if cfg.Price.FallbackUnknown {
		t.Error("expected strict unknown-symbol handling")
	}
}

func TestGetDuration_InvalidFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"garbage", "soon", time.Minute},
		{"negative", "-5s", time.Minute},
		{"zero", "0s", time.Minute},
		{"valid", "90s", 90 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if got := getDuration("TEST_DURATION", time.Minute); got != tt.want {
				t.Errorf("getDuration(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestDBConfig_URL(t *testing.T) {
	d := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	want := "postgres://u:p@db:5432/n?sslmode=disable"
	if got := d.URL(); got != want {
		t.Errorf("URL() = %s, want %s", got, want)
	}
}
