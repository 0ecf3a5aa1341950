package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EvaluationPasses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricewatch_evaluation_passes_total",
			Help: "Total number of alert evaluation passes",
		},
	)
	EvaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricewatch_evaluation_duration_seconds",
			Help:    "Duration of alert evaluation passes",
			Buckets: prometheus.DefBuckets,
		},
	)
	SkippedTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricewatch_scheduler_skipped_ticks_total",
			Help: "Ticks skipped because the previous pass was still running",
		},
	)
	AlertsTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_alerts_triggered_total",
			Help: "Total number of triggered alerts",
		},
		[]string{"symbol", "condition"},
	)
	AlertsSuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_alerts_suppressed_total",
			Help: "Alerts whose condition held but were inside the cooldown window",
		},
		[]string{"symbol"},
	)
	PriceFetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_price_fetch_errors_total",
			Help: "Failed price lookups",
		},
		[]string{"symbol"},
	)
	PriceCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricewatch_price_cache_hits_total",
			Help: "Price reads served from cache",
		},
	)
	PriceCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricewatch_price_cache_misses_total",
			Help: "Price reads that went to the feed",
		},
	)
	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_push_deliveries_total",
			Help: "Push delivery attempts by platform and result",
		},
		[]string{"platform", "result"},
	)
	DevicesDeactivated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricewatch_devices_deactivated_total",
			Help: "Devices disabled after an invalid-token response",
		},
	)
	NotificationsGated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricewatch_notifications_gated_total",
			Help: "Notifications dropped by user preferences",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(
		EvaluationPasses,
		EvaluationDuration,
		SkippedTicks,
		AlertsTriggered,
		AlertsSuppressed,
		PriceFetchErrors,
		PriceCacheHits,
		PriceCacheMisses,
		Deliveries,
		DevicesDeactivated,
		NotificationsGated,
	)
}
