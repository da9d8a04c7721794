package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeliveryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_delivery_attempts_total",
			Help: "Delivery attempts by channel and terminal status",
		},
		[]string{"channel", "status"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notify_dispatch_duration_seconds",
			Help:    "Duration of one content item dispatch",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5, 10, 30},
		},
		[]string{"item_type"},
	)

	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_claims_total",
			Help: "Due-item claim outcomes by item type",
		},
		[]string{"item_type", "outcome"},
	)

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_cache_requests_total",
			Help: "Stats cache lookups by result",
		},
		[]string{"result"},
	)

	EventPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_event_publish_errors_total",
			Help: "Delivery events that could not be published",
		},
	)
)

const (
	ClaimWon      = "won"
	ClaimLost     = "lost"
	ClaimReleased = "released"

	CacheHit  = "hit"
	CacheMiss = "miss"
)
