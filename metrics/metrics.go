// Package metrics exposes prometheus collectors for the sync engine. The
// collectors are registered on the default registry and served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookDeliveriesTotal counts inbound deliveries by terminal outcome
	// (applied, partially_failed, failed, skipped, rejected).
	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_webhook_deliveries_total",
			Help: "Total number of webhook deliveries by terminal outcome",
		},
		[]string{"outcome"},
	)

	// SyncRunsTotal counts reconciler passes by kind (full, match, courts,
	// standings, entries) and status (ok, failed).
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_sync_runs_total",
			Help: "Total number of sync passes by kind and status",
		},
		[]string{"kind", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mirror_sync_duration_seconds",
			Help:    "Duration of sync passes in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_api_requests_total",
			Help: "Total number of outbound platform API requests",
		},
		[]string{"operation", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mirror_api_request_duration_seconds",
			Help:    "Duration of outbound platform API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
