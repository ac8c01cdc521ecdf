package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SnapshotsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alerting_snapshots_processed_total",
			Help: "Total number of metric snapshots evaluated",
		},
	)

	SnapshotsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alerting_snapshots_dropped_total",
			Help: "Snapshots dropped because the engine queue was full",
		},
	)

	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerting_alerts_created_total",
			Help: "Alerts persisted, by type and severity",
		},
		[]string{"type", "severity"},
	)

	AlertsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerting_alerts_suppressed_total",
			Help: "Alert candidates suppressed, by reason (dedup, instance_gate, unknown_parameter)",
		},
		[]string{"reason"},
	)

	NotificationsProjected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alerting_notifications_projected_total",
			Help: "Notifications created by the alert projector",
		},
	)

	// StoreErrors makes swallowed persistence failures observable. The engine
	// never propagates store errors into the ingestion flow, so this counter
	// is the only signal of silent data loss.
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerting_store_errors_total",
			Help: "Persistence failures swallowed by the fire-and-forget alerting path, by operation",
		},
		[]string{"operation"},
	)
)
