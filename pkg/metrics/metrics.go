// Package metrics provides Prometheus metrics for the rams service and the
// watch client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rams"

var (
	// ReadsIngestedTotal tracks accepted reads by resolution outcome
	ReadsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "reads_total",
			Help:      "Total number of reads appended to the event log by resolution outcome",
		},
		[]string{"outcome"},
	)

	// PresenceFailuresTotal tracks presence upserts that failed after the append
	PresenceFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "presence_failures_total",
			Help:      "Total number of presence upserts that failed after the read was logged",
		},
	)

	// NotificationsPublishedTotal tracks push notifications by sink and status
	NotificationsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "notifications_total",
			Help:      "Total number of sighting notifications published by sink and status",
		},
		[]string{"sink", "status"},
	)

	// PublishDuration tracks push publish latency
	PublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "publish_duration_seconds",
			Help:      "Duration of sighting publish operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
		[]string{"sink"},
	)

	// BindingConflictsTotal tracks rejected associations
	BindingConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bindings",
			Name:      "conflicts_total",
			Help:      "Total number of associations rejected because the epc was already bound",
		},
	)

	// LifecycleTransitionsTotal tracks decommission and recommission transitions
	LifecycleTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Total number of asset lifecycle transitions",
		},
		[]string{"transition"},
	)

	// UndiscoveredImportedTotal tracks undiscovered payloads stored per mapping
	UndiscoveredImportedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "undiscovered",
			Name:      "imported_total",
			Help:      "Total number of undiscovered asset payloads stored",
		},
		[]string{"mapping"},
	)

	// ReconcilerMergesTotal tracks merges by source
	ReconcilerMergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "merges_total",
			Help:      "Total number of pull snapshots and push notifications merged",
		},
		[]string{"source"},
	)

	// ReconcilerDroppedTotal tracks rows and events dropped by reason
	ReconcilerDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "dropped_total",
			Help:      "Total number of rows or events dropped by the reconciler",
		},
		[]string{"reason"},
	)

	// ReconcilerReconnectsTotal tracks push reconnect attempts
	ReconcilerReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "reconnects_total",
			Help:      "Total number of push channel connection attempts by status",
		},
		[]string{"status"},
	)

	// ReconcilerViewSize tracks the merged view length
	ReconcilerViewSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "view_rows",
			Help:      "Number of rows in the merged live view",
		},
	)

	// HTTPRequestsTotal tracks outbound HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"method", "status_code"},
	)

	// HTTPRequestDuration tracks outbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)
)

// RecordRead records an ingested read
func RecordRead(resolved bool) {
	outcome := "unresolved"
	if resolved {
		outcome = "resolved"
	}
	ReadsIngestedTotal.WithLabelValues(outcome).Inc()
}

// RecordPublish records a push publish attempt
func RecordPublish(sink string, err error, durationSeconds float64) {
	status := "success"
	if err != nil {
		status = "error"
	}
	NotificationsPublishedTotal.WithLabelValues(sink, status).Inc()
	PublishDuration.WithLabelValues(sink).Observe(durationSeconds)
}

// RecordHTTPRequest records an outbound HTTP request metric
func RecordHTTPRequest(method, statusCode string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordReconnect records a push connection attempt
func RecordReconnect(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ReconcilerReconnectsTotal.WithLabelValues(status).Inc()
}
