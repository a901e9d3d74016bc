// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Snapshot Metrics
	SnapshotDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapshot_duration_seconds",
			Help:    "Duration of snapshot procedures in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200}, // Snapshots can run for hours
		},
		[]string{"target"},
	)

	SnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshots_total",
			Help: "Total number of snapshot attempts",
		},
		[]string{"target", "status"}, // status: "SUCCESS", "FAILURE"
	)

	SnapshotArtifactBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snapshot_artifact_bytes",
			Help: "Size of the most recent snapshot artifact per target",
		},
		[]string{"target"},
	)

	SnapshotLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snapshot_last_success_timestamp",
			Help: "Unix timestamp of the last successful snapshot per target",
		},
		[]string{"target"},
	)

	SnapshotsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshots_in_flight",
			Help: "Current number of snapshot procedures executing",
		},
	)

	// Cycle Metrics
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cycle_duration_seconds",
			Help:    "Duration of full backup cycles in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
		},
	)

	CyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cycles_total",
			Help: "Total number of completed backup cycles",
		},
	)

	CyclesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cycles_skipped_total",
			Help: "Total number of cycles skipped because the previous cycle was still running",
		},
	)

	CycleLastStart = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cycle_last_start_timestamp",
			Help: "Unix timestamp of the last cycle start",
		},
	)

	CycleLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cycle_last_success_timestamp",
			Help: "Unix timestamp of the last cycle in which every snapshot succeeded",
		},
	)

	SchedulerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_running",
			Help: "Whether a backup cycle is currently executing (1) or the scheduler is idle (0)",
		},
	)

	// Retention Metrics
	RetentionDeletes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_deleted_total",
			Help: "Total number of artifacts deleted by retention",
		},
		[]string{"target"},
	)

	RetentionDeleteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_delete_errors_total",
			Help: "Total number of artifact deletions that failed",
		},
		[]string{"target"},
	)

	RetentionReclaimedBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_reclaimed_bytes_total",
			Help: "Total bytes reclaimed by retention deletions",
		},
		[]string{"target"},
	)

	ArtifactCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "artifacts_stored",
			Help: "Current number of stored artifacts per target",
		},
		[]string{"target"},
	)

	// Sink Metrics
	SinkUploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sink_upload_duration_seconds",
			Help:    "Duration of artifact uploads to the sink in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800},
		},
		[]string{"sink"}, // "filesystem", "object"
	)

	SinkUploadedBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sink_uploaded_bytes_total",
			Help: "Total bytes uploaded to the sink",
		},
		[]string{"sink"},
	)

	SinkUploadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sink_upload_errors_total",
			Help: "Total number of failed sink uploads",
		},
		[]string{"sink"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Health and History Metrics
	CoordinatorHealthy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "coordinator_healthy",
			Help: "Whether the coordinator is healthy (1) or unhealthy (0)",
		},
	)

	HistoryWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "history_write_errors_total",
			Help: "Total number of failed snapshot history writes",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of failure notifications sent",
		},
		[]string{"result"}, // "success", "failure"
	)
)

// RecordSnapshot records the outcome of one snapshot attempt.
func RecordSnapshot(target, status string, duration time.Duration, sizeBytes int64) {
	SnapshotsTotal.WithLabelValues(target, status).Inc()
	SnapshotDuration.WithLabelValues(target).Observe(duration.Seconds())
	if status == "SUCCESS" {
		SnapshotArtifactBytes.WithLabelValues(target).Set(float64(sizeBytes))
		SnapshotLastSuccess.WithLabelValues(target).Set(float64(time.Now().Unix()))
	}
}

// TrackSnapshotInFlight tracks snapshot procedures currently executing.
func TrackSnapshotInFlight(inc bool) {
	if inc {
		SnapshotsInFlight.Inc()
	} else {
		SnapshotsInFlight.Dec()
	}
}

// RecordCycleStart marks the scheduler as running and stamps the cycle start.
func RecordCycleStart(startedAt time.Time) {
	SchedulerRunning.Set(1)
	CycleLastStart.Set(float64(startedAt.Unix()))
}

// RecordCycleEnd records a completed cycle. allSucceeded reports whether
// every snapshot in the cycle succeeded.
func RecordCycleEnd(duration time.Duration, allSucceeded bool) {
	SchedulerRunning.Set(0)
	CyclesTotal.Inc()
	CycleDuration.Observe(duration.Seconds())
	if allSucceeded {
		CycleLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordCycleSkipped records a cycle skipped due to overlap.
func RecordCycleSkipped() {
	CyclesSkipped.Inc()
}

// RecordRetentionDelete records one retention deletion attempt.
func RecordRetentionDelete(target string, sizeBytes int64, err error) {
	if err != nil {
		RetentionDeleteErrors.WithLabelValues(target).Inc()
		return
	}
	RetentionDeletes.WithLabelValues(target).Inc()
	RetentionReclaimedBytes.WithLabelValues(target).Add(float64(sizeBytes))
}

// SetArtifactCount updates the stored-artifact gauge for a target.
func SetArtifactCount(target string, count int) {
	ArtifactCount.WithLabelValues(target).Set(float64(count))
}

// RecordSinkUpload records one artifact upload attempt.
func RecordSinkUpload(sink string, sizeBytes int64, duration time.Duration, err error) {
	SinkUploadDuration.WithLabelValues(sink).Observe(duration.Seconds())
	if err != nil {
		SinkUploadErrors.WithLabelValues(sink).Inc()
		return
	}
	SinkUploadedBytes.WithLabelValues(sink).Add(float64(sizeBytes))
}

// SetCircuitBreakerState updates the breaker state gauge.
// State values follow gobreaker: 0=closed, 1=half-open, 2=open.
func SetCircuitBreakerState(name string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordBreakerTransition records a circuit breaker state change.
func RecordBreakerTransition(name, fromState, toState string) {
	CircuitBreakerTransitions.WithLabelValues(name, fromState, toState).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// SetHealthy updates the coordinator health gauge.
func SetHealthy(healthy bool) {
	if healthy {
		CoordinatorHealthy.Set(1)
	} else {
		CoordinatorHealthy.Set(0)
	}
}

// RecordHistoryWriteError records a failed history store write.
func RecordHistoryWriteError() {
	HistoryWriteErrors.Inc()
}

// RecordNotification records a notification delivery attempt.
func RecordNotification(err error) {
	if err != nil {
		NotificationsSent.WithLabelValues("failure").Inc()
		return
	}
	NotificationsSent.WithLabelValues("success").Inc()
}
