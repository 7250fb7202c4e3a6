// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Dispatcher Metrics
	SyncRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudsync_requests_total",
			Help: "Total number of dispatched requests by method and outcome",
		},
		[]string{"method", "outcome"}, // outcome: success, notModified, abort, timeout, error
	)

	SyncRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cloudsync_request_duration_seconds",
			Help:    "Duration of dispatched requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	SyncConditionalRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cloudsync_conditional_requests_total",
			Help: "Total number of reads sent with a conditional-fetch parameter",
		},
	)

	SyncRequestsVetoed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cloudsync_requests_vetoed_total",
			Help: "Total number of requests refused while the console was suspended",
		},
	)

	SyncNotificationsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudsync_notifications_suppressed_total",
			Help: "Total number of failures that did not reach the global error state",
		},
		[]string{"reason"}, // reason: conditional, timeout_absorbed, caller
	)

	// Error State Metrics
	SyncErrorState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cloudsync_error_state",
			Help: "Global error state (0=normal, 1=warning, 2=error)",
		},
	)

	SyncSuspended = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cloudsync_suspended",
			Help: "Whether the console is suspended (1) or accepting requests (0)",
		},
	)

	SyncStateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudsync_state_transitions_total",
			Help: "Total number of global error state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	SyncHistoryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cloudsync_history_entries",
			Help: "Current number of remembered successful fetches",
		},
	)

	SyncErrorRegistryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cloudsync_error_registry_entries",
			Help: "Current number of entries in the error registry",
		},
	)

	// Scheduler Metrics
	SchedulerInterval = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cloudsync_scheduler_interval_seconds",
			Help: "Current polling interval per scheduler",
		},
		[]string{"scheduler"},
	)

	SchedulerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudsync_scheduler_ticks_total",
			Help: "Total number of scheduler callback invocations",
		},
		[]string{"scheduler"},
	)

	SchedulerSpeedChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudsync_scheduler_speed_changes_total",
			Help: "Total number of interval changes per scheduler",
		},
		[]string{"scheduler", "direction"}, // direction: faster, slower
	)

	// Transport Metrics
	RateLimitWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cloudsync_rate_limit_wait_seconds",
			Help:    "Time requests spent waiting on the client-side rate limiter",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
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

	// Admin API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of admin API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of admin API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordDispatch records the outcome and duration of a dispatched request
func RecordDispatch(method, outcome string, duration time.Duration) {
	SyncRequestsTotal.WithLabelValues(method, outcome).Inc()
	SyncRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordVeto records a request refused by suspension
func RecordVeto() {
	SyncRequestsVetoed.Inc()
}

// RecordSuppressed records a failure kept away from the global error state
func RecordSuppressed(reason string) {
	SyncNotificationsSuppressed.WithLabelValues(reason).Inc()
}

// RecordStateTransition updates the error state gauges
func RecordStateTransition(from, to string, level int, suspended bool) {
	if from != to {
		SyncStateTransitions.WithLabelValues(from, to).Inc()
	}
	SyncErrorState.Set(float64(level))
	if suspended {
		SyncSuspended.Set(1)
	} else {
		SyncSuspended.Set(0)
	}
}

// RecordSchedulerTick records a scheduler callback invocation
func RecordSchedulerTick(scheduler string) {
	SchedulerTicks.WithLabelValues(scheduler).Inc()
}

// RecordSchedulerInterval records an interval change for a scheduler.
// direction is empty for the initial value.
func RecordSchedulerInterval(scheduler, direction string, interval time.Duration) {
	SchedulerInterval.WithLabelValues(scheduler).Set(interval.Seconds())
	if direction != "" {
		SchedulerSpeedChanges.WithLabelValues(scheduler, direction).Inc()
	}
}

// RecordAPIRequest records an admin API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
