// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry through promauto and are
exposed by the admin API at /metrics:

	curl http://localhost:8470/metrics

# Available Metrics

Dispatcher:
  - cloudsync_requests_total: Dispatched requests (counter)
    Labels: method, outcome
  - cloudsync_request_duration_seconds: Request latency (histogram)
    Labels: method
  - cloudsync_conditional_requests_total: Reads carrying the conditional-fetch parameter
  - cloudsync_requests_vetoed_total: Requests refused while suspended
  - cloudsync_notifications_suppressed_total: Failures kept out of the global state
    Labels: reason (conditional, timeout_absorbed, caller)

Error state:
  - cloudsync_error_state: 0=normal, 1=warning, 2=error (gauge)
  - cloudsync_suspended: 1 while suspended (gauge)
  - cloudsync_state_transitions_total: Labels: from_state, to_state
  - cloudsync_history_entries, cloudsync_error_registry_entries (gauges)

Schedulers:
  - cloudsync_scheduler_interval_seconds: Labels: scheduler
  - cloudsync_scheduler_ticks_total: Labels: scheduler
  - cloudsync_scheduler_speed_changes_total: Labels: scheduler, direction

Transport:
  - cloudsync_rate_limit_wait_seconds (histogram)
  - circuit_breaker_state, circuit_breaker_requests_total,
    circuit_breaker_consecutive_failures, circuit_breaker_state_transitions_total

Admin API and WebSocket:
  - api_requests_total, api_request_duration_seconds
  - websocket_connections, websocket_messages_sent_total,
    websocket_messages_received_total, websocket_errors_total

# Example PromQL

	# Share of polls answered with 304
	sum(rate(cloudsync_requests_total{outcome="notModified"}[5m]))
	  / sum(rate(cloudsync_requests_total{method="read"}[5m]))

	# Alert when the console suspends
	cloudsync_suspended == 1
*/
package metrics
