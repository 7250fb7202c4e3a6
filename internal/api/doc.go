// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

/*
Package api provides the admin HTTP surface for a running synchronization core.

The router is built on Chi and exposes the operator view of one sync.Context:

	GET  /api/v1/health/live                     liveness probe
	GET  /api/v1/health/ready                    503 while dispatch is suspended
	GET  /api/v1/sync/state                      error state, counters, schedulers
	POST /api/v1/sync/reset                      operator reset ({"reason": "..."})
	GET  /api/v1/sync/errors                     error report (?download=true for a file)
	DELETE /api/v1/sync/history                  drop conditional-fetch timestamps (next reads are full)
	GET  /api/v1/sync/schedulers                 scheduler stats
	GET  /api/v1/sync/schedulers/{id}            one scheduler
	POST /api/v1/sync/schedulers/{id}/{action}   start, stop, faster, slower (?call_now=true)
	GET  /api/v1/log/level                       current log level
	PUT  /api/v1/log/level                       change log level ({"level": "debug"})
	GET  /api/v1/ws                              websocket notifications
	GET  /metrics                                Prometheus exposition

# Response Format

JSON endpoints share one envelope:

	{
	  "success": true,
	  "data": {...},
	  "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 1}
	}

Errors set success to false and carry an error object with a machine-readable
code (BAD_REQUEST, NOT_FOUND, VALIDATION_ERROR, ...).

# Middleware

Every route runs behind request ID propagation, real IP extraction and panic
recovery, plus CORS from server.allowed_origins. The /api/v1 group adds
per-IP rate limiting (go-chi/httprate), security headers and Prometheus
request metrics.

The server does not authenticate callers and binds to 127.0.0.1 by default.
*/
package api
