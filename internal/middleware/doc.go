// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

/*
Package middleware provides HTTP middleware for the admin API.

Key Components:

  - RequestID: reuses or generates X-Request-ID and stores it in the logging context
  - PrometheusMetrics: request count and latency per chi route pattern

Both are plain func(http.Handler) http.Handler and plug into chi with r.Use:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

The metrics wrapper implements http.Hijacker so WebSocket upgrades work behind it.
*/
package middleware
