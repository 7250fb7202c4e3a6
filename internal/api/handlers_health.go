// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package api

import (
	"net/http"
	"time"
)

// HealthLive handles liveness probe requests. It returns 200 as long as the
// process can serve HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if r.Method != http.MethodGet {
		rw.MethodNotAllowed()
		return
	}

	rw.Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests. It returns 503 while the
// error state machine has dispatch suspended, since no request will reach
// the remote API until an operator resets.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if r.Method != http.MethodGet {
		rw.MethodNotAllowed()
		return
	}

	if h.sc == nil {
		rw.ServiceUnavailable("Sync context not initialized")
		return
	}

	state := h.sc.States.Snapshot()
	if state.Suspended {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"Dispatch suspended after a critical failure", state)
		return
	}

	rw.Success(map[string]interface{}{
		"ready": true,
		"state": state.State,
	})
}
