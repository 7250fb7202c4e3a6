// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package api

import (
	"net/http"

	"github.com/tomtom215/cloudsync/internal/logging"
)

// LogLevelRequest is the body of PUT /log/level.
type LogLevelRequest struct {
	Level string `json:"level" validate:"required,oneof=trace debug info warn warning error disabled"`
}

// LogLevelResponse reports the active log level.
type LogLevelResponse struct {
	Level    string `json:"level"`
	Previous string `json:"previous,omitempty"`
}

// HistoryClearResponse reports how many conditional-fetch timestamps were dropped.
type HistoryClearResponse struct {
	Cleared int `json:"cleared"`
}

// LogLevel returns the global log level.
func (h *Handler) LogLevel(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(LogLevelResponse{Level: logging.GetLevel().String()})
}

// SetLogLevel changes the global log level at runtime.
func (h *Handler) SetLogLevel(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req LogLevelRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	previous := logging.GetLevel().String()
	logging.SetLevelString(req.Level)
	current := logging.GetLevel().String()

	// Logged at warn so the change is visible at every level but error
	logging.Ctx(r.Context()).Warn().
		Str("previous", previous).
		Str("level", current).
		Msg("Log level changed by operator")

	rw.Success(LogLevelResponse{Level: current, Previous: previous})
}

// SyncHistoryClear drops every stored success timestamp, so the next read of
// each incremental resource is a full fetch.
func (h *Handler) SyncHistoryClear(w http.ResponseWriter, r *http.Request) {
	cleared := h.sc.History.Len()
	h.sc.History.Reset()

	logging.Ctx(r.Context()).Info().
		Int("cleared", cleared).
		Msg("Request history cleared by operator")

	NewResponseWriter(w, r).Success(HistoryClearResponse{Cleared: cleared})
}
