// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/cloudsync/internal/logging"
)

// defaultResetReason is recorded when the operator omits a reason.
const defaultResetReason = "operator reset"

// ResetRequest is the optional body of POST /sync/reset.
type ResetRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=256"`
}

// SchedulerActionRequest names a scheduler control action.
type SchedulerActionRequest struct {
	ID      string `validate:"required,max=128"`
	Action  string `validate:"required,oneof=start stop faster slower"`
	CallNow bool
}

// SyncState returns the error state, counters and scheduler stats.
func (h *Handler) SyncState(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.sc.Snapshot())
}

// SyncReset is the human reset action: it publishes the reset event, which
// returns the error state to NORMAL and lifts suspension.
func (h *Handler) SyncReset(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req ResetRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = defaultResetReason
	}

	before := h.sc.States.State()
	h.sc.Reset(reason)

	logging.Ctx(r.Context()).Info().
		Str("reason", sanitizeLogValue(reason)).
		Str("previous_state", before.String()).
		Msg("Sync state reset by operator")

	rw.Success(h.sc.Snapshot())
}

// SyncErrors returns the error report. With ?download=true the indented
// report is sent as a file attachment.
func (h *Handler) SyncErrors(w http.ResponseWriter, r *http.Request) {
	if !getBoolParam(r, "download", false) {
		NewResponseWriter(w, r).Success(h.sc.Errors.Report())
		return
	}

	filename := fmt.Sprintf("sync-errors-%s.json", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if err := h.sc.Errors.Export(w); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to export error report")
	}
}

// SyncSchedulers lists every registered scheduler.
func (h *Handler) SyncSchedulers(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.sc.Snapshot().Schedulers)
}

// SyncScheduler returns one scheduler by ID.
func (h *Handler) SyncScheduler(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id := chi.URLParam(r, "id")
	s, ok := h.sc.Scheduler(id)
	if !ok {
		rw.NotFound("Scheduler not found")
		return
	}
	rw.Success(s.Stats())
}

// SyncSchedulerAction starts, stops, speeds up or slows down a scheduler.
// ?call_now=true makes faster/slower invoke the callback immediately.
func (h *Handler) SyncSchedulerAction(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := SchedulerActionRequest{
		ID:      chi.URLParam(r, "id"),
		Action:  chi.URLParam(r, "action"),
		CallNow: getBoolParam(r, "call_now", false),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	s, ok := h.sc.Scheduler(req.ID)
	if !ok {
		rw.NotFound("Scheduler not found")
		return
	}

	switch req.Action {
	case "start":
		s.Start(req.CallNow)
	case "stop":
		s.Stop()
	case "faster":
		s.GoFaster(req.CallNow)
	case "slower":
		s.GoSlower(req.CallNow)
	}

	logging.Ctx(r.Context()).Info().
		Str("scheduler", sanitizeLogValue(req.ID)).
		Str("action", req.Action).
		Bool("call_now", req.CallNow).
		Msg("Scheduler action applied")

	rw.Success(s.Stats())
}
