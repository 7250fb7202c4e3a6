// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

// Package logging provides centralized zerolog-based structured logging for CloudSync.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("scheduler", "servers").Msg("Scheduler started")
//	logging.Error().Err(err).Msg("Request failed")
//
//	// Context-aware logging (request_id, scheduler)
//	logging.Ctx(ctx).Debug().Msg("Dispatching")
//
// # Configuration
//
// Environment Variables (mapped through internal/config):
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - true, false (default: false)
//
// # Best Practices
//
// Always terminate log chains with .Msg() or .Send(), and prefer structured
// fields over formatted messages.
//
// # slog Integration
//
// SlogHandler lets slog consumers such as sutureslog write through zerolog:
//
//	hook := (&sutureslog.Handler{Logger: logging.NewSlogLogger()}).MustHook()
package logging
