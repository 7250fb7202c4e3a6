// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Context keys for logging.
type contextKey string

const (
	// requestIDKey is the context key for dispatched request IDs.
	requestIDKey contextKey = "request_id"

	// schedulerKey is the context key for the scheduler that issued a request.
	schedulerKey contextKey = "scheduler"
)

// GenerateRequestID creates a new unique request ID.
func GenerateRequestID() string {
	return uuid.New().String()
}

// ContextWithRequestID returns a new context with the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithScheduler tags the context with the name of the scheduler driving it.
func ContextWithScheduler(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, schedulerKey, name)
}

// SchedulerFromContext retrieves the scheduler name from context.
func SchedulerFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(schedulerKey).(string); ok {
		return name
	}
	return ""
}

// Ctx returns a logger with context values (request_id, scheduler) added.
//
//	logging.Ctx(ctx).Info().Msg("Dispatching request")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := Logger().With()

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		logCtx = logCtx.Str("request_id", requestID)
	}
	if scheduler := SchedulerFromContext(ctx); scheduler != "" {
		logCtx = logCtx.Str("scheduler", scheduler)
	}

	l := logCtx.Logger()
	return &l
}

// WithComponent creates a child logger with a component field.
//
//	schedLogger := logging.WithComponent("scheduler")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
