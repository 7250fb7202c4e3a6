// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package sync

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// classify maps a finished request to exactly one outcome.
// cause is the cancellation cause of the request context (nil if it was not cancelled).
func classify(status int, err, cause error) Outcome {
	if err != nil {
		switch {
		case errors.Is(cause, ErrAborted), errors.Is(cause, context.Canceled):
			return OutcomeAbort
		case errors.Is(cause, errRequestTimeout), errors.Is(cause, context.DeadlineExceeded):
			return OutcomeTimeout
		case errors.Is(err, context.DeadlineExceeded):
			return OutcomeTimeout
		case errors.Is(err, context.Canceled):
			return OutcomeAbort
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return OutcomeTimeout
		}
		return OutcomeError
	}

	switch {
	case status == http.StatusNotModified:
		return OutcomeNotModified
	case status >= 200 && status < 300:
		return OutcomeSuccess
	default:
		return OutcomeError
	}
}
