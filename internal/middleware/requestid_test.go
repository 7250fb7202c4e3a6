// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/cloudsync/internal/logging"
)

func serveWithID(t *testing.T, incoming string) (headerID, contextID string) {
	t.Helper()

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contextID = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if incoming != "" {
		req.Header.Set(RequestIDHeader, incoming)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec.Header().Get(RequestIDHeader), contextID
}

func TestRequestIDGeneratesNewID(t *testing.T) {
	t.Parallel()

	headerID, contextID := serveWithID(t, "")

	if _, err := uuid.Parse(headerID); err != nil {
		t.Errorf("X-Request-ID %q is not a UUID: %v", headerID, err)
	}
	if contextID != headerID {
		t.Errorf("context ID %q != header ID %q", contextID, headerID)
	}
}

func TestRequestIDPreservesUpstreamID(t *testing.T) {
	t.Parallel()

	headerID, contextID := serveWithID(t, "proxy-1234.abc")
	if headerID != "proxy-1234.abc" || contextID != "proxy-1234.abc" {
		t.Errorf("header = %q context = %q, want upstream ID", headerID, contextID)
	}
}

func TestRequestIDRejectsMalformedID(t *testing.T) {
	t.Parallel()

	tests := []string{
		"has space",
		"line\nbreak",
		strings.Repeat("a", 129),
		"<script>",
	}

	for _, incoming := range tests {
		headerID, _ := serveWithID(t, incoming)
		if headerID == incoming {
			t.Errorf("malformed ID %q was accepted", incoming)
		}
		if _, err := uuid.Parse(headerID); err != nil {
			t.Errorf("replacement %q is not a UUID", headerID)
		}
	}
}
