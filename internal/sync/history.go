// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package sync

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/cloudsync/internal/metrics"
)

// ConditionalTimeFormat is the wire format of the conditional-fetch parameter.
const ConditionalTimeFormat = "2006-01-02T15:04:05Z"

// cacheBusterParam is appended by some callers to defeat intermediary caches.
const cacheBusterParam = "_"

type historyKey struct {
	path   string
	method Method
}

// RequestHistory remembers the last successful response time per (path, method).
// It lives for the process only.
type RequestHistory struct {
	mu      sync.RWMutex
	entries map[historyKey]time.Time
	param   string
}

// NewRequestHistory creates an empty history. param is the conditional-fetch
// query parameter, stripped from URLs before they are used as keys.
func NewRequestHistory(param string) *RequestHistory {
	return &RequestHistory{
		entries: make(map[historyKey]time.Time),
		param:   param,
	}
}

// RecordSuccess stores when as the last successful response time for the key.
// The most recently completed request wins.
func (h *RequestHistory) RecordSuccess(rawURL string, method Method, when time.Time) {
	h.mu.Lock()
	h.entries[h.key(rawURL, method)] = when
	n := len(h.entries)
	h.mu.Unlock()

	metrics.SyncHistoryEntries.Set(float64(n))
}

// Clear forgets the key so the next fetch is unconditional.
func (h *RequestHistory) Clear(rawURL string, method Method) {
	h.mu.Lock()
	delete(h.entries, h.key(rawURL, method))
	n := len(h.entries)
	h.mu.Unlock()

	metrics.SyncHistoryEntries.Set(float64(n))
}

// Last returns the stored response time for the key.
func (h *RequestHistory) Last(rawURL string, method Method) (time.Time, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	t, ok := h.entries[h.key(rawURL, method)]
	return t, ok
}

// ConditionalParam returns the conditional-fetch value for the key: the stored
// time minus alignment, truncated to the second, in UTC. It reports false when
// nothing is stored.
func (h *RequestHistory) ConditionalParam(rawURL string, method Method, alignment time.Duration) (string, bool) {
	last, ok := h.Last(rawURL, method)
	if !ok {
		return "", false
	}
	return FormatConditional(last.Add(-alignment)), true
}

// Len returns the number of stored keys.
func (h *RequestHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Reset drops every entry.
func (h *RequestHistory) Reset() {
	h.mu.Lock()
	h.entries = make(map[historyKey]time.Time)
	h.mu.Unlock()

	metrics.SyncHistoryEntries.Set(0)
}

func (h *RequestHistory) key(rawURL string, method Method) historyKey {
	return historyKey{path: normalizePath(rawURL, h.param), method: method}
}

// FormatConditional renders t in the conditional-fetch wire format.
func FormatConditional(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(ConditionalTimeFormat)
}

// normalizePath reduces a URL to the part that identifies the resource:
// no scheme or host, no conditional or cache-buster parameters, sorted query,
// no trailing slash.
func normalizePath(rawURL, param string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.TrimSuffix(rawURL, "/")
	}

	path := strings.TrimSuffix(u.EscapedPath(), "/")

	q := u.Query()
	q.Del(param)
	q.Del(cacheBusterParam)
	if len(q) == 0 {
		return path
	}
	// Encode sorts by key
	return path + "?" + q.Encode()
}
