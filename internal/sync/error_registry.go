// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package sync

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/cloudsync/internal/metrics"
)

// maxErrorBodySize limits the amount of response body kept per registry entry
const maxErrorBodySize = 64 * 1024 // 64KB

// RequestSettings describes the request behind an error entry.
type RequestSettings struct {
	Method      Method            `json:"method"`
	HTTPMethod  string            `json:"http_method"`
	Header      map[string]string `json:"header,omitempty"`
	Body        string            `json:"body,omitempty"`
	Conditional bool              `json:"conditional"`
	Critical    bool              `json:"critical"`
	Timeout     time.Duration     `json:"timeout_ns"`
}

// ResponseData is the raw response behind an error entry.
type ResponseData struct {
	Outcome    Outcome           `json:"outcome"`
	StatusCode int               `json:"status_code,omitempty"`
	Header     map[string]string `json:"header,omitempty"`
	Body       string            `json:"body,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// ErrorEntry is one failed request.
type ErrorEntry struct {
	ID        string          `json:"id"`
	URL       string          `json:"url"`
	Timestamp time.Time       `json:"timestamp"`
	Request   RequestSettings `json:"request"`
	Response  ResponseData    `json:"response"`
}

// ErrorReport is the document written by Export.
type ErrorReport struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Count       int          `json:"count"`
	Dropped     uint64       `json:"dropped"`
	Entries     []ErrorEntry `json:"entries"`
}

// ErrorRegistry is an append-only log of failed requests. With a capacity it
// keeps only the newest entries.
type ErrorRegistry struct {
	mu       sync.RWMutex
	entries  []ErrorEntry
	capacity int
	dropped  uint64
	now      func() time.Time
}

// NewErrorRegistry creates a registry. capacity <= 0 keeps every entry.
func NewErrorRegistry(capacity int) *ErrorRegistry {
	return &ErrorRegistry{capacity: capacity, now: time.Now}
}

// Append records an entry, assigning ID and Timestamp when they are empty.
func (r *ErrorRegistry) Append(e ErrorEntry) ErrorEntry {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = r.now()
	}

	r.mu.Lock()
	if r.capacity > 0 && len(r.entries) >= r.capacity {
		drop := len(r.entries) - r.capacity + 1
		r.entries = append(r.entries[:0:0], r.entries[drop:]...)
		r.dropped += uint64(drop)
	}
	r.entries = append(r.entries, e)
	n := len(r.entries)
	r.mu.Unlock()

	metrics.SyncErrorRegistryEntries.Set(float64(n))
	return e
}

// Entries returns a copy of the log, oldest first.
func (r *ErrorRegistry) Entries() []ErrorEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ErrorEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of retained entries.
func (r *ErrorRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Dropped returns how many entries were discarded to honour the capacity.
func (r *ErrorRegistry) Dropped() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dropped
}

// Report snapshots the registry.
func (r *ErrorRegistry) Report() ErrorReport {
	entries := r.Entries()
	return ErrorReport{
		GeneratedAt: r.now().UTC(),
		Count:       len(entries),
		Dropped:     r.Dropped(),
		Entries:     entries,
	}
}

// Export writes the report as indented JSON.
func (r *ErrorRegistry) Export(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.Report()); err != nil {
		return fmt.Errorf("export error report: %w", err)
	}
	return nil
}

// readBodyForError reads at most 64KB for the error registry.
// Uses io.LimitReader to prevent unbounded memory allocation.
func readBodyForError(r io.Reader) []byte {
	limitedReader := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// flattenHeader keeps the first value of each header, minus credentials.
func flattenHeader(h http.Header, redact ...string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	for _, k := range redact {
		if _, ok := out[http.CanonicalHeaderKey(k)]; ok {
			out[http.CanonicalHeaderKey(k)] = "[redacted]"
		}
	}
	return out
}
