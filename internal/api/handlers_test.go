// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cloudsync/internal/config"
	"github.com/tomtom215/cloudsync/internal/logging"
	intsync "github.com/tomtom215/cloudsync/internal/sync"
)

func init() {
	logging.SetLogger(logging.NewTestLogger(io.Discard))
}

// envelope mirrors APIResponse with a raw payload for typed decoding.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func newSyncContext(t *testing.T) *intsync.Context {
	t.Helper()
	sc := intsync.NewContext(config.SyncConfig{
		DefaultTimeout:   time.Second,
		ConditionalParam: "changes-since",
	})
	t.Cleanup(sc.Close)
	return sc
}

func newTestScheduler(t *testing.T, sc *intsync.Context, name string) *intsync.Scheduler {
	t.Helper()
	s, err := intsync.NewScheduler(sc, intsync.SchedulerConfig{
		Name:          name,
		Interval:      4 * time.Second,
		FastInterval:  time.Second,
		MaxInterval:   15 * time.Second,
		Increase:      500 * time.Millisecond,
		IncreaseAfter: 3,
	}, func(context.Context) {})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return s
}

// newTestRouter builds the full router with rate limiting disabled.
func newTestRouter(t *testing.T, sc *intsync.Context) http.Handler {
	t.Helper()
	mw := DefaultChiMiddlewareConfig()
	mw.RateLimitRequests = 0
	return NewRouter(NewHandler(sc, nil, &config.Config{}), mw).SetupChi()
}

func doRequest(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return env
}

func failCritical(sc *intsync.Context) {
	sc.Bus.Publish(intsync.Event{Type: intsync.EventFailure, Failure: &intsync.Failure{
		Critical: true,
		Method:   intsync.MethodRead,
		URL:      "/servers",
		Outcome:  intsync.OutcomeError,
	}})
}

func TestHealthLive(t *testing.T) {
	t.Parallel()

	handler := &Handler{startTime: time.Now().Add(-time.Hour)}

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusOK},
		{http.MethodPost, http.StatusMethodNotAllowed},
		{http.MethodDelete, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.HealthLive(w, httptest.NewRequest(tt.method, "/api/v1/health/live", nil))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}

	w := httptest.NewRecorder()
	handler.HealthLive(w, httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil))
	var data struct {
		Alive  bool    `json:"alive"`
		Uptime float64 `json:"uptime"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &data); err != nil {
		t.Fatal(err)
	}
	if !data.Alive || data.Uptime < 3600 {
		t.Errorf("data = %+v", data)
	}
}

func TestHealthReady(t *testing.T) {
	t.Parallel()

	sc := newSyncContext(t)
	router := newTestRouter(t, sc)

	if w := doRequest(router, http.MethodGet, "/api/v1/health/ready", ""); w.Code != http.StatusOK {
		t.Fatalf("ready before failure: status %d", w.Code)
	}

	failCritical(sc)
	w := doRequest(router, http.MethodGet, "/api/v1/health/ready", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready while suspended: status %d, want 503", w.Code)
	}
	if env := decodeEnvelope(t, w); env.Success || env.Error == nil || env.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("unexpected envelope: %s", w.Body.String())
	}

	sc.Reset("test")
	if w := doRequest(router, http.MethodGet, "/api/v1/health/ready", ""); w.Code != http.StatusOK {
		t.Errorf("ready after reset: status %d", w.Code)
	}
}

func TestHealthReady_NilContext(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	(&Handler{}).HealthReady(w, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestSyncState(t *testing.T) {
	t.Parallel()

	sc := newSyncContext(t)
	newTestScheduler(t, sc, "servers")
	failCritical(sc)

	w := doRequest(newTestRouter(t, sc), http.MethodGet, "/api/v1/sync/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	env := decodeEnvelope(t, w)
	if !env.Success || env.Meta == nil || env.Meta.RequestID == "" {
		t.Fatalf("unexpected envelope: %s", w.Body.String())
	}

	var snap struct {
		State      string `json:"state"`
		Suspended  bool   `json:"suspended"`
		Schedulers []struct {
			ID string `json:"id"`
		} `json:"schedulers"`
	}
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.State != "ERROR" || !snap.Suspended {
		t.Errorf("state = %q suspended = %v, want ERROR/true", snap.State, snap.Suspended)
	}
	if len(snap.Schedulers) != 1 || snap.Schedulers[0].ID != "servers" {
		t.Errorf("schedulers = %+v", snap.Schedulers)
	}
}

func TestSyncReset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
		wantNormal bool
	}{
		{"no body", "", http.StatusOK, "", true},
		{"with reason", `{"reason":"upstream fixed"}`, http.StatusOK, "", true},
		{"malformed", `not json`, http.StatusBadRequest, ErrCodeBadRequest, false},
		{"reason too long", `{"reason":"` + strings.Repeat("x", 300) + `"}`, http.StatusBadRequest, ErrCodeValidationFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sc := newSyncContext(t)
			failCritical(sc)

			var resets int
			sc.Bus.Subscribe(intsync.EventReset, func(intsync.Event) { resets++ })

			w := doRequest(newTestRouter(t, sc), http.MethodPost, "/api/v1/sync/reset", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantCode != "" {
				if env := decodeEnvelope(t, w); env.Error == nil || env.Error.Code != tt.wantCode {
					t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
				}
			}

			if got := sc.States.State() == intsync.StateNormal; got != tt.wantNormal {
				t.Errorf("state = %v, want normal=%v", sc.States.State(), tt.wantNormal)
			}
			if got := sc.States.Suspended(); got == tt.wantNormal {
				t.Errorf("suspended = %v after reset=%v", got, tt.wantNormal)
			}
			if wantResets := map[bool]int{true: 1, false: 0}[tt.wantNormal]; resets != wantResets {
				t.Errorf("reset events = %d, want %d", resets, wantResets)
			}
		})
	}
}

func TestSyncReset_GetNotAllowed(t *testing.T) {
	t.Parallel()

	w := doRequest(newTestRouter(t, newSyncContext(t)), http.MethodGet, "/api/v1/sync/reset", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestSyncErrors(t *testing.T) {
	t.Parallel()

	sc := newSyncContext(t)
	sc.Errors.Append(intsync.ErrorEntry{URL: "https://cloud.example.com/api/servers"})
	sc.Errors.Append(intsync.ErrorEntry{URL: "https://cloud.example.com/api/networks"})
	router := newTestRouter(t, sc)

	t.Run("json", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/sync/errors", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var report intsync.ErrorReport
		if err := json.Unmarshal(decodeEnvelope(t, w).Data, &report); err != nil {
			t.Fatal(err)
		}
		if report.Count != 2 || len(report.Entries) != 2 {
			t.Errorf("report count = %d entries = %d, want 2", report.Count, len(report.Entries))
		}
		if report.Entries[0].URL != "https://cloud.example.com/api/servers" {
			t.Errorf("first entry URL = %q", report.Entries[0].URL)
		}
	})

	t.Run("download", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/sync/errors?download=true", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		cd := w.Header().Get("Content-Disposition")
		if !strings.HasPrefix(cd, `attachment; filename="sync-errors-`) {
			t.Errorf("Content-Disposition = %q", cd)
		}
		var report intsync.ErrorReport
		if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
			t.Fatalf("download is not a bare report: %v", err)
		}
		if report.Count != 2 {
			t.Errorf("count = %d, want 2", report.Count)
		}
	})
}

func TestSyncSchedulers(t *testing.T) {
	t.Parallel()

	sc := newSyncContext(t)
	newTestScheduler(t, sc, "servers")
	newTestScheduler(t, sc, "networks")
	router := newTestRouter(t, sc)

	w := doRequest(router, http.MethodGet, "/api/v1/sync/schedulers", "")
	var list []intsync.SchedulerStats
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "networks" || list[1].ID != "servers" {
		t.Errorf("schedulers = %+v, want networks, servers", list)
	}

	w = doRequest(router, http.MethodGet, "/api/v1/sync/schedulers/servers", "")
	var one intsync.SchedulerStats
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &one); err != nil {
		t.Fatal(err)
	}
	if one.ID != "servers" || one.Interval != 4*time.Second {
		t.Errorf("scheduler = %+v", one)
	}

	if w := doRequest(router, http.MethodGet, "/api/v1/sync/schedulers/volumes", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown scheduler: status %d, want 404", w.Code)
	}
}

func TestSyncSchedulerAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		path         string
		wantStatus   int
		wantInterval time.Duration
		wantRunning  bool
	}{
		{"faster", "/api/v1/sync/schedulers/servers/faster", http.StatusOK, time.Second, false},
		{"slower", "/api/v1/sync/schedulers/servers/slower", http.StatusOK, 4500 * time.Millisecond, false},
		{"start", "/api/v1/sync/schedulers/servers/start", http.StatusOK, 4 * time.Second, true},
		{"stop", "/api/v1/sync/schedulers/servers/stop", http.StatusOK, 4 * time.Second, false},
		{"unknown action", "/api/v1/sync/schedulers/servers/explode", http.StatusBadRequest, 4 * time.Second, false},
		{"unknown scheduler", "/api/v1/sync/schedulers/volumes/faster", http.StatusNotFound, 4 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sc := newSyncContext(t)
			s := newTestScheduler(t, sc, "servers")

			w := doRequest(newTestRouter(t, sc), http.MethodPost, tt.path, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if got := s.Interval(); got != tt.wantInterval {
				t.Errorf("interval = %v, want %v", got, tt.wantInterval)
			}
			if got := s.Running(); got != tt.wantRunning {
				t.Errorf("running = %v, want %v", got, tt.wantRunning)
			}
		})
	}
}

func TestSyncSchedulerAction_CallNow(t *testing.T) {
	t.Parallel()

	sc := newSyncContext(t)
	calls := make(chan struct{}, 1)
	_, err := intsync.NewScheduler(sc, intsync.SchedulerConfig{
		Name:          "servers",
		Interval:      4 * time.Second,
		FastInterval:  time.Second,
		MaxInterval:   15 * time.Second,
		IncreaseAfter: 3,
	}, func(context.Context) { calls <- struct{}{} })
	if err != nil {
		t.Fatal(err)
	}

	w := doRequest(newTestRouter(t, sc), http.MethodPost, "/api/v1/sync/schedulers/servers/faster?call_now=true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	select {
	case <-calls:
	default:
		t.Error("callback not invoked with call_now=true")
	}
}

func TestWebSocket_NoHub(t *testing.T) {
	t.Parallel()

	w := doRequest(newTestRouter(t, newSyncContext(t)), http.MethodGet, "/api/v1/ws", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	t.Parallel()

	h := &Handler{config: &config.Config{Server: config.ServerConfig{
		AllowedOrigins: []string{"https://console.example.com"},
	}}}

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"missing", "", false},
		{"same host", "http://admin.local:8470", true},
		{"allowed", "https://console.example.com", true},
		{"foreign", "https://evil.example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://admin.local:8470/api/v1/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := h.checkWebSocketOrigin(req); got != tt.want {
				t.Errorf("checkWebSocketOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()

	if got := sanitizeLogValue("a\nb\x7fc"); got != `a\x0ab\x7fc` {
		t.Errorf("sanitizeLogValue = %q", got)
	}
}
