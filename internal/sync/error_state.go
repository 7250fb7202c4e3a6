// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package sync

import (
	"sync"
	"time"

	"github.com/tomtom215/cloudsync/internal/logging"
	"github.com/tomtom215/cloudsync/internal/metrics"
)

// State is the global error state.
type State int

const (
	StateNormal State = iota
	StateWarning
	StateError
)

// String returns the state name used in logs, metrics and the admin API.
func (s State) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateWarning:
		return "WARNING"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FailureSummary is the JSON-friendly view of the last failure.
type FailureSummary struct {
	Critical   bool      `json:"critical"`
	Warning    bool      `json:"warning"`
	Method     Method    `json:"method"`
	URL        string    `json:"url"`
	Outcome    Outcome   `json:"outcome"`
	StatusCode int       `json:"status_code,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// StateSnapshot is a consistent view of the error state.
type StateSnapshot struct {
	State        State           `json:"state"`
	Suspended    bool            `json:"suspended"`
	Since        time.Time       `json:"since"`
	FailureCount int             `json:"failure_count"`
	LastFailure  *FailureSummary `json:"last_failure,omitempty"`
}

// ErrorStateMachine tracks the global error state. It changes only on
// failure and reset events and never resets itself.
type ErrorStateMachine struct {
	bus  *Bus
	subs []Subscription

	mu          sync.RWMutex
	state       State
	suspended   bool
	since       time.Time
	failures    int
	lastFailure *FailureSummary
}

// NewErrorStateMachine creates a machine in NORMAL and subscribes it to bus.
func NewErrorStateMachine(bus *Bus) *ErrorStateMachine {
	m := &ErrorStateMachine{
		bus:   bus,
		state: StateNormal,
		since: time.Now(),
	}
	m.subs = []Subscription{
		bus.Subscribe(EventFailure, m.onFailure),
		bus.Subscribe(EventReset, m.onReset),
	}
	metrics.RecordStateTransition(StateNormal.String(), StateNormal.String(), int(StateNormal), false)
	return m
}

// State returns the current state.
func (m *ErrorStateMachine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Suspended reports whether outgoing calls are vetoed.
func (m *ErrorStateMachine) Suspended() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.suspended
}

// Snapshot returns the state, suspension flag and accumulated failure context.
func (m *ErrorStateMachine) Snapshot() StateSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := StateSnapshot{
		State:        m.state,
		Suspended:    m.suspended,
		Since:        m.since,
		FailureCount: m.failures,
	}
	if m.lastFailure != nil {
		lf := *m.lastFailure
		snap.LastFailure = &lf
	}
	return snap
}

// Close unsubscribes the machine from the bus.
func (m *ErrorStateMachine) Close() {
	for _, s := range m.subs {
		m.bus.Unsubscribe(s)
	}
	m.subs = nil
}

func (m *ErrorStateMachine) onFailure(e Event) {
	if e.Failure == nil {
		return
	}
	f := e.Failure

	m.mu.Lock()
	from := m.state
	switch {
	case f.Warning && !f.Critical:
		// Warnings never downgrade ERROR
		if m.state == StateNormal {
			m.state = StateWarning
		}
	default:
		m.state = StateError
		if f.Critical {
			m.suspended = true
		}
	}
	if m.state != from {
		m.since = e.Time
	}
	m.failures++
	m.lastFailure = summarize(f, e.Time)
	to, suspended := m.state, m.suspended
	m.mu.Unlock()

	metrics.RecordStateTransition(from.String(), to.String(), int(to), suspended)

	ev := logging.Warn()
	if to == StateError {
		ev = logging.Error()
	}
	ev.Str("from", from.String()).
		Str("to", to.String()).
		Bool("critical", f.Critical).
		Bool("suspended", suspended).
		Str("url", f.URL).
		Str("outcome", string(f.Outcome)).
		Err(f.Err).
		Msg("Sync failure")
}

func (m *ErrorStateMachine) onReset(e Event) {
	m.mu.Lock()
	from := m.state
	m.state = StateNormal
	m.suspended = false
	m.failures = 0
	m.lastFailure = nil
	m.since = e.Time
	m.mu.Unlock()

	metrics.RecordStateTransition(from.String(), StateNormal.String(), int(StateNormal), false)
	logging.Info().Str("from", from.String()).Str("reason", e.Reason).Msg("Sync state reset")
}

func summarize(f *Failure, at time.Time) *FailureSummary {
	s := &FailureSummary{
		Critical:   f.Critical,
		Warning:    f.Warning,
		Method:     f.Method,
		URL:        f.URL,
		Outcome:    f.Outcome,
		StatusCode: f.StatusCode,
		At:         at,
	}
	if f.Err != nil {
		s.Error = f.Err.Error()
	}
	return s
}
