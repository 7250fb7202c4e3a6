// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package sync

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
)

func failure(critical, warning bool) Event {
	return Event{Type: EventFailure, Failure: &Failure{
		Critical: critical,
		Warning:  warning,
		Method:   MethodRead,
		URL:      "/servers",
		Outcome:  OutcomeError,
		Err:      errors.New("boom"),
	}}
}

func TestErrorStateTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		events        []Event
		wantState     State
		wantSuspended bool
	}{
		{"initial", nil, StateNormal, false},
		{"critical failure", []Event{failure(true, false)}, StateError, true},
		{"non-critical failure", []Event{failure(false, false)}, StateError, false},
		{"warning", []Event{failure(false, true)}, StateWarning, false},
		{"critical warning escalates", []Event{failure(true, true)}, StateError, true},
		{"warning then error", []Event{failure(false, true), failure(false, false)}, StateError, false},
		{"warning never downgrades error", []Event{failure(false, false), failure(false, true)}, StateError, false},
		{"critical after non-critical suspends", []Event{failure(false, false), failure(true, false)}, StateError, true},
		{"non-critical keeps suspension", []Event{failure(true, false), failure(false, false)}, StateError, true},
		{"reset from error", []Event{failure(true, false), {Type: EventReset}}, StateNormal, false},
		{"reset from warning", []Event{failure(false, true), {Type: EventReset}}, StateNormal, false},
		{"reset in normal", []Event{{Type: EventReset}}, StateNormal, false},
		{"failure without payload ignored", []Event{{Type: EventFailure}}, StateNormal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bus := NewBus()
			m := NewErrorStateMachine(bus)
			defer m.Close()

			for _, e := range tt.events {
				bus.Publish(e)
			}

			if got := m.State(); got != tt.wantState {
				t.Errorf("State() = %v, want %v", got, tt.wantState)
			}
			if got := m.Suspended(); got != tt.wantSuspended {
				t.Errorf("Suspended() = %v, want %v", got, tt.wantSuspended)
			}
			if m.Suspended() && m.State() != StateError {
				t.Error("suspended outside ERROR")
			}
		})
	}
}

func TestErrorStateResetDiscardsFailures(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	m := NewErrorStateMachine(bus)
	defer m.Close()

	bus.Publish(failure(true, false))
	bus.Publish(failure(false, false))

	snap := m.Snapshot()
	if snap.FailureCount != 2 {
		t.Errorf("FailureCount = %d, want 2", snap.FailureCount)
	}
	if snap.LastFailure == nil || snap.LastFailure.Error != "boom" {
		t.Fatalf("LastFailure = %+v", snap.LastFailure)
	}

	bus.Publish(Event{Type: EventReset, Reason: "operator"})

	snap = m.Snapshot()
	if snap.FailureCount != 0 || snap.LastFailure != nil {
		t.Errorf("reset kept failure context: %+v", snap)
	}
}

func TestErrorStateIgnoresOtherEvents(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	m := NewErrorStateMachine(bus)
	defer m.Close()

	bus.Publish(failure(false, false))
	bus.Publish(Event{Type: EventAbort})
	bus.Publish(Event{Type: EventRecurrentActivity, Origin: "servers"})

	if m.State() != StateError {
		t.Errorf("State() = %v, want ERROR", m.State())
	}
}

func TestErrorStateClose(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	m := NewErrorStateMachine(bus)
	m.Close()

	bus.Publish(failure(true, false))
	if m.State() != StateNormal {
		t.Error("closed machine must not react to events")
	}
}

func TestStateJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(StateSnapshot{State: StateWarning})
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out["state"] != "WARNING" {
		t.Errorf("state = %v, want WARNING", out["state"])
	}
}
