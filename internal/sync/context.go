// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package sync

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/cloudsync/internal/config"
)

// Context owns all shared synchronization state for one remote API. Dispatchers
// and schedulers receive it explicitly, so independent contexts never interact.
type Context struct {
	cfg config.SyncConfig

	Bus     *Bus
	History *RequestHistory
	Errors  *ErrorRegistry
	States  *ErrorStateMachine

	clock Clock

	mu       sync.Mutex
	timeouts int

	schedMu    sync.RWMutex
	schedulers map[string]*Scheduler

	resetSub Subscription
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithClock replaces the wall clock used by dispatchers and schedulers.
func WithClock(c Clock) ContextOption {
	return func(sc *Context) {
		sc.clock = c
	}
}

// NewContext builds the shared state from configuration.
func NewContext(cfg config.SyncConfig, opts ...ContextOption) *Context {
	bus := NewBus()
	sc := &Context{
		cfg:        cfg,
		Bus:        bus,
		History:    NewRequestHistory(cfg.ConditionalParam),
		Errors:     NewErrorRegistry(cfg.ErrorHistorySize),
		States:     NewErrorStateMachine(bus),
		clock:      realClock{},
		schedulers: make(map[string]*Scheduler),
	}
	for _, opt := range opts {
		opt(sc)
	}
	sc.Errors.now = sc.clock.Now
	sc.States.since = sc.clock.Now()

	// Reset also discards the timeout streak
	sc.resetSub = bus.Subscribe(EventReset, func(Event) {
		sc.mu.Lock()
		sc.timeouts = 0
		sc.mu.Unlock()
	})
	return sc
}

// Config returns the settings the context was built with.
func (sc *Context) Config() config.SyncConfig {
	return sc.cfg
}

// Now returns the context clock's current time.
func (sc *Context) Now() time.Time {
	return sc.clock.Now()
}

// Reset publishes the reset event: state returns to NORMAL and calls resume.
// The error registry is kept.
func (sc *Context) Reset(reason string) {
	sc.Bus.Publish(Event{Type: EventReset, Time: sc.clock.Now(), Reason: reason})
}

// Close unsubscribes the context's own handlers and closes every registered scheduler.
func (sc *Context) Close() {
	for _, s := range sc.Schedulers() {
		s.Close()
	}
	sc.Bus.Unsubscribe(sc.resetSub)
	sc.States.Close()
}

// absorbTimeout reports whether a timeout should be kept local. Below threshold
// the streak grows; at the threshold it restarts from zero and the timeout escalates.
func (sc *Context) absorbTimeout(threshold int) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.timeouts < threshold {
		sc.timeouts++
		return true
	}
	sc.timeouts = 0
	return false
}

func (sc *Context) resetTimeouts() {
	sc.mu.Lock()
	sc.timeouts = 0
	sc.mu.Unlock()
}

// TimeoutStreak returns the number of consecutive absorbed timeouts.
func (sc *Context) TimeoutStreak() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.timeouts
}

func (sc *Context) registerScheduler(s *Scheduler) error {
	sc.schedMu.Lock()
	defer sc.schedMu.Unlock()

	if _, exists := sc.schedulers[s.id]; exists {
		return fmt.Errorf("%w: duplicate scheduler %q", ErrInvalidSchedulerConfig, s.id)
	}
	sc.schedulers[s.id] = s
	return nil
}

func (sc *Context) unregisterScheduler(id string) {
	sc.schedMu.Lock()
	delete(sc.schedulers, id)
	sc.schedMu.Unlock()
}

// Scheduler returns a registered scheduler by ID.
func (sc *Context) Scheduler(id string) (*Scheduler, bool) {
	sc.schedMu.RLock()
	defer sc.schedMu.RUnlock()
	s, ok := sc.schedulers[id]
	return s, ok
}

// Schedulers returns the registered schedulers sorted by ID.
func (sc *Context) Schedulers() []*Scheduler {
	sc.schedMu.RLock()
	out := make([]*Scheduler, 0, len(sc.schedulers))
	for _, s := range sc.schedulers {
		out = append(out, s)
	}
	sc.schedMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// ContextSnapshot is the admin view of a Context.
type ContextSnapshot struct {
	StateSnapshot
	TimeoutStreak  int              `json:"timeout_streak"`
	HistoryEntries int              `json:"history_entries"`
	ErrorEntries   int              `json:"error_entries"`
	Schedulers     []SchedulerStats `json:"schedulers"`
}

// Snapshot collects state, counters and scheduler stats.
func (sc *Context) Snapshot() ContextSnapshot {
	scheds := sc.Schedulers()
	stats := make([]SchedulerStats, 0, len(scheds))
	for _, s := range scheds {
		stats = append(stats, s.Stats())
	}

	return ContextSnapshot{
		StateSnapshot:  sc.States.Snapshot(),
		TimeoutStreak:  sc.TimeoutStreak(),
		HistoryEntries: sc.History.Len(),
		ErrorEntries:   sc.Errors.Len(),
		Schedulers:     stats,
	}
}
