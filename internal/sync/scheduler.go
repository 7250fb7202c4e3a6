// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/cloudsync/internal/config"
	"github.com/tomtom215/cloudsync/internal/logging"
	"github.com/tomtom215/cloudsync/internal/metrics"
)

// Callback is invoked on every scheduler tick. Its context carries the
// scheduler ID; recurrent schedulers also mark it so the dispatcher can
// announce activity to the other recurrent schedulers.
type Callback func(ctx context.Context)

// SchedulerConfig holds the adaptive polling parameters.
type SchedulerConfig struct {
	// Name identifies the scheduler. A random ID is used when empty.
	Name string

	Interval     time.Duration
	FastInterval time.Duration
	MaxInterval  time.Duration
	Increase     time.Duration

	// IncreaseAfter is the number of ticks after which the interval grows by
	// Increase. 0 pins the interval at its initial value.
	IncreaseAfter int

	CallOnStart bool
	Recurrent   bool
}

// SchedulerConfigFrom converts the millisecond configuration units.
func SchedulerConfigFrom(name string, p config.PollConfig) SchedulerConfig {
	return SchedulerConfig{
		Name:          name,
		Interval:      time.Duration(p.IntervalMS) * time.Millisecond,
		FastInterval:  time.Duration(p.FastIntervalMS) * time.Millisecond,
		MaxInterval:   time.Duration(p.MaxIntervalMS) * time.Millisecond,
		Increase:      time.Duration(p.IncreaseMS) * time.Millisecond,
		IncreaseAfter: p.IncreaseAfterNTicks,
		CallOnStart:   p.CallOnStart,
		Recurrent:     p.IsRecurrent,
	}
}

func (c SchedulerConfig) validate() error {
	switch {
	case c.FastInterval <= 0:
		return fmt.Errorf("%w: fast interval must be positive", ErrInvalidSchedulerConfig)
	case c.MaxInterval < c.FastInterval:
		return fmt.Errorf("%w: max interval %v below fast interval %v", ErrInvalidSchedulerConfig, c.MaxInterval, c.FastInterval)
	case c.Interval < c.FastInterval || c.Interval > c.MaxInterval:
		return fmt.Errorf("%w: interval %v outside [%v, %v]", ErrInvalidSchedulerConfig, c.Interval, c.FastInterval, c.MaxInterval)
	case c.Increase < 0 || c.IncreaseAfter < 0:
		return fmt.Errorf("%w: negative increase", ErrInvalidSchedulerConfig)
	}
	return nil
}

// SchedulerStats is the admin view of a scheduler.
type SchedulerStats struct {
	ID             string        `json:"id"`
	Running        bool          `json:"running"`
	Recurrent      bool          `json:"recurrent"`
	Pinned         bool          `json:"pinned"`
	Interval       time.Duration `json:"interval_ns"`
	FastInterval   time.Duration `json:"fast_interval_ns"`
	MaxInterval    time.Duration `json:"max_interval_ns"`
	Ticks          int           `json:"ticks_since_change"`
	Invocations    uint64        `json:"invocations"`
	LastInvocation *time.Time    `json:"last_invocation,omitempty"`
	NextTick       *time.Time    `json:"next_tick,omitempty"`
}

// Scheduler repeatedly invokes a callback at an adaptive interval. It owns
// its timer: Start arms it, Stop and Close release it.
type Scheduler struct {
	sc    *Context
	cfg   SchedulerConfig
	fn    Callback
	clock Clock
	id    string

	mu             sync.Mutex
	interval       time.Duration
	ticks          int
	running        bool
	closed         bool
	timer          Timer
	gen            uint64
	nextAt         time.Time
	lastInvocation time.Time
	invocations    uint64
	baseCtx        context.Context

	sub Subscription
}

// NewScheduler validates cfg and registers the scheduler with sc.
// Recurrent schedulers subscribe to recurrent-activity immediately.
func NewScheduler(sc *Context, cfg SchedulerConfig, fn Callback) (*Scheduler, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil callback", ErrInvalidSchedulerConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	id := cfg.Name
	if id == "" {
		id = uuid.New().String()
	}

	s := &Scheduler{
		sc:       sc,
		cfg:      cfg,
		fn:       fn,
		clock:    sc.clock,
		id:       id,
		interval: cfg.Interval,
		baseCtx:  context.Background(),
	}

	if err := sc.registerScheduler(s); err != nil {
		return nil, err
	}

	if cfg.Recurrent {
		s.sub = sc.Bus.Subscribe(EventRecurrentActivity, s.onRecurrentActivity)
	}

	metrics.RecordSchedulerInterval(id, "", s.interval)
	return s, nil
}

// ID returns the scheduler name.
func (s *Scheduler) ID() string { return s.id }

// Start begins polling; a running scheduler is restarted. When the scheduler
// has run before, it calls immediately only if at least half the interval
// passed since the last invocation and otherwise waits out the remainder, so
// a quick stop/start never double-fires. A fresh scheduler follows callOnStart.
func (s *Scheduler) Start(callOnStart bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.running {
		s.stopLocked()
	}
	s.running = true

	callNow := callOnStart
	delay := s.interval
	if !s.lastInvocation.IsZero() {
		elapsed := s.clock.Now().Sub(s.lastInvocation)
		callNow = elapsed >= s.interval/2
		if !callNow {
			delay = s.interval - elapsed
		}
	}
	s.armLocked(delay)
	s.mu.Unlock()

	logging.Debug().Str("scheduler", s.id).Dur("interval", s.interval).Bool("call_now", callNow).Msg("Scheduler started")

	if callNow {
		s.invoke()
	}
}

// Stop cancels the timer. The interval and last invocation time are kept.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	wasRunning := s.running
	s.stopLocked()
	s.mu.Unlock()

	if wasRunning {
		logging.Debug().Str("scheduler", s.id).Msg("Scheduler stopped")
	}
}

// Close stops the scheduler for good and detaches it from the context.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stopLocked()
	s.closed = true
	s.mu.Unlock()

	s.sc.Bus.Unsubscribe(s.sub)
	s.sc.unregisterScheduler(s.id)
}

// Serve implements suture.Service: it starts the scheduler with the configured
// callOnStart, hands ctx to the callbacks and stops when ctx is done.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.Start(s.cfg.CallOnStart)
	<-ctx.Done()
	s.Stop()

	return ctx.Err()
}

// GoFaster drops the interval to the fast interval. The next tick moves
// closer if it was further away than the fast interval.
func (s *Scheduler) GoFaster(callNow bool) {
	s.mu.Lock()
	changed := false
	if s.cfg.IncreaseAfter > 0 && s.interval != s.cfg.FastInterval {
		s.interval = s.cfg.FastInterval
		changed = true
	}
	if s.cfg.IncreaseAfter > 0 {
		s.ticks = 0
	}
	if s.running && !callNow && s.nextAt.Sub(s.clock.Now()) > s.interval {
		s.armLocked(s.interval)
	}
	if s.running && callNow {
		s.armLocked(s.interval)
	}
	interval := s.interval
	s.mu.Unlock()

	if changed {
		metrics.RecordSchedulerInterval(s.id, "faster", interval)
		logging.Debug().Str("scheduler", s.id).Dur("interval", interval).Msg("Scheduler sped up")
	}
	if callNow {
		s.invoke()
	}
}

// GoSlower grows the interval by the increase step, capped at the max interval.
func (s *Scheduler) GoSlower(callNow bool) {
	s.mu.Lock()
	changed := s.slowerLocked()
	if s.running {
		s.armLocked(s.interval)
	}
	interval := s.interval
	s.mu.Unlock()

	if changed {
		metrics.RecordSchedulerInterval(s.id, "slower", interval)
	}
	if callNow {
		s.invoke()
	}
}

// Stats returns the scheduler's current state.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SchedulerStats{
		ID:           s.id,
		Running:      s.running,
		Recurrent:    s.cfg.Recurrent,
		Pinned:       s.cfg.IncreaseAfter == 0,
		Interval:     s.interval,
		FastInterval: s.cfg.FastInterval,
		MaxInterval:  s.cfg.MaxInterval,
		Ticks:        s.ticks,
		Invocations:  s.invocations,
	}
	if !s.lastInvocation.IsZero() {
		last := s.lastInvocation
		st.LastInvocation = &last
	}
	if s.running {
		next := s.nextAt
		st.NextTick = &next
	}
	return st
}

// Interval returns the current interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Running reports whether the timer is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// tick is one timer expiry: decay the interval if due, re-arm, then invoke.
func (s *Scheduler) tick(gen uint64) {
	s.mu.Lock()
	if !s.running || gen != s.gen {
		s.mu.Unlock()
		return
	}

	s.ticks++
	slowed := false
	if s.cfg.IncreaseAfter > 0 && s.ticks >= s.cfg.IncreaseAfter {
		slowed = s.slowerLocked()
	}
	s.armLocked(s.interval)
	interval := s.interval
	s.mu.Unlock()

	if slowed {
		metrics.RecordSchedulerInterval(s.id, "slower", interval)
	}
	s.invoke()
}

// slowerLocked applies one decay step and restarts the tick count.
func (s *Scheduler) slowerLocked() bool {
	if s.cfg.IncreaseAfter == 0 {
		return false
	}
	s.ticks = 0

	next := s.interval + s.cfg.Increase
	if next > s.cfg.MaxInterval {
		next = s.cfg.MaxInterval
	}
	if next < s.cfg.FastInterval {
		next = s.cfg.FastInterval
	}
	changed := next != s.interval
	s.interval = next
	return changed
}

// armLocked replaces the pending timer; fires from older generations are ignored.
func (s *Scheduler) armLocked(delay time.Duration) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.nextAt = s.clock.Now().Add(delay)
	s.timer = s.clock.AfterFunc(delay, func() { s.tick(gen) })
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.running = false
}

func (s *Scheduler) invoke() {
	s.mu.Lock()
	s.lastInvocation = s.clock.Now()
	s.invocations++
	ctx := logging.ContextWithScheduler(s.baseCtx, s.id)
	if s.cfg.Recurrent {
		ctx = withOrigin(ctx, s.id)
	}
	s.mu.Unlock()

	metrics.RecordSchedulerTick(s.id)
	s.fn(ctx)
}

func (s *Scheduler) onRecurrentActivity(e Event) {
	if e.Origin == s.id {
		return
	}
	s.GoFaster(false)
}

type originKey struct{}

// withOrigin marks ctx as driven by the recurrent scheduler id.
func withOrigin(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, originKey{}, id)
}

func originFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(originKey{}).(string); ok {
		return id
	}
	return ""
}
