// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package sync

import (
	"sync"
	"time"
)

// EventType names a notification published on the Bus.
type EventType string

const (
	// EventFailure is raised for failures that reach the global error state.
	EventFailure EventType = "failure"

	// EventReset returns the error state to NORMAL and lifts suspension.
	EventReset EventType = "reset"

	// EventAbort is published when an in-flight request is cancelled.
	EventAbort EventType = "abort"

	// EventRecurrentActivity is published when a fetch driven by a recurrent
	// scheduler returned something other than notModified.
	EventRecurrentActivity EventType = "recurrent-activity"
)

// Failure is the payload of EventFailure.
type Failure struct {
	Critical   bool
	Warning    bool
	Method     Method
	URL        string
	Outcome    Outcome
	StatusCode int
	Err        error
}

// Event is a single notification. Only the fields relevant to Type are set.
type Event struct {
	Type EventType
	Time time.Time

	// Failure is set for EventFailure.
	Failure *Failure

	// Origin is the scheduler ID for EventRecurrentActivity.
	Origin string

	// RequestID, URL and Outcome describe the request behind abort and
	// recurrent-activity events.
	RequestID string
	URL       string
	Outcome   Outcome

	// Reason is set for EventReset.
	Reason string
}

// Handler receives published events.
type Handler func(Event)

// Subscription identifies a registered handler. The zero value is not a valid subscription.
type Subscription struct {
	id uint64
}

type subscriber struct {
	id      uint64
	event   EventType // empty matches every event
	handler Handler
}

// Bus is a synchronous publish/subscribe channel. Handlers run in the
// publisher's goroutine, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscriber
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler for one event type.
func (b *Bus) Subscribe(event EventType, handler Handler) Subscription {
	return b.add(event, handler)
}

// SubscribeAll registers handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) Subscription {
	return b.add("", handler)
}

func (b *Bus) add(event EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs = append(b.subs, subscriber{id: b.nextID, event: event, handler: handler})
	return Subscription{id: b.nextID}
}

// Unsubscribe removes a handler. Unknown or already removed subscriptions are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	if sub.id == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == sub.id {
			// Copy so snapshots taken by in-progress Publish calls stay intact
			next := make([]subscriber, 0, len(b.subs)-1)
			next = append(next, b.subs[:i]...)
			b.subs = append(next, b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers e to every matching handler registered at the time of the call.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.RLock()
	snapshot := b.subs
	b.mu.RUnlock()

	for _, s := range snapshot {
		if s.event == "" || s.event == e.Type {
			s.handler(e)
		}
	}
}

// Len returns the number of registered handlers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
