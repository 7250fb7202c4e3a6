// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package sync

import (
	"testing"
)

func TestBusDeliveryOrder(t *testing.T) {
	t.Parallel()

	b := NewBus()
	var order []int
	b.Subscribe(EventReset, func(Event) { order = append(order, 1) })
	b.SubscribeAll(func(Event) { order = append(order, 2) })
	b.Subscribe(EventReset, func(Event) { order = append(order, 3) })
	b.Subscribe(EventAbort, func(Event) { order = append(order, 99) })

	b.Publish(Event{Type: EventReset})

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("handlers called %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
}

func TestBusPublishFillsTime(t *testing.T) {
	t.Parallel()

	b := NewBus()
	var got Event
	b.SubscribeAll(func(e Event) { got = e })

	b.Publish(Event{Type: EventAbort})
	if got.Time.IsZero() {
		t.Error("Publish should stamp events without a time")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	t.Parallel()

	b := NewBus()
	calls := 0
	sub := b.Subscribe(EventFailure, func(Event) { calls++ })

	b.Publish(Event{Type: EventFailure})
	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
	b.Unsubscribe(Subscription{})
	b.Publish(Event{Type: EventFailure})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestBusUnsubscribeDuringPublish(t *testing.T) {
	t.Parallel()

	b := NewBus()
	var second Subscription
	secondCalls := 0

	b.Subscribe(EventReset, func(Event) { b.Unsubscribe(second) })
	second = b.Subscribe(EventReset, func(Event) { secondCalls++ })

	// The snapshot taken by the first Publish still includes the second handler
	b.Publish(Event{Type: EventReset})
	b.Publish(Event{Type: EventReset})

	if secondCalls != 1 {
		t.Errorf("second handler calls = %d, want 1", secondCalls)
	}
}

func TestBusPublishFromHandler(t *testing.T) {
	t.Parallel()

	b := NewBus()
	aborts := 0
	b.Subscribe(EventReset, func(Event) { b.Publish(Event{Type: EventAbort}) })
	b.Subscribe(EventAbort, func(Event) { aborts++ })

	b.Publish(Event{Type: EventReset})
	if aborts != 1 {
		t.Errorf("aborts = %d, want 1", aborts)
	}
}
