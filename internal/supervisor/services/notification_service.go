// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package services

import (
	"context"

	intsync "github.com/tomtom215/cloudsync/internal/sync"
)

// NotificationHub is the websocket hub as seen by the supervisor.
type NotificationHub interface {
	RunWithContext(ctx context.Context) error
	Attach(sc *intsync.Context) func()
}

// NotificationService runs the websocket hub and bridges the sync event bus
// into it for as long as the hub runs. A restart re-attaches, so no event
// subscription outlives a crashed hub loop.
type NotificationService struct {
	hub  NotificationHub
	sc   *intsync.Context
	name string
}

// NewNotificationService creates the service for hub and sc.
func NewNotificationService(hub NotificationHub, sc *intsync.Context) *NotificationService {
	return &NotificationService{
		hub:  hub,
		sc:   sc,
		name: "notification-hub",
	}
}

// Serve implements suture.Service.
func (n *NotificationService) Serve(ctx context.Context) error {
	detach := n.hub.Attach(n.sc)
	defer detach()

	return n.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture logging.
func (n *NotificationService) String() string {
	return n.name
}
