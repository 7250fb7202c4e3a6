// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package services

import "context"

// Poller is a scheduler that runs until its context ends.
type Poller interface {
	ID() string
	Serve(ctx context.Context) error
}

// SchedulerService names a poll scheduler for the supervisor tree.
type SchedulerService struct {
	poller Poller
}

// NewSchedulerService wraps p.
func NewSchedulerService(p Poller) *SchedulerService {
	return &SchedulerService{poller: p}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	return s.poller.Serve(ctx)
}

// String implements fmt.Stringer for suture logging.
func (s *SchedulerService) String() string {
	return "scheduler/" + s.poller.ID()
}
