// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

/*
Package sync is the request-orchestration layer between the cloud console's
resource components and the remote HTTP API.

It keeps polling low-chatter and failure tolerant by combining a conditional-fetch
cache, adaptive per-resource schedulers, and a global error state that can suspend
all outgoing traffic after a critical failure until an explicit reset.

Key Components:

  - Context: owns every piece of shared state (bus, history, registry, error state).
    Construct one per API and inject it; nothing in this package is global.
  - Bus: synchronous publish/subscribe channel carrying failure, reset, abort and
    recurrent-activity events.
  - RequestHistory: last successful response time per (path, method), used to build
    the conditional-fetch parameter.
  - ErrorRegistry: append-only log of failed requests for error reports.
  - ErrorStateMachine: NORMAL / WARNING / ERROR plus the suspended flag.
  - Dispatcher: wraps every outgoing request, classifies its outcome and updates the
    shared state.
  - Scheduler: adaptive timer driving a callback, with goFaster/goSlower and
    cross-scheduler speed-up.

Outcome handling:

	success      record response time, reset timeout streak, Success callback
	notModified  record response time only (no Success/Error callback)
	abort        publish abort, nothing else
	timeout      conditional: clear history, Error callback only
	             skip-timeouts below threshold: absorbed, Error callback only
	             otherwise: registry + Error callback + failure event
	error        conditional: clear history, registry + Error callback
	             otherwise: registry + Error callback + failure event

Complete fires exactly once for every request that was dispatched. Requests
refused while suspended return ErrSuspended and fire no callbacks at all.

Usage Example:

	sc := sync.NewContext(cfg.Sync)
	d := sync.NewDispatcher(sc, sync.WithHTTPClient(sync.NewHTTPClient(cfg, tokens)),
	    sync.WithBaseURL(cfg.API.BaseURL))

	servers := &sync.PathResource{Name: "servers", Path: "/servers/detail", Incremental: true}

	sched, err := sync.NewScheduler(sc, sync.SchedulerConfigFrom("servers", cfg.Polling.Defaults),
	    func(ctx context.Context) {
	        _, _ = d.Execute(ctx, sync.MethodRead, servers, &sync.Options{
	            Success: func(r *sync.Response) { merge(r.Body) },
	        })
	    })
	sched.Start(true)
	defer sched.Close()

Thread Safety:

Every shared structure carries its own mutex. Bus handlers run in the publisher's
goroutine and may subscribe, unsubscribe or publish from inside a handler.
*/
package sync
