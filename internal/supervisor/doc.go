// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

/*
Package supervisor provides process supervision for CloudSync using suture v4.

The supervisor tree organizes long-running services into three layers:

	RootSupervisor ("cloudsync")
	├── PollingSupervisor ("polling-layer")
	│   └── SchedulerService per polled resource ("scheduler/<name>")
	├── MessagingSupervisor ("messaging-layer")
	│   └── NotificationService (websocket hub + event bus bridge)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService (admin API)

Each layer restarts its services independently, so a misbehaving scheduler
never takes down the admin API an operator needs to reset the sync state.

# Poll Supervisor

PollSupervisor owns the polling layer. Each configured resource gets a
sync.Scheduler whose callback issues a read through the dispatcher:

	ps, err := supervisor.NewPollSupervisor(tree, sc, dispatcher, cfg.Polling.Defaults)
	if err != nil {
	    return err
	}
	if err := ps.StartAll(cfg.Polling.Resources); err != nil {
	    logging.Warn().Err(err).Msg("Some resources could not be polled")
	}

Resources can be added and removed while the tree runs; removal waits for
the scheduler to stop and detaches it from the sync context.

# Logging

Supervisor events (service start, failure, backoff, restart) are reported
through sutureslog. Pass logging.NewSlogLogger() so they land in the same
zerolog stream as everything else:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

# Shutdown

Canceling the context passed to Serve stops every layer. Services that miss
TreeConfig.ShutdownTimeout are listed by UnstoppedServiceReport.
*/
package supervisor
