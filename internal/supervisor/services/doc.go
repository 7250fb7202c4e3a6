// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

/*
Package services provides suture.Service wrappers for CloudSync components.

Each wrapper implements the suture v4 service interface and fmt.Stringer so
the supervisor's event hook can name it in logs:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server (see NewAdminServer) with graceful shutdown
  - Converts the ListenAndServe pattern to Serve
  - Shutdown gets a fresh context bounded by server.shutdown_timeout

Notification Hub (NotificationService):
  - Runs the websocket hub loop
  - Attaches the hub to the sync event bus for the lifetime of the loop

Poll Scheduler (SchedulerService):
  - Names a sync.Scheduler "scheduler/<id>"
  - The scheduler starts on Serve and stops when the context ends

# Error Handling

Returning an error from Serve makes suture restart the service with backoff.
Returning ctx.Err() after cancellation is the normal shutdown path.
*/
package services
