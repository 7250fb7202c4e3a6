// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

/*
Package websocket pushes synchronization notifications to connected console clients.

The hub subscribes to a sync Context's bus and relays every event (failure,
reset, abort, recurrent-activity) as a JSON message, so a UI can show the
global error banner and its reset button without polling the admin API.

Key Components:

  - Hub: manages client connections and broadcasts messages
  - Client: one WebSocket connection with read and write goroutines
  - Message: typed envelope {"type": ..., "data": ...}

Message Types:

  - sync_failure: a failure reached the global error state
  - sync_reset: the error state was reset
  - sync_abort: an in-flight request was aborted
  - recurrent_activity: a recurrent scheduler fetched new data
  - sync_state: state snapshot sent after every failure and reset
  - ping / pong: application-level keepalive

Usage Example:

	hub := websocket.NewHub()
	detach := hub.Attach(sc)
	defer detach()

	// Run under the supervisor
	sup.Add(hub)

	// In the HTTP handler after upgrading
	hub.ServeConn(conn)

Each client has a buffered send channel. A client that cannot keep up is
disconnected instead of blocking the broadcast.
*/
package websocket
