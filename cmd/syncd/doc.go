// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

/*
Command syncd keeps a set of cloud console resources synchronized with a
remote API and exposes the synchronization state to operators.

# Process Layout

	RootSupervisor ("cloudsync")
	├── PollingSupervisor ("polling-layer")
	│   └── one scheduler per polling.resources entry
	├── MessagingSupervisor ("messaging-layer")
	│   └── websocket notification hub
	└── APISupervisor ("api-layer")
	    └── admin HTTP server (server.host:server.port)

Startup order:

 1. Configuration: koanf (defaults, YAML file, environment)
 2. Logging: zerolog
 3. Sync context: request history, error registry, error state machine
 4. HTTP client: auth, client-side rate limit, circuit breaker
 5. Dispatcher and one poll scheduler per resource
 6. Notification hub and admin API
 7. Supervisor tree until SIGINT or SIGTERM

# Configuration

The config file is found through CLOUDSYNC_CONFIG, ./cloudsync.yaml or
/etc/cloudsync/config.yaml. A minimal file:

	api:
	  base_url: https://cloud.example.com/api
	polling:
	  resources:
	    - name: servers
	      path: /servers
	      incremental: true

Environment variables such as CLOUDSYNC_API_TOKEN, SYNC_DEFAULT_TIMEOUT and
HTTP_PORT override the file.

# Operations

While the sync state is suspended after a critical failure, every poll is
vetoed. Reset with:

	curl -X POST -d '{"reason":"upstream fixed"}' http://127.0.0.1:8470/api/v1/sync/reset
*/
package main
