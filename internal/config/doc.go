// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

/*
Package config provides configuration management for CloudSync.

Configuration is loaded with Koanf v2 from three layers (highest priority wins):

 1. Environment variables (explicitly mapped, unknown variables are ignored)
 2. YAML config file (CLOUDSYNC_CONFIG, ./cloudsync.yaml, /etc/cloudsync/config.yaml)
 3. Built-in defaults

# Sections

API (APIConfig):
  - CLOUDSYNC_API_URL: Base URL of the cloud API (required)
  - CLOUDSYNC_API_AUTH_HEADER: Header carrying the token (default: X-Auth-Token)
  - CLOUDSYNC_API_TOKEN: Static token
  - CLOUDSYNC_JWT_SECRET: Mint short-lived HS256 tokens instead (32+ chars)

Sync (SyncConfig):
  - SYNC_DEFAULT_TIMEOUT: Per-request timeout (default: 30s)
  - SYNC_ALIGNMENT_MARGIN: Subtracted from conditional-fetch boundaries (default: 5s)
  - SYNC_CONDITIONAL_PARAM: Query parameter name (default: changes-since)
  - SYNC_SKIP_TIMEOUTS_THRESHOLD: Absorbed consecutive timeouts (default: 2)
  - SYNC_ERROR_HISTORY_SIZE: Error registry bound, 0 = unbounded (default: 0)
  - SYNC_RATE_LIMIT / SYNC_RATE_BURST: Client-side request rate limit (default: off)
  - SYNC_BREAKER_*: Transport circuit breaker

Polling (PollingConfig):
  - POLL_INTERVAL_MS, POLL_FAST_INTERVAL_MS, POLL_INCREASE_MS,
    POLL_MAX_INTERVAL_MS, POLL_INCREASE_AFTER_N_TICKS, POLL_CALL_ON_START
  - polling.resources: YAML-only list of {name, path, incremental, poll}

Server and Logging:
  - HTTP_PORT, HTTP_HOST, HTTP_SHUTDOWN_TIMEOUT
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Example

	api:
	  base_url: https://cloud.example.com/api
	  token: s3cr3t
	polling:
	  resources:
	    - name: servers
	      path: /servers/detail
	      incremental: true
	      poll: {is_recurrent: true}
	    - name: volumes
	      path: /volumes/detail
	      incremental: true
	      poll: {is_recurrent: true, max_interval_ms: 30000}

# Validation

Struct tags are checked with go-playground/validator (see internal/validation),
then cross-field rules: the API URL must be http(s), and every effective poll
configuration must satisfy fast_interval_ms <= interval_ms <= max_interval_ms.
*/
package config
