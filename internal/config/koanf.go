// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"cloudsync.yaml",
	"cloudsync.yml",
	"/etc/cloudsync/config.yaml",
	"/etc/cloudsync/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CLOUDSYNC_CONFIG"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    "",
			AuthHeader: "X-Auth-Token",
			AuthScheme: "",
			JWTTTL:     5 * time.Minute,
		},
		Sync: SyncConfig{
			DefaultTimeout:        30 * time.Second,
			AlignmentMargin:       5 * time.Second,
			ConditionalParam:      "changes-since",
			ResponseTimeHeader:    "Date",
			SkipTimeoutsThreshold: 2,
			ErrorHistorySize:      0, // Unbounded: entries live for the process lifetime
			RateLimit:             0, // Unlimited
			RateBurst:             10,
			Breaker: BreakerConfig{
				Enabled:      true,
				MinRequests:  10,
				FailureRatio: 0.6,
				Interval:     time.Minute,
				Timeout:      2 * time.Minute,
				MaxHalfOpen:  3,
			},
		},
		Polling: PollingConfig{
			Defaults: PollConfig{
				IntervalMS:          4000,
				FastIntervalMS:      1000,
				IncreaseMS:          500,
				MaxIntervalMS:       15000,
				IncreaseAfterNTicks: 3,
				CallOnStart:         true,
				IsRecurrent:         false,
			},
		},
		Server: ServerConfig{
			Port:            8470,
			Host:            "127.0.0.1",
			ShutdownTimeout:   10 * time.Second,
			AllowedOrigins:    []string{},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
//
// Precedence is ENV > File > Defaults. The result is validated before it is returned.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// CLOUDSYNC_API_URL -> api.base_url, SYNC_DEFAULT_TIMEOUT -> sync.default_timeout
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unmapped variables are ignored so unrelated environment never leaks into config.
var envMappings = map[string]string{
	// API
	"cloudsync_api_url":         "api.base_url",
	"cloudsync_api_auth_header": "api.auth_header",
	"cloudsync_api_auth_scheme": "api.auth_scheme",
	"cloudsync_api_token":       "api.token",
	"cloudsync_jwt_secret":      "api.jwt_secret",
	"cloudsync_jwt_issuer":      "api.jwt_issuer",
	"cloudsync_jwt_subject":     "api.jwt_subject",
	"cloudsync_jwt_ttl":         "api.jwt_ttl",

	// Sync
	"sync_default_timeout":         "sync.default_timeout",
	"sync_alignment_margin":        "sync.alignment_margin",
	"sync_conditional_param":       "sync.conditional_param",
	"sync_response_time_header":    "sync.response_time_header",
	"sync_skip_timeouts_threshold": "sync.skip_timeouts_threshold",
	"sync_error_history_size":      "sync.error_history_size",
	"sync_rate_limit":              "sync.rate_limit",
	"sync_rate_burst":              "sync.rate_burst",
	"sync_breaker_enabled":         "sync.breaker.enabled",
	"sync_breaker_min_requests":    "sync.breaker.min_requests",
	"sync_breaker_failure_ratio":   "sync.breaker.failure_ratio",
	"sync_breaker_interval":        "sync.breaker.interval",
	"sync_breaker_timeout":         "sync.breaker.timeout",

	// Polling defaults
	"poll_interval_ms":            "polling.defaults.interval_ms",
	"poll_fast_interval_ms":       "polling.defaults.fast_interval_ms",
	"poll_increase_ms":            "polling.defaults.increase_ms",
	"poll_max_interval_ms":        "polling.defaults.max_interval_ms",
	"poll_increase_after_n_ticks": "polling.defaults.increase_after_n_ticks",
	"poll_call_on_start":          "polling.defaults.call_on_start",

	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"http_rate_limit":       "server.rate_limit_requests",
	"http_rate_window":      "server.rate_limit_window",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - CLOUDSYNC_API_URL -> api.base_url
//   - SYNC_SKIP_TIMEOUTS_THRESHOLD -> sync.skip_timeouts_threshold
//   - POLL_MAX_INTERVAL_MS -> polling.defaults.max_interval_ms
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
