// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package config

import (
	"time"
)

// Config holds all configuration for the synchronization core and the
// daemon that hosts it.
type Config struct {
	API     APIConfig     `koanf:"api"`
	Sync    SyncConfig    `koanf:"sync"`
	Polling PollingConfig `koanf:"polling"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
}

// APIConfig describes the remote cloud API and how requests authenticate against it.
type APIConfig struct {
	// BaseURL is prepended to resource paths (e.g., "https://cloud.example.com/api").
	BaseURL string `koanf:"base_url" validate:"required"`

	// AuthHeader is the header the token is attached to.
	AuthHeader string `koanf:"auth_header" validate:"required,headername"`

	// AuthScheme prefixes the token value (e.g., "Bearer"). Empty sends the raw token.
	AuthScheme string `koanf:"auth_scheme"`

	// Token is a static API token. Ignored when JWTSecret is set.
	Token string `koanf:"token"`

	// JWTSecret enables short-lived HS256 tokens minted per request.
	JWTSecret  string        `koanf:"jwt_secret"`
	JWTIssuer  string        `koanf:"jwt_issuer"`
	JWTSubject string        `koanf:"jwt_subject"`
	JWTTTL     time.Duration `koanf:"jwt_ttl" validate:"gte=0"`
}

// SyncConfig holds the request-orchestration settings shared by every dispatched request.
type SyncConfig struct {
	// DefaultTimeout applies to requests that don't set their own timeout.
	DefaultTimeout time.Duration `koanf:"default_timeout" validate:"gt=0"`

	// AlignmentMargin is subtracted from the last successful response time
	// before it is sent as the conditional-fetch boundary.
	AlignmentMargin time.Duration `koanf:"alignment_margin" validate:"gte=0"`

	// ConditionalParam is the query parameter carrying the conditional-fetch timestamp.
	ConditionalParam string `koanf:"conditional_param" validate:"required,queryparam"`

	// ResponseTimeHeader names the server-asserted response time header.
	// Empty disables it and the client's request-sent time is always used.
	ResponseTimeHeader string `koanf:"response_time_header" validate:"omitempty,headername"`

	// SkipTimeoutsThreshold is the default number of consecutive timeouts
	// absorbed before a timeout-skipping request escalates.
	SkipTimeoutsThreshold int `koanf:"skip_timeouts_threshold" validate:"gte=0"`

	// ErrorHistorySize bounds the error registry. 0 keeps every entry.
	ErrorHistorySize int `koanf:"error_history_size" validate:"gte=0"`

	// RateLimit caps outgoing requests per second. 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`
	RateBurst int     `koanf:"rate_burst" validate:"gte=0"`

	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig configures the circuit breaker wrapped around the HTTP transport.
type BreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio" validate:"gte=0,lte=1"`
	Interval     time.Duration `koanf:"interval" validate:"gte=0"`
	Timeout      time.Duration `koanf:"timeout" validate:"gte=0"`
	MaxHalfOpen  uint32        `koanf:"max_half_open"`
}

// PollConfig carries the scheduler options in the units the console uses (milliseconds).
type PollConfig struct {
	IntervalMS          int  `koanf:"interval_ms" validate:"gt=0"`
	FastIntervalMS      int  `koanf:"fast_interval_ms" validate:"gt=0"`
	IncreaseMS          int  `koanf:"increase_ms" validate:"gte=0"`
	MaxIntervalMS       int  `koanf:"max_interval_ms" validate:"gt=0"`
	IncreaseAfterNTicks int  `koanf:"increase_after_n_ticks" validate:"gte=0"`
	CallOnStart         bool `koanf:"call_on_start"`
	IsRecurrent         bool `koanf:"is_recurrent"`
}

// ResourceConfig declares one remote resource the daemon keeps polled.
type ResourceConfig struct {
	Name        string `koanf:"name" validate:"required"`
	Path        string `koanf:"path" validate:"required"`
	Incremental bool   `koanf:"incremental"`

	// Poll overrides PollingConfig.Defaults field by field when non-zero.
	Poll PollConfig `koanf:"poll" validate:"-"`
}

// PollingConfig holds scheduler defaults and the resources to poll.
type PollingConfig struct {
	Defaults  PollConfig       `koanf:"defaults"`
	Resources []ResourceConfig `koanf:"resources" validate:"dive"`
}

// ServerConfig holds the admin HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	Host            string        `koanf:"host"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`

	// AllowedOrigins lists browser origins accepted for CORS and websocket upgrades.
	// Same-host origins are always accepted by the websocket endpoint.
	AllowedOrigins []string `koanf:"allowed_origins"`

	// RateLimitRequests caps admin API requests per client IP in RateLimitWindow.
	// Zero disables rate limiting.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, an optional YAML file, and the environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// Resolved returns the scheduler options for a resource, falling back to
// the defaults for every zero field. Booleans are OR-ed with the defaults.
func (r ResourceConfig) Resolved(defaults PollConfig) PollConfig {
	out := defaults
	if r.Poll.IntervalMS > 0 {
		out.IntervalMS = r.Poll.IntervalMS
	}
	if r.Poll.FastIntervalMS > 0 {
		out.FastIntervalMS = r.Poll.FastIntervalMS
	}
	if r.Poll.IncreaseMS > 0 {
		out.IncreaseMS = r.Poll.IncreaseMS
	}
	if r.Poll.MaxIntervalMS > 0 {
		out.MaxIntervalMS = r.Poll.MaxIntervalMS
	}
	if r.Poll.IncreaseAfterNTicks > 0 {
		out.IncreaseAfterNTicks = r.Poll.IncreaseAfterNTicks
	}
	out.CallOnStart = defaults.CallOnStart || r.Poll.CallOnStart
	out.IsRecurrent = defaults.IsRecurrent || r.Poll.IsRecurrent
	return out
}
