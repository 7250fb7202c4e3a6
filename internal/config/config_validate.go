// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/cloudsync/internal/validation"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("invalid configuration: %w", verr)
	}

	if err := c.validateAPI(); err != nil {
		return err
	}

	if err := validatePoll(c.Polling.Defaults, "polling.defaults"); err != nil {
		return err
	}

	return c.validateResources()
}

// validateAPI validates the remote API settings
func (c *Config) validateAPI() error {
	if err := validateHTTPURL(c.API.BaseURL, "CLOUDSYNC_API_URL"); err != nil {
		return fmt.Errorf("CLOUDSYNC_API_URL is invalid: %w", err)
	}
	if c.API.JWTSecret != "" && len(c.API.JWTSecret) < 32 {
		return fmt.Errorf("CLOUDSYNC_JWT_SECRET must be at least 32 characters")
	}
	if c.API.JWTSecret != "" && c.API.JWTTTL <= 0 {
		return fmt.Errorf("CLOUDSYNC_JWT_TTL must be positive when CLOUDSYNC_JWT_SECRET is set")
	}
	return nil
}

// validatePoll enforces fast <= interval <= max so the scheduler bounds hold
func validatePoll(p PollConfig, field string) error {
	if p.FastIntervalMS > p.MaxIntervalMS {
		return fmt.Errorf("%s: fast_interval_ms (%d) exceeds max_interval_ms (%d)", field, p.FastIntervalMS, p.MaxIntervalMS)
	}
	if p.IntervalMS < p.FastIntervalMS || p.IntervalMS > p.MaxIntervalMS {
		return fmt.Errorf("%s: interval_ms (%d) must be within [%d, %d]", field, p.IntervalMS, p.FastIntervalMS, p.MaxIntervalMS)
	}
	return nil
}

// validateResources checks resource names are unique and their effective poll settings are sane
func (c *Config) validateResources() error {
	seen := make(map[string]struct{}, len(c.Polling.Resources))
	for _, r := range c.Polling.Resources {
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("polling.resources: duplicate resource name %q", r.Name)
		}
		seen[r.Name] = struct{}{}

		if !strings.HasPrefix(r.Path, "/") {
			return fmt.Errorf("polling.resources[%s]: path must start with '/', got %q", r.Name, r.Path)
		}
		if err := validatePoll(r.Resolved(c.Polling.Defaults), "polling.resources["+r.Name+"]"); err != nil {
			return err
		}
	}
	return nil
}
