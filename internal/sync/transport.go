// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/cloudsync/internal/config"
	"github.com/tomtom215/cloudsync/internal/logging"
	"github.com/tomtom215/cloudsync/internal/metrics"
)

// errServerStatus marks 5xx responses as breaker failures. It never leaves the transport.
var errServerStatus = errors.New("server error status")

// NewHTTPClient builds the client the dispatcher uses against the configured API.
// Request timeouts come from the dispatcher's contexts, not from the client.
func NewHTTPClient(cfg *config.Config, tokens TokenSource) *http.Client {
	return &http.Client{Transport: NewTransport(cfg, tokens, nil)}
}

// NewTransport chains, outermost first: rate limiter, circuit breaker, auth.
func NewTransport(cfg *config.Config, tokens TokenSource, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	var rt http.RoundTripper = &authTransport{
		next:   base,
		header: cfg.API.AuthHeader,
		scheme: cfg.API.AuthScheme,
		tokens: tokens,
	}

	if cfg.Sync.Breaker.Enabled {
		name := "cloud-api"
		if u, err := url.Parse(cfg.API.BaseURL); err == nil && u.Host != "" {
			name = u.Host
		}
		rt = newBreakerTransport(name, cfg.Sync.Breaker, rt)
	}

	if cfg.Sync.RateLimit > 0 {
		burst := cfg.Sync.RateBurst
		if burst < 1 {
			burst = 1
		}
		rt = &rateLimitTransport{
			next:    rt,
			limiter: rate.NewLimiter(rate.Limit(cfg.Sync.RateLimit), burst),
		}
	}

	return rt
}

// authTransport attaches the token at send time so a refreshed token is always used.
type authTransport struct {
	next   http.RoundTripper
	header string
	scheme string
	tokens TokenSource
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.tokens == nil || t.header == "" {
		return t.next.RoundTrip(req)
	}

	token, err := t.tokens.Token(req.Context())
	if err != nil {
		return nil, fmt.Errorf("fetch auth token: %w", err)
	}
	if t.scheme != "" {
		token = t.scheme + " " + token
	}

	// RoundTrippers must not modify the caller's request
	r2 := req.Clone(req.Context())
	r2.Header.Set(t.header, token)
	return t.next.RoundTrip(r2)
}

// rateLimitTransport keeps the client under the configured request rate.
type rateLimitTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, rateLimitError(req.Context(), err)
	}
	metrics.RateLimitWaitDuration.Observe(time.Since(start).Seconds())
	return t.next.RoundTrip(req)
}

// rateLimitError reports a wait the deadline cannot cover as a timeout. The
// limiter refuses such waits up front, before the context itself expires.
func rateLimitError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("rate limit wait: %w", ctxErr)
	}
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("rate limit wait: %w: %v", context.DeadlineExceeded, err)
	}
	return fmt.Errorf("rate limit wait: %w", err)
}

// breakerTransport wraps the transport with a circuit breaker. Transport errors
// and 5xx responses count as failures; cancellations do not.
//
// The breaker uses real time for its interval and timeout. Tests exercise the
// trip condition, not recovery timing.
type breakerTransport struct {
	next http.RoundTripper
	cb   *gobreaker.CircuitBreaker[*http.Response]
	name string
}

func newBreakerTransport(name string, cfg config.BreakerConfig, next http.RoundTripper) *breakerTransport {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0) // 0 = closed
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	minRequests := cfg.MinRequests
	ratio := cfg.FailureRatio

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxHalfOpen,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,

		// Opens when failure rate >= ratio with at least minRequests requests
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= ratio

			if shouldTrip {
				logging.Warn().Str("breaker", name).Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()

			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},

		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
	})

	return &breakerTransport{next: next, cb: cb, name: name}
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.cb.Execute(func() (*http.Response, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})

	switch {
	case errors.Is(err, errServerStatus):
		t.recordFailure()
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(t.name, "rejected").Inc()
		logging.Warn().Err(err).Str("breaker", t.name).Msg("[CIRCUIT BREAKER] Request rejected")
		return nil, fmt.Errorf("circuit breaker %s: %w", t.name, err)
	case errors.Is(err, context.Canceled):
		return nil, err
	case err != nil:
		t.recordFailure()
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(t.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(t.name).Set(0)
	return resp, nil
}

// State returns the breaker state.
func (t *breakerTransport) State() gobreaker.State {
	return t.cb.State()
}

func (t *breakerTransport) recordFailure() {
	metrics.CircuitBreakerRequests.WithLabelValues(t.name, "failure").Inc()
	counts := t.cb.Counts()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(t.name).Set(float64(counts.ConsecutiveFailures))
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
