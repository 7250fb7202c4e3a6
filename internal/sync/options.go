// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package sync

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

var (
	// ErrSuspended is returned by Execute while the console is suspended.
	ErrSuspended = errors.New("sync: calls suspended until reset")

	// ErrNoURL is returned by a Resource that cannot produce a URL for the method.
	ErrNoURL = errors.New("sync: resource has no URL")

	// ErrInvalidMethod is returned for methods outside create/read/update/delete/head.
	ErrInvalidMethod = errors.New("sync: invalid method")

	// ErrInvalidSchedulerConfig is returned by NewScheduler for inconsistent intervals.
	ErrInvalidSchedulerConfig = errors.New("sync: invalid scheduler config")

	// ErrAborted is the cancellation cause of a request stopped with Request.Abort.
	ErrAborted = errors.New("sync: request aborted")

	// errRequestTimeout is the cancellation cause of a request that ran past its timeout.
	errRequestTimeout = errors.New("sync: request timed out")
)

// Method is a resource operation.
type Method string

const (
	MethodCreate Method = "create"
	MethodRead   Method = "read"
	MethodUpdate Method = "update"
	MethodDelete Method = "delete"
	MethodHead   Method = "head"
)

// HTTPMethod maps the operation to its HTTP verb.
func (m Method) HTTPMethod() (string, bool) {
	switch m {
	case MethodCreate:
		return http.MethodPost, true
	case MethodRead:
		return http.MethodGet, true
	case MethodUpdate:
		return http.MethodPut, true
	case MethodDelete:
		return http.MethodDelete, true
	case MethodHead:
		return http.MethodHead, true
	default:
		return "", false
	}
}

// Outcome is the classification of a finished request.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeNotModified Outcome = "notModified"
	OutcomeAbort       Outcome = "abort"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeError       Outcome = "error"
)

// Options controls a single Execute call.
type Options struct {
	// URL overrides the URL resolved from the resource.
	URL string

	// Body is sent as-is when it is []byte, string or io.Reader, otherwise JSON encoded.
	Body interface{}

	Header http.Header

	// Refresh forces an unconditional fetch.
	Refresh bool

	// NonCritical failures move the state to ERROR without suspending calls.
	NonCritical bool

	// Warning raises non-critical failures as warnings (NORMAL -> WARNING).
	Warning bool

	// Force dispatches even while suspended.
	Force bool

	// SkipTimeouts absorbs consecutive timeouts up to SkipTimeoutsThreshold
	// (the context default when zero).
	SkipTimeouts          bool
	SkipTimeoutsThreshold int

	// Timeout overrides the context's default request timeout.
	Timeout time.Duration

	SkipGlobalNotification bool
	SkipErrorLog           bool

	// Success fires for 2xx responses. Error fires for timeout and error outcomes.
	// Complete fires exactly once after either, and also for notModified and abort.
	Success  func(*Response)
	Error    func(*Response)
	Complete func(*Response)
}

// Response is what callbacks receive.
type Response struct {
	RequestID   string
	Method      Method
	URL         string
	Conditional bool
	Outcome     Outcome
	StatusCode  int
	Header      http.Header
	Body        []byte
	Err         error

	// SentAt is the client-side send time; ResponseTime is the instant recorded
	// into the request history.
	SentAt       time.Time
	ResponseTime time.Time
	Duration     time.Duration
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v interface{}) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("decode response: empty body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// HTTPError is the error attached to responses with a non-2xx, non-304 status.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	if e.Status != "" {
		return "unexpected status: " + e.Status
	}
	return fmt.Sprintf("unexpected status: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
