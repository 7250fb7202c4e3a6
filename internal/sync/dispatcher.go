// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cloudsync/internal/logging"
	"github.com/tomtom215/cloudsync/internal/metrics"
)

// defaultRequestTimeout applies when neither the options nor the configuration set one.
const defaultRequestTimeout = 30 * time.Second

// Dispatcher sends requests on behalf of resources and applies the outcome to
// the shared Context.
type Dispatcher struct {
	sc      *Context
	client  *http.Client
	baseURL string
	redact  []string
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHTTPClient sets the client used for every request. Build it with
// NewHTTPClient to get auth, rate limiting and the circuit breaker.
func WithHTTPClient(c *http.Client) DispatcherOption {
	return func(d *Dispatcher) {
		d.client = c
	}
}

// WithBaseURL resolves relative resource URLs against base.
func WithBaseURL(base string) DispatcherOption {
	return func(d *Dispatcher) {
		d.baseURL = strings.TrimSuffix(base, "/")
	}
}

// WithRedactedHeaders hides header values in the error registry.
func WithRedactedHeaders(names ...string) DispatcherOption {
	return func(d *Dispatcher) {
		d.redact = append(d.redact, names...)
	}
}

// NewDispatcher creates a dispatcher bound to sc.
func NewDispatcher(sc *Context, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sc:     sc,
		client: &http.Client{},
		redact: []string{"Authorization"},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Request is the handle of a dispatched request.
type Request struct {
	id          string
	method      Method
	url         string
	conditional bool
	cancel      context.CancelCauseFunc
	done        chan struct{}

	mu       sync.Mutex
	response *Response
}

// ID returns the request ID (also attached to log lines as request_id).
func (r *Request) ID() string { return r.id }

// Method returns the resource operation.
func (r *Request) Method() Method { return r.method }

// URL returns the resolved URL, including the conditional-fetch parameter if any.
func (r *Request) URL() string { return r.url }

// Conditional reports whether the conditional-fetch parameter was attached.
func (r *Request) Conditional() bool { return r.conditional }

// Abort cancels the request. It has no effect once the request finished.
func (r *Request) Abort() { r.cancel(ErrAborted) }

// Done is closed after the Complete callback returned.
func (r *Request) Done() <-chan struct{} { return r.done }

// Response returns the final response, or nil while the request is in flight.
func (r *Request) Response() *Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.response
}

// Outcome returns the classification, or "" while the request is in flight.
func (r *Request) Outcome() Outcome {
	if resp := r.Response(); resp != nil {
		return resp.Outcome
	}
	return ""
}

// Execute dispatches a request for resource. It returns immediately; the
// outcome is delivered through the callbacks in opts. While the console is
// suspended and opts.Force is not set, Execute returns ErrSuspended without
// touching the network or firing any callback.
func (d *Dispatcher) Execute(ctx context.Context, method Method, resource Resource, opts *Options) (*Request, error) {
	if opts == nil {
		opts = &Options{}
	}

	httpMethod, ok := method.HTTPMethod()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}

	if !opts.Force && d.sc.States.Suspended() {
		metrics.RecordVeto()
		logging.Ctx(ctx).Debug().Str("method", string(method)).Msg("Request dropped while suspended")
		return nil, ErrSuspended
	}

	rawURL, err := d.resolveURL(resource, opts, method)
	if err != nil {
		return nil, err
	}

	conditional := false
	if method == MethodRead && !opts.Refresh && supportsIncremental(resource) {
		if since, ok := d.sc.History.ConditionalParam(rawURL, method, d.sc.cfg.AlignmentMargin); ok {
			rawURL = appendQuery(rawURL, d.sc.cfg.ConditionalParam, since)
			conditional = true
			metrics.SyncConditionalRequests.Inc()
		}
	}

	body, contentType, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}

	id := logging.GenerateRequestID()
	ctx = logging.ContextWithRequestID(ctx, id)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = d.sc.cfg.DefaultTimeout
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	timedCtx, cancelTimeout := context.WithTimeoutCause(reqCtx, timeout, errRequestTimeout)

	var bodyReader io.Reader = http.NoBody
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(timedCtx, httpMethod, d.absolute(rawURL), bodyReader)
	if err != nil {
		cancelTimeout()
		cancel(nil)
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, vs := range opts.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	// Only conditional fetches may be served from a cache
	if method == MethodRead && !conditional {
		httpReq.Header.Set("Cache-Control", "no-cache")
	}

	r := &Request{
		id:          id,
		method:      method,
		url:         rawURL,
		conditional: conditional,
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	settings := RequestSettings{
		Method:      method,
		HTTPMethod:  httpMethod,
		Header:      flattenHeader(httpReq.Header, d.redact...),
		Conditional: conditional,
		Critical:    !opts.NonCritical,
		Timeout:     timeout,
	}
	if len(body) > 0 {
		settings.Body = string(readBodyForError(bytes.NewReader(body)))
	}

	logging.Ctx(ctx).Debug().
		Str("method", httpMethod).
		Str("url", rawURL).
		Bool("conditional", conditional).
		Msg("Dispatching request")

	go d.run(timedCtx, cancelTimeout, r, httpReq, opts, settings)

	return r, nil
}

// run performs the round trip and settles the outcome.
func (d *Dispatcher) run(ctx context.Context, cancelTimeout context.CancelFunc, r *Request, req *http.Request, opts *Options, settings RequestSettings) {
	defer r.cancel(nil)
	defer cancelTimeout()

	sent := d.sc.clock.Now()
	resp, err := d.client.Do(req)

	response := &Response{
		RequestID:   r.id,
		Method:      r.method,
		URL:         r.url,
		Conditional: r.conditional,
		SentAt:      sent,
	}

	if err == nil {
		response.StatusCode = resp.StatusCode
		response.Header = resp.Header
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			response.Body, err = io.ReadAll(resp.Body)
		} else {
			response.Body = readBodyForError(resp.Body)
		}
		_ = resp.Body.Close()
	}

	response.Outcome = classify(response.StatusCode, err, context.Cause(ctx))
	response.Duration = d.sc.clock.Now().Sub(sent)

	switch {
	case err != nil:
		response.Err = err
	case response.Outcome == OutcomeError:
		response.Err = &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if response.Outcome == OutcomeSuccess || response.Outcome == OutcomeNotModified {
		response.ResponseTime = d.responseTime(response.Header, sent)
	}

	d.settle(ctx, r, opts, response, settings)
}

// settle applies the outcome to the shared state and fires the callbacks.
func (d *Dispatcher) settle(ctx context.Context, r *Request, opts *Options, resp *Response, settings RequestSettings) {
	log := logging.Ctx(ctx)

	switch resp.Outcome {
	case OutcomeSuccess:
		d.sc.History.RecordSuccess(r.url, r.method, resp.ResponseTime)
		d.sc.resetTimeouts()
		call(opts.Success, resp)
	case OutcomeNotModified:
		d.sc.History.RecordSuccess(r.url, r.method, resp.ResponseTime)
		d.sc.resetTimeouts()
	case OutcomeAbort:
		d.sc.Bus.Publish(Event{
			Type:      EventAbort,
			Time:      d.sc.clock.Now(),
			RequestID: r.id,
			URL:       r.url,
			Outcome:   OutcomeAbort,
		})
	case OutcomeTimeout, OutcomeError:
		d.fail(ctx, r, opts, resp, settings)
	}

	metrics.RecordDispatch(string(r.method), string(resp.Outcome), resp.Duration)
	log.Debug().
		Str("url", r.url).
		Str("outcome", string(resp.Outcome)).
		Int("status", resp.StatusCode).
		Dur("duration", resp.Duration).
		Msg("Request finished")

	if origin := originFromContext(ctx); origin != "" &&
		resp.Outcome != OutcomeNotModified && resp.Outcome != OutcomeAbort {
		d.sc.Bus.Publish(Event{
			Type:      EventRecurrentActivity,
			Time:      d.sc.clock.Now(),
			Origin:    origin,
			RequestID: r.id,
			URL:       r.url,
			Outcome:   resp.Outcome,
		})
	}

	r.mu.Lock()
	r.response = resp
	r.mu.Unlock()

	call(opts.Complete, resp)
	close(r.done)
}

// fail handles timeout and error outcomes.
func (d *Dispatcher) fail(ctx context.Context, r *Request, opts *Options, resp *Response, settings RequestSettings) {
	raise := true
	logEntry := resp.Outcome == OutcomeError
	reason := ""

	switch {
	case r.conditional:
		// Self-heal: next fetch is unconditional, no alarm for this cause
		d.sc.History.Clear(r.url, r.method)
		raise = false
		reason = "conditional"
	case resp.Outcome == OutcomeTimeout && opts.SkipTimeouts:
		threshold := opts.SkipTimeoutsThreshold
		if threshold <= 0 {
			threshold = d.sc.cfg.SkipTimeoutsThreshold
		}
		if d.sc.absorbTimeout(threshold) {
			raise = false
			reason = "timeout_absorbed"
		}
	}

	// Escalated timeouts are logged like HTTP errors
	if raise && resp.Outcome == OutcomeTimeout {
		logEntry = true
	}
	if raise && opts.SkipGlobalNotification {
		raise = false
		reason = "caller"
	}

	if logEntry && !opts.SkipErrorLog {
		d.sc.Errors.Append(ErrorEntry{
			URL:       r.url,
			Timestamp: d.sc.clock.Now(),
			Request:   settings,
			Response: ResponseData{
				Outcome:    resp.Outcome,
				StatusCode: resp.StatusCode,
				Header:     flattenHeader(resp.Header),
				Body:       string(resp.Body),
				Error:      errString(resp.Err),
			},
		})
	}

	call(opts.Error, resp)

	if !raise {
		metrics.RecordSuppressed(reason)
		logging.Ctx(ctx).Debug().
			Str("url", r.url).
			Str("outcome", string(resp.Outcome)).
			Str("reason", reason).
			Msg("Failure kept local")
		return
	}

	d.sc.Bus.Publish(Event{
		Type: EventFailure,
		Time: d.sc.clock.Now(),
		Failure: &Failure{
			Critical:   !opts.NonCritical,
			Warning:    opts.Warning,
			Method:     r.method,
			URL:        r.url,
			Outcome:    resp.Outcome,
			StatusCode: resp.StatusCode,
			Err:        resp.Err,
		},
	})
}

// responseTime prefers the server-asserted time header and falls back to the
// client's send time.
func (d *Dispatcher) responseTime(h http.Header, sent time.Time) time.Time {
	if name := d.sc.cfg.ResponseTimeHeader; name != "" && h != nil {
		if v := h.Get(name); v != "" {
			if t, err := http.ParseTime(v); err == nil {
				return t
			}
		}
	}
	return sent
}

func (d *Dispatcher) resolveURL(resource Resource, opts *Options, method Method) (string, error) {
	if opts.URL != "" {
		return opts.URL, nil
	}
	if resource == nil {
		return "", ErrNoURL
	}

	u, err := resource.ResolveURL(opts, method)
	if errors.Is(err, ErrNoURL) && method == MethodCreate {
		if member, ok := resource.(CollectionMember); ok {
			if parent := member.Collection(); parent != nil {
				u, err = parent.ResolveURL(opts, method)
			}
		}
	}
	if err != nil {
		return "", fmt.Errorf("resolve url: %w", err)
	}
	if u == "" {
		return "", ErrNoURL
	}
	return u, nil
}

func (d *Dispatcher) absolute(rawURL string) string {
	if d.baseURL == "" || strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return rawURL
	}
	return d.baseURL + "/" + strings.TrimPrefix(rawURL, "/")
}

func supportsIncremental(resource Resource) bool {
	inc, ok := resource.(IncrementalResource)
	return ok && inc.SupportsIncrementalUpdates()
}

func appendQuery(rawURL, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

// encodeBody turns Options.Body into bytes and a content type.
func encodeBody(body interface{}) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return b, "", nil
	case string:
		return []byte(b), "", nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, "", fmt.Errorf("read request body: %w", err)
		}
		return data, "", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		return data, "application/json", nil
	}
}

func call(fn func(*Response), resp *Response) {
	if fn != nil {
		fn(resp)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
