// Package interceptor provides an http.RoundTripper that answers todo API
// requests from an in-memory store instead of the network. Inject it into an
// http.Client and application code talks to the mock without knowing it;
// everything outside the route table passes through to a real transport.
package interceptor

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/todomock/todomock/internal/routing"
	"github.com/todomock/todomock/pkg/engine"
	"github.com/todomock/todomock/pkg/logging"
	"github.com/todomock/todomock/pkg/requestlog"
	"github.com/todomock/todomock/pkg/todo"
	"github.com/todomock/todomock/pkg/validation"
)

// DefaultDelay is the artificial latency applied to mocked responses when
// none is configured. Small but non-zero so loading states stay observable.
const DefaultDelay = 50 * time.Millisecond

// Transport is an http.RoundTripper that serves the todo API from a Store.
//
// A matched request is answered in two phases: the response is synthesized
// synchronously, so it reflects store state at call time, then delivery
// waits out the artificial delay. Mutations that land during the wait do not
// alter the response already built.
type Transport struct {
	handler  *engine.Handler
	delay    time.Duration
	fallback http.RoundTripper
	logs     *requestlog.Store
	log      *slog.Logger
	disabled atomic.Bool

	validator *validation.Validator
}

// Option configures a Transport.
type Option func(*Transport)

// WithDelay sets the artificial latency for mocked responses. Zero disables
// the delay.
func WithDelay(d time.Duration) Option {
	return func(t *Transport) {
		t.delay = d
	}
}

// WithFallback sets the transport for unmatched requests. Defaults to
// http.DefaultTransport.
func WithFallback(rt http.RoundTripper) Option {
	return func(t *Transport) {
		if rt != nil {
			t.fallback = rt
		}
	}
}

// WithValidator sets the payload validator for mocked requests.
func WithValidator(v *validation.Validator) Option {
	return func(t *Transport) {
		t.validator = v
	}
}

// WithRequestLog attaches a request log capturing both mocked and
// passthrough traffic.
func WithRequestLog(logs *requestlog.Store) Option {
	return func(t *Transport) {
		t.logs = logs
	}
}

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(t *Transport) {
		if log != nil {
			t.log = log
		}
	}
}

// New creates a Transport over the given store. The store may be shared with
// other components, such as a session mirror or a test harness.
func New(store *todo.Store, opts ...Option) *Transport {
	t := &Transport{
		delay:    DefaultDelay,
		fallback: http.DefaultTransport,
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	handlerOpts := []engine.HandlerOption{engine.WithHandlerLogger(t.log)}
	if t.validator != nil {
		handlerOpts = append(handlerOpts, engine.WithValidator(t.validator))
	}
	t.handler = engine.NewHandler(store, handlerOpts...)
	return t
}

// Store returns the todo store backing the transport.
func (t *Transport) Store() *todo.Store {
	return t.handler.Store()
}

// SetEnabled turns interception on or off. While disabled every request
// passes through, mimicking removal of the mock layer at runtime.
func (t *Transport) SetEnabled(enabled bool) {
	t.disabled.Store(!enabled)
}

// Enabled reports whether interception is active.
func (t *Transport) Enabled() bool {
	return !t.disabled.Load()
}

// Client returns an http.Client using this transport.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	m, ok := routing.Resolve(req.Method, req.URL.String())
	if !ok || !t.Enabled() {
		return t.passthrough(req)
	}

	start := time.Now()

	// Phase one: synthesize now, against current store state.
	buf := newResponseBuffer()
	t.handler.ServeHTTP(buf, req)
	resp := buf.response(req)

	// Phase two: hold delivery for the artificial delay.
	if t.delay > 0 {
		timer := time.NewTimer(t.delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			t.logEntry(req, m.Op.String(), requestlog.OutcomeMocked, 0, start)
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}

	t.log.Debug("mocked request",
		"method", req.Method,
		"path", routing.NormalizePath(req.URL.String()),
		"operation", m.Op.String(),
		"status", resp.StatusCode,
	)
	t.logEntry(req, m.Op.String(), requestlog.OutcomeMocked, resp.StatusCode, start)
	return resp, nil
}

// passthrough delegates to the real transport.
func (t *Transport) passthrough(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.fallback.RoundTrip(req)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	t.logEntry(req, "", requestlog.OutcomePassthrough, status, start)

	if err != nil {
		t.log.Debug("passthrough request failed",
			"method", req.Method, "url", req.URL.String(), "error", err)
	}
	return resp, err
}

func (t *Transport) logEntry(req *http.Request, op string, outcome requestlog.Outcome, status int, start time.Time) {
	if t.logs == nil {
		return
	}
	t.logs.Log(&requestlog.Entry{
		Timestamp: start,
		Method:    req.Method,
		Path:      routing.NormalizePath(req.URL.String()),
		Operation: op,
		Outcome:   outcome,
		Status:    status,
		Duration:  time.Since(start),
	})
}

// responseBuffer is an in-memory http.ResponseWriter. The handler writes
// into it synchronously; the buffered result becomes an *http.Response once
// the delay elapses.
type responseBuffer struct {
	header http.Header
	body   bytes.Buffer
	code   int
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{
		header: make(http.Header),
		code:   http.StatusOK,
	}
}

func (b *responseBuffer) Header() http.Header {
	return b.header
}

func (b *responseBuffer) WriteHeader(code int) {
	b.code = code
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	return b.body.Write(p)
}

// response converts the buffered result into a client-side *http.Response.
func (b *responseBuffer) response(req *http.Request) *http.Response {
	body := b.body.Bytes()
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", b.code, http.StatusText(b.code)),
		StatusCode:    b.code,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        b.header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
