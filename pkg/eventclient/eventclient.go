// Package eventclient provides a callback-driven HTTP request modeled as an
// explicit state machine. Instead of blocking on a response, callers
// register listeners and observe the request advance through its states on
// an event loop, the way asynchronous browser requests behave.
//
// Pair it with an interceptor-backed http.Client to exercise loading-state
// code paths against the mock without a network.
package eventclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/todomock/todomock/internal/eventloop"
)

// State is the lifecycle position of a Request.
type State int

// Request states, in progression order.
const (
	// Unsent is the initial state before Open.
	Unsent State = iota
	// Opened means method and URL are set.
	Opened
	// HeadersReceived means the status line and headers are available.
	HeadersReceived
	// Loading means the body is being received.
	Loading
	// Done is the terminal state: the response (or failure) is complete.
	Done
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unsent:
		return "unsent"
	case Opened:
		return "opened"
	case HeadersReceived:
		return "headers_received"
	case Loading:
		return "loading"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Errors returned by Request methods.
var (
	ErrNotOpened   = errors.New("request has not been opened")
	ErrAlreadySent = errors.New("request has already been sent")
	ErrNoResponse  = errors.New("no response available")
)

// Request is a single callback-driven HTTP request. It is not reusable:
// create a new Request for each call.
//
// All listeners are invoked on the event loop, one at a time, never
// synchronously inside Send. Once Send returns nil the terminal
// notifications are guaranteed to fire eventually; there is no cancellation.
type Request struct {
	loop   *eventloop.Loop
	client *http.Client

	mu         sync.Mutex
	state      State
	method     string
	url        string
	header     http.Header
	sent       bool
	status     int
	statusText string
	respHeader http.Header
	respBody   []byte
	netErr     error

	onReadyStateChange []func(State)
	onLoad             []func()
	onError            []func()
	onLoadEnd          []func()
}

// NewRequest creates a Request dispatching on the given loop. A nil client
// uses http.DefaultClient; tests pass an interceptor-backed client instead.
func NewRequest(loop *eventloop.Loop, client *http.Client) *Request {
	if client == nil {
		client = http.DefaultClient
	}
	return &Request{
		loop:   loop,
		client: client,
		header: make(http.Header),
	}
}

// OnReadyStateChange registers a listener for every state transition.
func (r *Request) OnReadyStateChange(fn func(State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReadyStateChange = append(r.onReadyStateChange, fn)
}

// OnLoad registers a listener fired once when a 2xx response completes.
func (r *Request) OnLoad(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onLoad = append(r.onLoad, fn)
}

// OnError registers a listener fired once on a non-2xx response or a
// transport failure.
func (r *Request) OnError(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = append(r.onError, fn)
}

// OnLoadEnd registers a listener fired once after load or error, always.
func (r *Request) OnLoadEnd(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onLoadEnd = append(r.onLoadEnd, fn)
}

// Open sets the method and URL and moves the request to Opened.
func (r *Request) Open(method, url string) error {
	r.mu.Lock()
	if r.sent {
		r.mu.Unlock()
		return ErrAlreadySent
	}
	r.method = method
	r.url = url
	r.mu.Unlock()

	r.transition(Opened)
	return nil
}

// SetHeader sets a request header. Must be called after Open and before
// Send.
func (r *Request) SetHeader(key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == Unsent {
		return ErrNotOpened
	}
	if r.sent {
		return ErrAlreadySent
	}
	r.header.Set(key, value)
	return nil
}

// Send issues the request. It returns immediately; progress is reported
// through the registered listeners on the event loop.
func (r *Request) Send(body []byte) error {
	r.mu.Lock()
	if r.state == Unsent {
		r.mu.Unlock()
		return ErrNotOpened
	}
	if r.sent {
		r.mu.Unlock()
		return ErrAlreadySent
	}
	r.sent = true
	method, url := r.method, r.url
	header := r.header.Clone()
	r.mu.Unlock()

	go r.perform(method, url, header, body)
	return nil
}

// perform runs the HTTP call off-loop, then replays the lifecycle on the
// loop. The transport's artificial delay has already elapsed by the time
// the first post fires, so no listener ever runs inside Send's call frame.
func (r *Request) perform(method, url string, header http.Header, body []byte) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		r.finishError(err)
		return
	}
	req.Header = header

	resp, err := r.client.Do(req)
	if err != nil {
		r.finishError(err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		r.finishError(err)
		return
	}

	r.mu.Lock()
	r.status = resp.StatusCode
	r.statusText = statusText(resp)
	r.respHeader = resp.Header.Clone()
	r.mu.Unlock()

	r.transition(HeadersReceived)

	r.mu.Lock()
	r.respBody = respBody
	r.mu.Unlock()

	r.transition(Loading)
	r.transition(Done)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		r.fire(r.loadListeners())
	} else {
		r.fire(r.errorListeners())
	}
	r.fire(r.loadEndListeners())
}

// finishError reports a transport-level failure: status stays 0, the state
// still reaches Done, and error plus loadend fire.
func (r *Request) finishError(err error) {
	r.mu.Lock()
	r.netErr = err
	r.mu.Unlock()

	r.transition(Done)
	r.fire(r.errorListeners())
	r.fire(r.loadEndListeners())
}

// transition advances the state immediately and notifies ready-state
// listeners on the loop.
func (r *Request) transition(next State) {
	r.mu.Lock()
	r.state = next
	listeners := make([]func(State), len(r.onReadyStateChange))
	copy(listeners, r.onReadyStateChange)
	r.mu.Unlock()

	_ = r.loop.Post(func() {
		for _, fn := range listeners {
			fn(next)
		}
	})
}

func (r *Request) fire(listeners []func()) {
	_ = r.loop.Post(func() {
		for _, fn := range listeners {
			fn()
		}
	})
}

func (r *Request) loadListeners() []func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]func(), len(r.onLoad))
	copy(out, r.onLoad)
	return out
}

func (r *Request) errorListeners() []func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]func(), len(r.onError))
	copy(out, r.onError)
	return out
}

func (r *Request) loadEndListeners() []func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]func(), len(r.onLoadEnd))
	copy(out, r.onLoadEnd)
	return out
}

// State returns the current lifecycle state.
func (r *Request) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Status returns the response status code, 0 before HeadersReceived or on
// transport failure.
func (r *Request) Status() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// StatusText returns the textual status reason, e.g. "OK" or "Not Found".
func (r *Request) StatusText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusText
}

// Err returns the transport failure, if any.
func (r *Request) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.netErr
}

// ResponseText returns the raw response body.
func (r *Request) ResponseText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.respBody)
}

// ResponseHeader returns a response header value.
func (r *Request) ResponseHeader(key string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.respHeader == nil {
		return ""
	}
	return r.respHeader.Get(key)
}

// ResponseJSON unmarshals the response body into v.
func (r *Request) ResponseJSON(v any) error {
	r.mu.Lock()
	body := r.respBody
	r.mu.Unlock()
	if body == nil {
		return ErrNoResponse
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parse response body: %w", err)
	}
	return nil
}

// statusText extracts the reason phrase from a response status line.
func statusText(resp *http.Response) string {
	prefix := fmt.Sprintf("%d ", resp.StatusCode)
	if strings.HasPrefix(resp.Status, prefix) {
		return strings.TrimPrefix(resp.Status, prefix)
	}
	if resp.Status != "" {
		return resp.Status
	}
	return http.StatusText(resp.StatusCode)
}
