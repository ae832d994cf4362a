package testing

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/todomock/todomock/pkg/config"
	"github.com/todomock/todomock/pkg/engine"
	"github.com/todomock/todomock/pkg/interceptor"
	"github.com/todomock/todomock/pkg/requestlog"
	"github.com/todomock/todomock/pkg/todo"
	"github.com/todomock/todomock/pkg/validation"
)

// Option configures a harness before it starts.
type Option func(*options)

type options struct {
	seed       []SeedTodo
	delay      time.Duration
	validation string
	session    string
}

// WithSeed replaces the default seed todos.
func WithSeed(todos ...SeedTodo) Option {
	return func(o *options) {
		o.seed = todos
	}
}

// WithDelay sets the artificial response delay. Harnesses default to zero
// delay so test suites stay fast.
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		o.delay = d
	}
}

// WithStrictValidation switches the harness to strict request validation.
func WithStrictValidation() Option {
	return func(o *options) {
		o.validation = config.ValidationStrict
	}
}

// WithSessionFile persists harness state to the given snapshot file.
func WithSessionFile(path string) Option {
	return func(o *options) {
		o.session = path
	}
}

// SeedTodo builds one seed todo for WithSeed.
type SeedTodo struct {
	title       string
	description string
	completed   bool
}

// Todo starts a seed todo with the given title.
func Todo(title string) SeedTodo {
	return SeedTodo{title: title}
}

// Described sets the description.
func (s SeedTodo) Described(desc string) SeedTodo {
	s.description = desc
	return s
}

// Done marks the seed todo completed.
func (s SeedTodo) Done() SeedTodo {
	s.completed = true
	return s
}

// TodoServer is a running mock server plus a typed client, for tests that
// need the full HTTP path.
type TodoServer struct {
	// Client talks to the running server.
	Client *engine.Client

	t      testing.TB
	server *engine.Server
}

// Server starts a mock server on a random port and registers cleanup on t.
func Server(t testing.TB, opts ...Option) *TodoServer {
	t.Helper()

	o := applyOptions(opts)

	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Mock.DelayMS = int(o.delay / time.Millisecond)
	if o.validation != "" {
		cfg.Mock.Validation = o.validation
	}
	if o.session != "" {
		cfg.Session.File = o.session
	}
	for _, s := range o.seed {
		cfg.Seed = append(cfg.Seed, config.SeedTodo{
			Title:       s.title,
			Description: s.description,
			Completed:   s.completed,
		})
	}

	srv, err := engine.NewServer(cfg)
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() {
		_ = srv.Stop()
	})

	return &TodoServer{
		Client: engine.NewClient(srv.URL()),
		t:      t,
		server: srv,
	}
}

// URL returns the server's base URL.
func (ts *TodoServer) URL() string {
	return ts.server.URL()
}

// Store exposes the underlying todo store for direct state setup.
func (ts *TodoServer) Store() *todo.Store {
	return ts.server.Store()
}

// Server exposes the engine server for advanced use. Most tests should not
// need this.
func (ts *TodoServer) Server() *engine.Server {
	return ts.server
}

// Requests returns the captured request log, oldest first. Control-surface
// requests are never captured.
func (ts *TodoServer) Requests() []*requestlog.Entry {
	if logs := ts.server.RequestLog(); logs != nil {
		return logs.All()
	}
	return nil
}

// AssertHandled asserts that method+path was handled at least once.
func (ts *TodoServer) AssertHandled(t testing.TB, method, path string) {
	t.Helper()

	if ts.countRequests(method, path) == 0 {
		t.Errorf("expected %s %s to be handled, but it was not", method, path)
	}
}

// AssertHandledTimes asserts that method+path was handled exactly n times.
func (ts *TodoServer) AssertHandledTimes(t testing.TB, method, path string, n int) {
	t.Helper()

	if got := ts.countRequests(method, path); got != n {
		t.Errorf("expected %s %s to be handled %d times, but was handled %d times",
			method, path, n, got)
	}
}

// AssertNotHandled asserts that method+path was never handled.
func (ts *TodoServer) AssertNotHandled(t testing.TB, method, path string) {
	t.Helper()

	if got := ts.countRequests(method, path); got > 0 {
		t.Errorf("expected %s %s to not be handled, but it was handled %d times",
			method, path, got)
	}
}

func (ts *TodoServer) countRequests(method, path string) int {
	count := 0
	for _, e := range ts.Requests() {
		if e.Method == method && matchesPath(e.Path, path) {
			count++
		}
	}
	return count
}

// matchesPath matches a logged path against a pattern. Segments written as
// {name} match any value, so "/api/todos/{id}" matches "/api/todos/7".
func matchesPath(actual, expected string) bool {
	if actual == expected {
		return true
	}

	actualParts := strings.Split(actual, "/")
	expectedParts := strings.Split(expected, "/")
	if len(actualParts) != len(expectedParts) {
		return false
	}

	for i, exp := range expectedParts {
		if strings.HasPrefix(exp, "{") && strings.HasSuffix(exp, "}") {
			continue
		}
		if exp != actualParts[i] {
			return false
		}
	}
	return true
}

// Interceptor is an in-process harness: an http.Client whose transport
// answers the todo API without any network.
type Interceptor struct {
	// Client routes todo API requests through the interceptor.
	Client *http.Client

	t         testing.TB
	transport *interceptor.Transport
	store     *todo.Store
	logs      *requestlog.Store
}

// Intercept builds an interceptor-backed http.Client. The default delay is
// zero so test suites stay fast; pass WithDelay to exercise loading states.
func Intercept(t testing.TB, opts ...Option) *Interceptor {
	t.Helper()

	o := applyOptions(opts)

	var storeOpts []todo.StoreOption
	if o.seed != nil {
		seed := make([]todo.Todo, len(o.seed))
		for i, s := range o.seed {
			seed[i] = todo.Todo{
				ID:          i + 1,
				Title:       s.title,
				Description: s.description,
				Completed:   s.completed,
			}
		}
		storeOpts = append(storeOpts, todo.WithSeed(seed))
	}
	store := todo.NewStore(storeOpts...)

	logs := requestlog.NewStore(0)
	transportOpts := []interceptor.Option{
		interceptor.WithDelay(o.delay),
		interceptor.WithRequestLog(logs),
	}
	if o.validation == config.ValidationStrict {
		transportOpts = append(transportOpts, interceptor.WithValidator(validation.MustNew(validation.ModeStrict)))
	}
	transport := interceptor.New(store, transportOpts...)

	return &Interceptor{
		Client:    transport.Client(),
		t:         t,
		transport: transport,
		store:     store,
		logs:      logs,
	}
}

// Store exposes the backing todo store.
func (h *Interceptor) Store() *todo.Store {
	return h.store
}

// Transport exposes the interceptor for enable/disable toggling.
func (h *Interceptor) Transport() *interceptor.Transport {
	return h.transport
}

// Requests returns the captured request log, oldest first.
func (h *Interceptor) Requests() []*requestlog.Entry {
	return h.logs.All()
}

// Reset restores the seed state and clears the request log.
func (h *Interceptor) Reset() {
	h.store.Reset()
	h.logs.Clear()
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
