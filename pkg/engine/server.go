// Package engine provides the standalone mock server: the todo API handler
// wired with CORS, artificial latency, request logging, and the test-control
// surface, behind a managed HTTP listener.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/todomock/todomock/pkg/config"
	"github.com/todomock/todomock/pkg/logging"
	"github.com/todomock/todomock/pkg/requestlog"
	"github.com/todomock/todomock/pkg/session"
	"github.com/todomock/todomock/pkg/todo"
	"github.com/todomock/todomock/pkg/validation"
)

// Server is the standalone mock server.
type Server struct {
	cfg        *config.Config
	store      *todo.Store
	mirror     *session.FileStore
	logs       *requestlog.Store
	log        *slog.Logger
	handler    *Handler
	control    *ControlHandler
	httpServer *http.Server
	listener   net.Listener
	mu         sync.RWMutex
	running    bool
	startTime  time.Time
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithLogger sets the operational logger for the server.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// NewServer creates a Server from the given configuration. A nil cfg uses
// the defaults. The error is non-nil only when the session file exists but
// cannot be read.
func NewServer(cfg *config.Config, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		cfg: cfg,
		log: logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	storeOpts := []todo.StoreOption{todo.WithLogger(s.log)}

	if len(cfg.Seed) > 0 {
		seed := make([]todo.Todo, len(cfg.Seed))
		for i, st := range cfg.Seed {
			seed[i] = todo.Todo{
				ID:          i + 1,
				Title:       st.Title,
				Description: st.Description,
				Completed:   st.Completed,
			}
		}
		storeOpts = append(storeOpts, todo.WithSeed(seed))
	}

	if cfg.Session.File != "" {
		mirror := session.NewFileStore(cfg.Session.File,
			session.WithDebounce(cfg.Session.Debounce()))
		if _, _, _, err := mirror.Load(); err != nil {
			return nil, fmt.Errorf("failed to read session file: %w", err)
		}
		s.mirror = mirror
		storeOpts = append(storeOpts, todo.WithMirror(mirror))
	}

	s.store = todo.NewStore(storeOpts...)

	if cfg.Server.LogRequests {
		s.logs = requestlog.NewStore(cfg.Server.MaxLogEntries)
	}

	mode := validation.ModeCompat
	if cfg.Mock.Validation == config.ValidationStrict {
		mode = validation.ModeStrict
	}
	s.handler = NewHandler(s.store,
		WithValidator(validation.MustNew(mode)),
		WithHandlerLogger(s.log),
	)
	s.control = NewControlHandler(s.store, s.logs, s.log)

	return s, nil
}

// buildHandler composes the full middleware stack. The control surface
// bypasses the artificial latency so test harnesses stay fast.
func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(ControlPrefix, s.control)
	mux.Handle("/", NewLatencyMiddleware(s.handler, s.cfg.Mock.Delay()))

	var h http.Handler = NewCORSMiddleware(mux, s.cfg.Server.CORS)
	return LoggingMiddleware(h, s.log, s.logs)
}

// Start binds the listener and begins serving. With Port 0 the OS picks a
// free port; use Port or URL afterwards to find it.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:      s.buildHandler(),
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeout) * time.Second,
	}

	s.log.Info("starting server", "addr", listener.Addr().String())
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("server error", "error", err)
		}
	}()

	s.running = true
	s.startTime = time.Now()
	return nil
}

// Stop gracefully shuts down the server and flushes any pending session
// snapshot.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if s.mirror != nil {
		if err := s.mirror.Close(); err != nil {
			errs = append(errs, fmt.Errorf("session flush: %w", err))
		}
	}

	s.running = false

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the seconds since Start, or 0 when stopped.
func (s *Server) Uptime() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return int(time.Since(s.startTime).Seconds())
}

// Port returns the bound port, or 0 before Start.
func (s *Server) Port() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return 0
	}
	if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// URL returns the base URL of the running server, or "" before Start.
func (s *Server) URL() string {
	port := s.Port()
	if port == 0 {
		return ""
	}
	host := s.cfg.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

// Store returns the todo store backing the server.
func (s *Server) Store() *todo.Store {
	return s.store
}

// RequestLog returns the request log, or nil when logging is disabled.
func (s *Server) RequestLog() *requestlog.Store {
	return s.logs
}

// Handler returns the bare API handler without middleware. Useful for
// in-process tests.
func (s *Server) Handler() *Handler {
	return s.handler
}
