// Package engine serves the mocked todo API contract over HTTP.
//
// Handler implements the REST surface itself and is shared by two front
// ends: Server exposes it on a real listener for integration-style tests,
// and the interceptor transport drives it in-process for unit-style tests.
package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/todomock/todomock/internal/routing"
	"github.com/todomock/todomock/pkg/httputil"
	"github.com/todomock/todomock/pkg/logging"
	"github.com/todomock/todomock/pkg/todo"
	"github.com/todomock/todomock/pkg/validation"
)

// Version is the service version reported by the root endpoint.
const Version = "1.0.0"

// Handler serves the todo API routes from a Store. Requests outside the
// route table get a plain 404; deciding what to do with those (fall through
// to a real transport, serve the control surface) is the caller's concern.
type Handler struct {
	store     *todo.Store
	validator *validation.Validator
	log       *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithValidator sets the payload validator. Defaults to compat mode.
func WithValidator(v *validation.Validator) HandlerOption {
	return func(h *Handler) {
		if v != nil {
			h.validator = v
		}
	}
}

// WithHandlerLogger sets the operational logger.
func WithHandlerLogger(log *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// NewHandler creates a Handler over the given store.
func NewHandler(store *todo.Store, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:     store,
		validator: validation.MustNew(validation.ModeCompat),
		log:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Store returns the underlying todo store.
func (h *Handler) Store() *todo.Store {
	return h.store
}

// ServeHTTP implements http.Handler. Any panic while building a response is
// recovered into the backend's 500 error envelope so no fault ever escapes
// into calling code.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.log.Error("panic while handling mocked request",
				"method", r.Method, "path", r.URL.Path, "panic", rec)
			httputil.WriteInternalError(w, fmt.Sprint(rec))
		}
	}()

	m, ok := routing.Resolve(r.Method, r.URL.String())
	if !ok {
		if r.Method == http.MethodGet && routing.NormalizePath(r.URL.String()) == "/" {
			h.handleRoot(w)
			return
		}
		httputil.WriteNotFound(w, "Not found")
		return
	}

	switch m.Op {
	case routing.OpListTodos:
		h.handleList(w)
	case routing.OpCreateTodo:
		h.handleCreate(w, r)
	case routing.OpGetTodo:
		h.handleGet(w, m.ID)
	case routing.OpUpdateTodo:
		h.handleUpdate(w, r, m.ID)
	case routing.OpDeleteTodo:
		h.handleDelete(w, m.ID)
	case routing.OpHealth:
		h.handleHealth(w)
	default:
		httputil.WriteNotFound(w, "Not found")
	}
}

func (h *Handler) handleList(w http.ResponseWriter) {
	httputil.WriteOK(w, h.store.List())
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	raw, fields, err := decodeFields(r.Body)
	if err != nil {
		// The real backend turns an unparseable body into its catch-all 500.
		httputil.WriteInternalError(w, err.Error())
		return
	}

	if verr := h.validator.ValidateCreate(raw); verr != nil {
		httputil.WriteError(w, verr.Status, verr.Message)
		return
	}

	created := h.store.Create(fields)
	httputil.WriteCreated(w, created)
}

func (h *Handler) handleGet(w http.ResponseWriter, id int) {
	t, err := h.store.Get(id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteOK(w, t)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, id int) {
	raw, fields, err := decodeFields(r.Body)
	if err != nil {
		httputil.WriteInternalError(w, err.Error())
		return
	}

	if verr := h.validator.ValidateUpdate(raw); verr != nil {
		httputil.WriteError(w, verr.Status, verr.Message)
		return
	}

	updated, err := h.store.Update(id, fields)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteOK(w, updated)
}

func (h *Handler) handleDelete(w http.ResponseWriter, id int) {
	if err := h.store.Delete(id); err != nil {
		h.writeStoreError(w, err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, todo.DeletedMessage)
}

func (h *Handler) handleHealth(w http.ResponseWriter) {
	httputil.WriteOK(w, map[string]string{
		"status":   "healthy",
		"database": "mocked",
	})
}

// handleRoot mirrors the real backend's service-info endpoint.
func (h *Handler) handleRoot(w http.ResponseWriter) {
	httputil.WriteOK(w, map[string]any{
		"message": "Todo List API",
		"version": Version,
		"endpoints": map[string]string{
			"GET /health":           "Health check",
			"GET /api/todos":        "Get all todos",
			"GET /api/todos/:id":    "Get a specific todo",
			"POST /api/todos":       "Create a new todo",
			"PUT /api/todos/:id":    "Update a todo",
			"DELETE /api/todos/:id": "Delete a todo",
		},
	})
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	if nf, ok := err.(*todo.NotFoundError); ok {
		httputil.WriteError(w, nf.StatusCode(), nf.Message())
		return
	}
	httputil.WriteInternalError(w, err.Error())
}

// decodeFields reads the request body once and decodes it both as a raw map
// (for validation) and as typed fields (for the store merge). An empty body
// is a valid absent payload.
func decodeFields(body io.Reader) (map[string]any, todo.Fields, error) {
	var fields todo.Fields

	if body == nil {
		return nil, fields, nil
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fields, fmt.Errorf("read request body: %w", err)
	}
	if len(data) == 0 {
		return nil, fields, nil
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fields, fmt.Errorf("invalid JSON in request body: %w", err)
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fields, fmt.Errorf("invalid todo payload: %w", err)
	}
	return raw, fields, nil
}
