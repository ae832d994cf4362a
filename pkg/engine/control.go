package engine

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/todomock/todomock/pkg/httputil"
	"github.com/todomock/todomock/pkg/requestlog"
	"github.com/todomock/todomock/pkg/todo"
)

// ControlPrefix is the path prefix reserved for the test-control surface.
// Requests under this prefix never reach the todo API handler.
const ControlPrefix = "/__test__/"

// ControlHandler exposes store and request-log manipulation over HTTP so
// test suites can reset or inspect state between cases.
//
//	POST   /__test__/reset      reseed the store
//	GET    /__test__/todos      dump current todos and the next ID
//	PUT    /__test__/todos      replace all todos
//	POST   /__test__/todos      append a single todo
//	GET    /__test__/requests   list recorded requests
//	DELETE /__test__/requests   clear recorded requests
type ControlHandler struct {
	store *todo.Store
	logs  *requestlog.Store
	log   *slog.Logger
}

// NewControlHandler creates a control handler for the given store. The
// request log is optional; without one the /__test__/requests endpoints
// report an empty log.
func NewControlHandler(store *todo.Store, logs *requestlog.Store, log *slog.Logger) *ControlHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ControlHandler{store: store, logs: logs, log: log}
}

// stateResponse is the body returned by GET /__test__/todos.
type stateResponse struct {
	Todos  []todo.Todo `json:"todos"`
	NextID int         `json:"next_id"`
	Count  int         `json:"count"`
}

func (c *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, ControlPrefix)
	switch rest {
	case "reset":
		if r.Method != http.MethodPost {
			c.methodNotAllowed(w, r)
			return
		}
		c.handleReset(w, r)
	case "todos":
		switch r.Method {
		case http.MethodGet:
			c.handleState(w, r)
		case http.MethodPut:
			c.handleReplace(w, r)
		case http.MethodPost:
			c.handleAdd(w, r)
		default:
			c.methodNotAllowed(w, r)
		}
	case "requests":
		switch r.Method {
		case http.MethodGet:
			c.handleRequests(w, r)
		case http.MethodDelete:
			c.handleClearRequests(w, r)
		default:
			c.methodNotAllowed(w, r)
		}
	default:
		httputil.WriteNotFound(w, "Not found")
	}
}

func (c *ControlHandler) handleReset(w http.ResponseWriter, _ *http.Request) {
	c.store.Reset()
	c.log.Info("store reset via control API")
	httputil.WriteMessage(w, http.StatusOK, "State reset")
}

func (c *ControlHandler) handleState(w http.ResponseWriter, _ *http.Request) {
	todos, nextID := c.store.Snapshot()
	httputil.WriteOK(w, stateResponse{
		Todos:  todos,
		NextID: nextID,
		Count:  len(todos),
	})
}

func (c *ControlHandler) handleReplace(w http.ResponseWriter, r *http.Request) {
	var todos []todo.Todo
	if err := json.NewDecoder(r.Body).Decode(&todos); err != nil {
		httputil.WriteBadRequest(w, "Invalid JSON body")
		return
	}
	c.store.Replace(todos)
	c.log.Info("store replaced via control API", "count", len(todos))
	current, nextID := c.store.Snapshot()
	httputil.WriteOK(w, stateResponse{
		Todos:  current,
		NextID: nextID,
		Count:  len(current),
	})
}

func (c *ControlHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var t todo.Todo
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		httputil.WriteBadRequest(w, "Invalid JSON body")
		return
	}
	added := c.store.Add(t)
	httputil.WriteCreated(w, added)
}

func (c *ControlHandler) handleRequests(w http.ResponseWriter, _ *http.Request) {
	entries := []*requestlog.Entry{}
	if c.logs != nil {
		entries = c.logs.All()
	}
	httputil.WriteOK(w, map[string]any{
		"requests": entries,
		"count":    len(entries),
	})
}

func (c *ControlHandler) handleClearRequests(w http.ResponseWriter, _ *http.Request) {
	if c.logs != nil {
		c.logs.Clear()
	}
	httputil.WriteMessage(w, http.StatusOK, "Request log cleared")
}

func (c *ControlHandler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	c.log.Debug("control API method not allowed", "method", r.Method, "path", r.URL.Path)
}
