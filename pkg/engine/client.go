package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/todomock/todomock/pkg/requestlog"
	"github.com/todomock/todomock/pkg/todo"
)

// ErrNotFound is returned when the server reports a missing todo.
var ErrNotFound = errors.New("todo not found")

// Client is a typed HTTP client for the todo API and its test-control
// surface. It works against both the standalone server and any base URL
// served by an interceptor-backed http.Client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientTimeout sets the HTTP timeout.
func WithClientTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying http.Client, for example with one
// whose transport is an interceptor.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks the health endpoint.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.get(ctx, "/health")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// ListTodos returns all todos in display order.
func (c *Client) ListTodos(ctx context.Context) ([]todo.Todo, error) {
	resp, err := c.get(ctx, "/api/todos")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var todos []todo.Todo
	if err := json.NewDecoder(resp.Body).Decode(&todos); err != nil {
		return nil, fmt.Errorf("failed to decode todos: %w", err)
	}
	return todos, nil
}

// GetTodo returns a single todo by ID.
func (c *Client) GetTodo(ctx context.Context, id int) (*todo.Todo, error) {
	resp, err := c.get(ctx, "/api/todos/"+strconv.Itoa(id))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var t todo.Todo
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode todo: %w", err)
	}
	return &t, nil
}

// CreateTodo creates a todo. Only fields set on f are sent.
func (c *Client) CreateTodo(ctx context.Context, f todo.Fields) (*todo.Todo, error) {
	resp, err := c.post(ctx, "/api/todos", fieldsBody(f))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var t todo.Todo
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode todo: %w", err)
	}
	return &t, nil
}

// UpdateTodo applies a partial update to a todo.
func (c *Client) UpdateTodo(ctx context.Context, id int, f todo.Fields) (*todo.Todo, error) {
	resp, err := c.put(ctx, "/api/todos/"+strconv.Itoa(id), fieldsBody(f))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var t todo.Todo
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode todo: %w", err)
	}
	return &t, nil
}

// DeleteTodo deletes a todo by ID.
func (c *Client) DeleteTodo(ctx context.Context, id int) error {
	resp, err := c.delete(ctx, "/api/todos/"+strconv.Itoa(id))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}
	return nil
}

// Reset restores the seed state via the control surface.
func (c *Client) Reset(ctx context.Context) error {
	resp, err := c.post(ctx, "/__test__/reset", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}
	return nil
}

// State is the control-surface dump of current store contents.
type State struct {
	Todos  []todo.Todo `json:"todos"`
	NextID int         `json:"next_id"`
	Count  int         `json:"count"`
}

// GetState dumps the current store contents via the control surface.
func (c *Client) GetState(ctx context.Context) (*State, error) {
	resp, err := c.get(ctx, "/__test__/todos")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var state State
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &state, nil
}

// SetTodos replaces the store contents via the control surface.
func (c *Client) SetTodos(ctx context.Context, todos []todo.Todo) (*State, error) {
	resp, err := c.put(ctx, "/__test__/todos", todos)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var state State
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &state, nil
}

// AddTodo appends one todo via the control surface, keeping existing records.
func (c *Client) AddTodo(ctx context.Context, t todo.Todo) (*todo.Todo, error) {
	resp, err := c.post(ctx, "/__test__/todos", t)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var added todo.Todo
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return nil, fmt.Errorf("failed to decode todo: %w", err)
	}
	return &added, nil
}

// ListRequests returns the captured request log.
func (c *Client) ListRequests(ctx context.Context) ([]*requestlog.Entry, error) {
	resp, err := c.get(ctx, "/__test__/requests")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result struct {
		Requests []*requestlog.Entry `json:"requests"`
		Count    int                 `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode requests: %w", err)
	}
	return result.Requests, nil
}

// ClearRequests clears the captured request log.
func (c *Client) ClearRequests(ctx context.Context) error {
	resp, err := c.delete(ctx, "/__test__/requests")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}
	return nil
}

// fieldsBody converts Fields into the wire shape, omitting unset fields so
// the server sees the same partial bodies a frontend would send.
func fieldsBody(f todo.Fields) map[string]any {
	body := map[string]any{}
	if f.Title != nil {
		body["title"] = *f.Title
	}
	if f.Description != nil {
		body["description"] = *f.Description
	}
	if f.Completed != nil {
		body["completed"] = *f.Completed
	}
	return body
}

// HTTP helpers

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

func (c *Client) put(ctx context.Context, path string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

func (c *Client) delete(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return fmt.Errorf("%s (status %d)", errResp.Error, resp.StatusCode)
	}
	return fmt.Errorf("request failed: status %d", resp.StatusCode)
}
