package interceptor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todomock/todomock/pkg/requestlog"
	"github.com/todomock/todomock/pkg/todo"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// stubFallback records whether it was hit and answers 418.
func stubFallback(hit *bool) http.RoundTripper {
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		*hit = true
		return &http.Response{
			Status:     "418 I'm a teapot",
			StatusCode: http.StatusTeapot,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader("real network")),
			Request:    req,
		}, nil
	})
}

func newTestTransport(t *testing.T, opts ...Option) *Transport {
	t.Helper()
	opts = append([]Option{WithDelay(0)}, opts...)
	return New(todo.NewStore(), opts...)
}

func TestTransportMocksMatchedRoutes(t *testing.T) {
	tr := newTestTransport(t)
	client := tr.Client()

	resp, err := client.Get("http://backend.example/api/todos")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "200 OK", resp.Status)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var todos []todo.Todo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&todos))
	assert.Len(t, todos, 2)
}

func TestTransportCreateRoundTrip(t *testing.T) {
	tr := newTestTransport(t)
	client := tr.Client()

	resp, err := client.Post("http://backend.example/api/todos",
		"application/json", strings.NewReader(`{"title":"from client"}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created todo.Todo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, 3, created.ID)
	assert.Equal(t, "from client", created.Title)

	// The mutation is visible through the shared store.
	assert.Equal(t, 3, tr.Store().Count())
}

func TestTransportPassthroughUnmatched(t *testing.T) {
	hit := false
	tr := newTestTransport(t, WithFallback(stubFallback(&hit)))
	client := tr.Client()

	tests := []string{
		"http://backend.example/api/users",
		"http://backend.example/",
		"http://backend.example/api/todos/not-a-number",
	}
	for _, url := range tests {
		hit = false
		resp, err := client.Get(url)
		require.NoError(t, err, url)
		_ = resp.Body.Close()
		assert.True(t, hit, "expected passthrough for %s", url)
		assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	}
}

func TestTransportDisabled(t *testing.T) {
	hit := false
	tr := newTestTransport(t, WithFallback(stubFallback(&hit)))
	tr.SetEnabled(false)
	require.False(t, tr.Enabled())

	resp, err := tr.Client().Get("http://backend.example/api/todos")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.True(t, hit, "disabled transport should pass matched routes through")

	hit = false
	tr.SetEnabled(true)
	resp, err = tr.Client().Get("http://backend.example/api/todos")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.False(t, hit)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTransportDelay(t *testing.T) {
	delay := 40 * time.Millisecond
	tr := New(todo.NewStore(), WithDelay(delay))

	start := time.Now()
	resp, err := tr.Client().Get("http://backend.example/health")
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.GreaterOrEqual(t, time.Since(start), delay)
}

func TestTransportSnapshotBeforeDelay(t *testing.T) {
	// The response must reflect store state when the request was made, not
	// when the delay elapsed.
	tr := New(todo.NewStore(), WithDelay(150*time.Millisecond))
	client := tr.Client()

	type result struct {
		todos []todo.Todo
		err   error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := client.Get("http://backend.example/api/todos")
		if err != nil {
			done <- result{err: err}
			return
		}
		defer func() { _ = resp.Body.Close() }()
		var todos []todo.Todo
		err = json.NewDecoder(resp.Body).Decode(&todos)
		done <- result{todos: todos, err: err}
	}()

	// Mutate while the response is being held back.
	time.Sleep(50 * time.Millisecond)
	title := "late arrival"
	tr.Store().Create(todo.Fields{Title: &title})

	res := <-done
	require.NoError(t, res.err)
	assert.Len(t, res.todos, 2, "response should not include the mutation made during the delay")

	// A fresh request sees the new record.
	resp, err := client.Get("http://backend.example/api/todos")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var todos []todo.Todo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&todos))
	assert.Len(t, todos, 3)
}

func TestTransportContextCancellation(t *testing.T) {
	tr := New(todo.NewStore(), WithDelay(5*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://backend.example/api/todos", nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = tr.RoundTrip(req)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "cancellation should cut the delay short")
}

func TestTransportRequestLog(t *testing.T) {
	logs := requestlog.NewStore(10)
	hit := false
	tr := newTestTransport(t, WithRequestLog(logs), WithFallback(stubFallback(&hit)))
	client := tr.Client()

	resp, err := client.Get("http://backend.example/api/todos")
	require.NoError(t, err)
	_ = resp.Body.Close()

	resp, err = client.Get("http://backend.example/api/users")
	require.NoError(t, err)
	_ = resp.Body.Close()

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, requestlog.OutcomeMocked, entries[0].Outcome)
	assert.Equal(t, "list_todos", entries[0].Operation)
	assert.Equal(t, "/api/todos", entries[0].Path)
	assert.Equal(t, http.StatusOK, entries[0].Status)

	assert.Equal(t, requestlog.OutcomePassthrough, entries[1].Outcome)
	assert.Empty(t, entries[1].Operation)
	assert.Equal(t, "/api/users", entries[1].Path)
	assert.Equal(t, http.StatusTeapot, entries[1].Status)
}

func TestTransportErrorResponses(t *testing.T) {
	tr := newTestTransport(t)
	client := tr.Client()

	resp, err := client.Get("http://backend.example/api/todos/999")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"Todo not found"}`, string(body))
}
