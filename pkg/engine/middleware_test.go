package engine

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todomock/todomock/pkg/requestlog"
)

func TestLoggingMiddlewareCapturesRequests(t *testing.T) {
	logs := requestlog.NewStore(10)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, RequestIDFromContext(r.Context()))
		w.WriteHeader(http.StatusCreated)
	})
	h := LoggingMiddleware(inner, nil, logs)

	req := httptest.NewRequest(http.MethodPost, "/api/todos?source=test", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	entries := logs.All()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, http.MethodPost, entry.Method)
	assert.Equal(t, "/api/todos", entry.Path)
	assert.Equal(t, "create_todo", entry.Operation)
	assert.Equal(t, http.StatusCreated, entry.Status)
	assert.NotEmpty(t, entry.ID)
}

func TestLoggingMiddlewareSkipsControlPaths(t *testing.T) {
	logs := requestlog.NewStore(10)
	h := LoggingMiddleware(http.NotFoundHandler(), nil, logs)

	req := httptest.NewRequest(http.MethodPost, "/__test__/reset", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 0, logs.Count())
}

func TestLoggingMiddlewareWithoutLog(t *testing.T) {
	h := LoggingMiddleware(http.NotFoundHandler(), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/todos", nil)
	// Must not panic.
	h.ServeHTTP(httptest.NewRecorder(), req)
}

func TestLatencyMiddlewareDelays(t *testing.T) {
	delay := 30 * time.Millisecond
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	m := NewLatencyMiddleware(inner, delay)

	start := time.Now()
	m.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/todos", nil))
	assert.GreaterOrEqual(t, time.Since(start), delay)
}

func TestLatencyMiddlewareZeroDelay(t *testing.T) {
	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	m := NewLatencyMiddleware(inner, 0)
	m.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}
