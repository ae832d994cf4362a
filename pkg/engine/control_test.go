package engine

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todomock/todomock/pkg/requestlog"
	"github.com/todomock/todomock/pkg/todo"
)

func newTestControl(t *testing.T) (*ControlHandler, *todo.Store, *requestlog.Store) {
	t.Helper()
	store := todo.NewStore()
	logs := requestlog.NewStore(100)
	return NewControlHandler(store, logs, nil), store, logs
}

func decodeState(t *testing.T, body []byte) stateResponse {
	t.Helper()
	var state stateResponse
	require.NoError(t, json.Unmarshal(body, &state))
	return state
}

func TestControlReset(t *testing.T) {
	control, store, _ := newTestControl(t)
	store.Create(todo.Fields{Title: strPtr("extra")})
	require.Equal(t, 3, store.Count())

	rec := doRequest(control, http.MethodPost, "/__test__/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"State reset"}`, rec.Body.String())
	assert.Equal(t, 2, store.Count())
}

func TestControlGetState(t *testing.T) {
	control, _, _ := newTestControl(t)

	rec := doRequest(control, http.MethodGet, "/__test__/todos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeState(t, rec.Body.Bytes())
	assert.Len(t, state.Todos, 2)
	assert.Equal(t, 3, state.NextID)
	assert.Equal(t, 2, state.Count)
}

func TestControlReplace(t *testing.T) {
	control, store, _ := newTestControl(t)

	rec := doRequest(control, http.MethodPut, "/__test__/todos",
		`[{"id":10,"title":"only one","completed":true}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeState(t, rec.Body.Bytes())
	require.Len(t, state.Todos, 1)
	assert.Equal(t, 10, state.Todos[0].ID)
	assert.Equal(t, 11, state.NextID)

	// The id counter continues past the injected records.
	created := store.Create(todo.Fields{Title: strPtr("after replace")})
	assert.Equal(t, 11, created.ID)
}

func TestControlReplaceEmpty(t *testing.T) {
	control, store, _ := newTestControl(t)

	rec := doRequest(control, http.MethodPut, "/__test__/todos", `[]`)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeState(t, rec.Body.Bytes())
	assert.Empty(t, state.Todos)
	assert.Equal(t, 1, state.NextID)
	assert.Equal(t, 0, store.Count())
}

func TestControlReplaceInvalidBody(t *testing.T) {
	control, _, _ := newTestControl(t)

	rec := doRequest(control, http.MethodPut, "/__test__/todos", `{"not":"a list"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestControlAdd(t *testing.T) {
	control, store, _ := newTestControl(t)

	rec := doRequest(control, http.MethodPost, "/__test__/todos", `{"title":"injected"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var added todo.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	assert.Equal(t, 3, added.ID)
	assert.Equal(t, "injected", added.Title)

	// Add appends; the seed records stay in place.
	todos := store.List()
	require.Len(t, todos, 3)
	assert.Equal(t, "injected", todos[2].Title)
}

func TestControlRequests(t *testing.T) {
	control, _, logs := newTestControl(t)
	logs.Log(&requestlog.Entry{
		Method:   http.MethodGet,
		Path:     "/api/todos",
		Outcome:  requestlog.OutcomeMocked,
		Status:   200,
		Duration: 5 * time.Millisecond,
	})

	rec := doRequest(control, http.MethodGet, "/__test__/requests", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Requests []requestlog.Entry `json:"requests"`
		Count    int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, 1, result.Count)
	assert.Equal(t, "/api/todos", result.Requests[0].Path)

	rec = doRequest(control, http.MethodDelete, "/__test__/requests", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, logs.Count())
}

func TestControlRequestsWithoutLog(t *testing.T) {
	control := NewControlHandler(todo.NewStore(), nil, nil)

	rec := doRequest(control, http.MethodGet, "/__test__/requests", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"requests":[],"count":0}`, rec.Body.String())
}

func TestControlUnknownPathAndMethod(t *testing.T) {
	control, _, _ := newTestControl(t)

	rec := doRequest(control, http.MethodGet, "/__test__/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(control, http.MethodGet, "/__test__/reset", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doRequest(control, http.MethodDelete, "/__test__/todos", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func strPtr(s string) *string { return &s }
