// Package todo implements the in-memory todo store behind the mock API.
//
// The store mirrors the real backend's data model exactly: integer IDs
// assigned monotonically, snake_case JSON fields, RFC 3339 timestamps.
// It is the single owner of mock state; the interceptor transport, the
// HTTP engine and the test-control surface all operate on the same Store.
package todo

import "time"

// Todo is the sole entity of the mocked API. Its JSON shape is
// bit-compatible with the real backend's responses.
type Todo struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Fields is a partial todo payload as sent by clients on create and update.
// Nil pointers mean "field absent", which matters for update merges: only
// present fields overwrite the stored record.
type Fields struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

// HasAny reports whether at least one field is present.
func (f Fields) HasAny() bool {
	return f.Title != nil || f.Description != nil || f.Completed != nil
}

// NotFoundMessage is the error message the real backend returns for a
// missing todo. The mock must reproduce it verbatim.
const NotFoundMessage = "Todo not found"

// DeletedMessage is the confirmation message returned after a delete.
const DeletedMessage = "Todo deleted successfully"

// DefaultSeed returns the two records every fresh store starts with.
// Timestamps are assigned at store construction.
func DefaultSeed() []Todo {
	return []Todo{
		{ID: 1, Title: "Welcome to the todo app", Description: "This item comes from the mock store"},
		{ID: 2, Title: "Try completing a todo", Description: "Click the checkbox to mark this done"},
	}
}
