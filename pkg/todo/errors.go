package todo

import (
	"fmt"
	"net/http"
)

// NotFoundError is returned when a todo ID is absent from the store.
// Handlers surface it as a 404 with the backend's exact error envelope,
// never as a transport failure.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("todo %d not found", e.ID)
}

// StatusCode returns the HTTP status code for this error.
func (e *NotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// Message returns the user-visible error string from the real backend.
func (e *NotFoundError) Message() string {
	return NotFoundMessage
}

// StatusCodeError is implemented by errors that map to an HTTP status.
type StatusCodeError interface {
	error
	StatusCode() int
}
