// Package requestlog captures the requests the mock answered or passed
// through, for inspection by test harnesses. It is distinct from operational
// logging (log/slog): entries here are user-facing test evidence, the Go
// counterpart of the network capture the browser harness collected.
//
// This is a leaf package so any component can import it without cycles.
package requestlog

import (
	"sync"
	"time"
)

// Outcome classifies how the interceptor handled a request.
type Outcome string

// Outcomes.
const (
	// OutcomeMocked means the request matched a route and was answered
	// from the store.
	OutcomeMocked Outcome = "mocked"
	// OutcomePassthrough means the request did not match and was delegated
	// to the real transport.
	OutcomePassthrough Outcome = "passthrough"
)

// Entry is one captured request/response pair.
type Entry struct {
	// ID is a unique identifier for the entry.
	ID string `json:"id"`

	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp"`

	// Method is the HTTP method.
	Method string `json:"method"`

	// Path is the request path after origin stripping.
	Path string `json:"path"`

	// Operation is the matched route operation name, empty on passthrough.
	Operation string `json:"operation,omitempty"`

	// Outcome says whether the request was mocked or passed through.
	Outcome Outcome `json:"outcome"`

	// Status is the response status code (0 for passthrough failures).
	Status int `json:"status"`

	// Duration is the total handling time including the artificial delay.
	Duration time.Duration `json:"duration"`
}

// Store keeps entries in a fixed-capacity ring: when full, the oldest entry
// is evicted first.
type Store struct {
	mu      sync.RWMutex
	entries []*Entry
	max     int
	nextID  int64
}

// NewStore creates a store holding at most max entries (default 1000).
func NewStore(max int) *Store {
	if max <= 0 {
		max = 1000
	}
	return &Store{
		entries: make([]*Entry, 0, max),
		max:     max,
	}
}

// Log records an entry, assigning an ID and timestamp when absent.
func (s *Store) Log(entry *Entry) {
	if entry == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		s.nextID++
		entry.ID = formatID(s.nextID)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	if len(s.entries) >= s.max {
		s.entries = s.entries[1:]
	}
	s.entries = append(s.entries, entry)
}

// All returns a copy of the entries, oldest first.
func (s *Store) All() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Count returns the number of stored entries.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.entries[:0]
}

func formatID(n int64) string {
	// Zero-padded so lexical order matches insertion order.
	const digits = "0123456789"
	buf := [12]byte{'r', 'e', 'q', '-', '0', '0', '0', '0', '0', '0', '0', '0'}
	for i := len(buf) - 1; i >= 4 && n > 0; i-- {
		buf[i] = digits[n%10]
		n /= 10
	}
	return string(buf[:])
}
