// Package session persists mock store snapshots so state survives a process
// restart within the same testing session, the way the browser variant kept
// its data in tab-scoped storage across page reloads. Persistence is opt-in:
// a store without a mirror is purely in-memory.
package session

import (
	"sync"
	"time"

	"github.com/todomock/todomock/pkg/todo"
)

// snapshotVersion guards the on-disk format.
const snapshotVersion = 1

// snapshot is the persisted key/value payload: the todo list plus the
// next-id counter.
type snapshot struct {
	Version int         `json:"version"`
	Todos   []todo.Todo `json:"todos"`
	NextID  int         `json:"next_id"`
	SavedAt time.Time   `json:"saved_at"`
}

// MemoryStore is an in-process mirror. It backs tests and acts as the
// session-scoped store when no file path is configured.
type MemoryStore struct {
	mu   sync.Mutex
	snap *snapshot
}

// NewMemoryStore creates an empty in-memory mirror.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements todo.Mirror.
func (s *MemoryStore) Save(todos []todo.Todo, nextID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = &snapshot{
		Version: snapshotVersion,
		Todos:   todos,
		NextID:  nextID,
		SavedAt: time.Now(),
	}
	return nil
}

// Load implements todo.Mirror.
func (s *MemoryStore) Load() ([]todo.Todo, int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, 0, false, nil
	}
	todos := make([]todo.Todo, len(s.snap.Todos))
	copy(todos, s.snap.Todos)
	return todos, s.snap.NextID, true, nil
}

// Clear drops the snapshot, emulating the end of a session.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = nil
}
