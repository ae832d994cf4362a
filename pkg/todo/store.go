package todo

import (
	"log/slog"
	"sync"
	"time"

	"github.com/todomock/todomock/pkg/logging"
)

// Mirror receives a full snapshot of the store after every mutation and can
// supply a previously persisted snapshot at construction time. It is how the
// session-persistence variant keeps mock state alive across a reload.
type Mirror interface {
	// Save persists the current store contents and id counter.
	Save(todos []Todo, nextID int) error
	// Load returns a persisted snapshot, or ok=false when none exists.
	Load() (todos []Todo, nextID int, ok bool, err error)
}

// Store holds the mock todo collection. Slice order is display order; Create
// inserts at the front so the newest record lists first, matching the real
// backend's ORDER BY created_at DESC.
//
// All operations execute atomically under one mutex. The response a caller
// builds from a returned value reflects store state as of that call, not as
// of when a delayed response is later delivered.
type Store struct {
	mu     sync.Mutex
	todos  []Todo
	nextID int
	seed   []Todo
	mirror Mirror
	now    func() time.Time
	log    *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSeed replaces the default two-record seed.
func WithSeed(seed []Todo) StoreOption {
	return func(s *Store) {
		s.seed = seed
	}
}

// WithMirror attaches a persistence mirror. When the mirror already holds a
// snapshot, the store rehydrates from it instead of seeding.
func WithMirror(m Mirror) StoreOption {
	return func(s *Store) {
		s.mirror = m
	}
}

// WithClock overrides the time source. Tests use it to make updated_at
// progression deterministic.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) StoreOption {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// NewStore creates a store populated from the mirror snapshot if one exists,
// otherwise from the seed records.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		seed: DefaultSeed(),
		now:  time.Now,
		log:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.mirror != nil {
		todos, nextID, ok, err := s.mirror.Load()
		if err != nil {
			s.log.Warn("failed to load persisted mock state, falling back to seed", "error", err)
		} else if ok {
			s.todos = todos
			s.nextID = nextID
			if s.nextID <= maxID(todos) {
				s.nextID = maxID(todos) + 1
			}
			return s
		}
	}

	s.loadSeed()
	return s
}

// loadSeed populates the store from the seed records. Caller must not hold mu.
func (s *Store) loadSeed() {
	now := s.now()
	s.todos = make([]Todo, len(s.seed))
	for i, t := range s.seed {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = t.CreatedAt
		}
		s.todos[i] = t
	}
	s.nextID = maxID(s.todos) + 1
}

func maxID(todos []Todo) int {
	max := 0
	for _, t := range todos {
		if t.ID > max {
			max = t.ID
		}
	}
	return max
}

// List returns a copy of all todos in current display order.
func (s *Store) List() []Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyAll()
}

// Get retrieves a single todo by ID.
func (s *Store) Get(id int) (Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.todos {
		if t.ID == id {
			return t, nil
		}
	}
	return Todo{}, &NotFoundError{ID: id}
}

// Create assigns the next ID, fills defaults for absent fields and inserts
// the record at the front of the display order.
func (s *Store) Create(f Fields) Todo {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t := Todo{
		ID:        s.nextID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if f.Title != nil {
		t.Title = *f.Title
	}
	if f.Description != nil {
		t.Description = *f.Description
	}
	if f.Completed != nil {
		t.Completed = *f.Completed
	}
	s.nextID++

	s.todos = append([]Todo{t}, s.todos...)
	s.syncMirror()
	return t
}

// Update shallow-merges the present fields onto an existing record. ID and
// CreatedAt are never overwritten; UpdatedAt is refreshed.
func (s *Store) Update(id int, f Fields) (Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.todos {
		if s.todos[i].ID != id {
			continue
		}
		if f.Title != nil {
			s.todos[i].Title = *f.Title
		}
		if f.Description != nil {
			s.todos[i].Description = *f.Description
		}
		if f.Completed != nil {
			s.todos[i].Completed = *f.Completed
		}
		s.todos[i].UpdatedAt = s.now()
		s.syncMirror()
		return s.todos[i], nil
	}
	return Todo{}, &NotFoundError{ID: id}
}

// Delete removes a record from the display order.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.todos {
		if s.todos[i].ID == id {
			s.todos = append(s.todos[:i], s.todos[i+1:]...)
			s.syncMirror()
			return nil
		}
	}
	return &NotFoundError{ID: id}
}

// Count returns the number of stored todos.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.todos)
}

// NextID returns the ID the next created todo will receive.
func (s *Store) NextID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextID
}

// Snapshot returns a consistent copy of the full state: the todos plus the
// id counter, taken under one lock. Part of the test-control surface.
func (s *Store) Snapshot() ([]Todo, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyAll(), s.nextID
}

// Reset restores the seed state. Part of the test-control surface.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadSeed()
	s.syncMirror()
}

// Replace swaps in test-supplied records wholesale. The id counter becomes
// one greater than the maximum supplied ID, or 1 for an empty slice.
// Part of the test-control surface.
func (s *Store) Replace(todos []Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.todos = make([]Todo, len(todos))
	for i, t := range todos {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = t.CreatedAt
		}
		s.todos[i] = t
	}
	s.nextID = maxID(s.todos) + 1
	s.syncMirror()
}

// Add appends one record at the end of the display order with the same
// default-filling rules as Create. Part of the test-control surface.
func (s *Store) Add(t Todo) Todo {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t.ID = s.nextID
	s.nextID++
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	s.todos = append(s.todos, t)
	s.syncMirror()
	return t
}

// copyAll returns a copy of the todo slice. Caller must hold mu.
func (s *Store) copyAll() []Todo {
	out := make([]Todo, len(s.todos))
	copy(out, s.todos)
	return out
}

// syncMirror pushes the current state to the persistence mirror, if any.
// Caller must hold mu. Mirror failures are logged, not surfaced: persistence
// is best effort and must never break a mocked response.
func (s *Store) syncMirror() {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Save(s.copyAll(), s.nextID); err != nil {
		s.log.Warn("failed to persist mock state", "error", err)
	}
}
