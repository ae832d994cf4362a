package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/todomock/todomock/pkg/logging"
	"github.com/todomock/todomock/pkg/todo"
)

// ErrVersionMismatch is returned when a snapshot file was written by an
// incompatible format version.
var ErrVersionMismatch = errors.New("snapshot format version mismatch")

// FileStore mirrors snapshots to a JSON file. Writes are debounced so a
// burst of mutations costs one disk write; Close flushes whatever is
// pending.
type FileStore struct {
	path     string
	debounce time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	pending *snapshot
	timer   *time.Timer
	closed  bool
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithDebounce overrides the default 100ms write debounce. Zero disables
// debouncing and writes synchronously on every save.
func WithDebounce(d time.Duration) FileStoreOption {
	return func(s *FileStore) {
		s.debounce = d
	}
}

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) FileStoreOption {
	return func(s *FileStore) {
		if log != nil {
			s.log = log
		}
	}
}

// NewFileStore creates a file-backed mirror at path.
func NewFileStore(path string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		path:     path,
		debounce: 100 * time.Millisecond,
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save implements todo.Mirror. The snapshot is staged and flushed to disk
// after the debounce window.
func (s *FileStore) Save(todos []todo.Todo, nextID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("session file store is closed")
	}

	s.pending = &snapshot{
		Version: snapshotVersion,
		Todos:   todos,
		NextID:  nextID,
		SavedAt: time.Now(),
	}

	if s.debounce <= 0 {
		return s.flushLocked()
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		if err := s.Flush(); err != nil {
			s.log.Error("failed to flush session snapshot", "error", err, "path", s.path)
		}
	})
	return nil
}

// Load implements todo.Mirror. A missing file means no snapshot exists yet.
func (s *FileStore) Load() ([]todo.Todo, int, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, false, nil
		}
		return nil, 0, false, fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, 0, false, fmt.Errorf("parse snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, 0, false, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, snap.Version, snapshotVersion)
	}

	return snap.Todos, snap.NextID, true, nil
}

// Flush writes any pending snapshot to disk immediately.
func (s *FileStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// flushLocked writes the pending snapshot. Caller must hold mu.
func (s *FileStore) flushLocked() error {
	if s.pending == nil {
		return nil
	}

	data, err := json.MarshalIndent(s.pending, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	// Write-then-rename so a crash mid-write never leaves a torn file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}

	s.pending = nil
	return nil
}

// Close flushes pending state and stops the debounce timer.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	return s.flushLocked()
}

// Remove deletes the snapshot file, emulating the end of a session.
func (s *FileStore) Remove() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
