package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/todomock/todomock/pkg/todo"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	m := NewMemoryStore()

	if _, _, ok, _ := m.Load(); ok {
		t.Fatal("fresh memory store should have no snapshot")
	}

	todos := []todo.Todo{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}
	if err := m.Save(todos, 3); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, nextID, ok, err := m.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || nextID != 3 {
		t.Errorf("loaded %d todos, nextID=%d", len(got), nextID)
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	m := NewMemoryStore()
	_ = m.Save([]todo.Todo{{ID: 1}}, 2)

	m.Clear()

	if _, _, ok, _ := m.Load(); ok {
		t.Error("snapshot should be gone after Clear")
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "todos.json")
	fs := NewFileStore(path, WithDebounce(0))

	todos := []todo.Todo{
		{ID: 1, Title: "persisted", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()},
	}
	if err := fs.Save(todos, 2); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// A second store on the same path sees the snapshot.
	fresh := NewFileStore(path)
	got, nextID, ok, err := fresh.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || got[0].Title != "persisted" || nextID != 2 {
		t.Errorf("loaded %+v nextID=%d", got, nextID)
	}
}

func TestFileStore_MissingFileIsNotAnError(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))

	_, _, ok, err := fs.Load()
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if ok {
		t.Error("missing file should report no snapshot")
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	fs := NewFileStore(path)
	_, _, ok, err := fs.Load()
	if err == nil {
		t.Error("corrupt file should error")
	}
	if ok {
		t.Error("corrupt file should not report a snapshot")
	}
}

func TestFileStore_DebouncedFlushOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.json")
	fs := NewFileStore(path, WithDebounce(time.Hour)) // never fires in-test

	if err := fs.Save([]todo.Todo{{ID: 9, Title: "pending"}}, 10); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("debounced save should not have written yet")
	}

	if err := fs.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	got, nextID, ok, err := NewFileStore(path).Load()
	if err != nil || !ok {
		t.Fatalf("load after close: ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || nextID != 10 {
		t.Errorf("loaded %+v nextID=%d", got, nextID)
	}
}

func TestFileStore_SaveAfterCloseFails(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "todos.json"))
	if err := fs.Close(); err != nil {
		t.Fatal(err)
	}
	if err := fs.Save(nil, 1); err == nil {
		t.Error("save after close should fail")
	}
}

func TestFileStore_WithTodoStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.json")

	// First "session": mutate and close.
	fs := NewFileStore(path, WithDebounce(0))
	s := todo.NewStore(todo.WithMirror(fs))
	title := "made in session one"
	created := s.Create(todo.Fields{Title: &title})
	if err := fs.Close(); err != nil {
		t.Fatal(err)
	}

	// Second "session": a new store on the same file rehydrates.
	s2 := todo.NewStore(todo.WithMirror(NewFileStore(path)))
	got, err := s2.Get(created.ID)
	if err != nil {
		t.Fatalf("created todo missing after reload: %v", err)
	}
	if got.Title != title {
		t.Errorf("title = %q, want %q", got.Title, title)
	}

	// The id counter carries over too.
	next := s2.Create(todo.Fields{Title: &title})
	if next.ID <= created.ID {
		t.Errorf("id %d not monotonic across reload (prev %d)", next.ID, created.ID)
	}
}
