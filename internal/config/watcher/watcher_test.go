package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpWrite, "write"},
		{OpCreate, "create"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
		{Operation(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func newWatcher(t *testing.T, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_Watch(t *testing.T) {
	dir := t.TempDir()
	w := newWatcher(t)

	file := filepath.Join(dir, "folio.toml")
	if err := w.Watch(file); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := w.Watch(file); err != nil {
		t.Fatalf("second Watch: %v", err)
	}
	if files := w.WatchedFiles(); len(files) != 1 {
		t.Errorf("WatchedFiles() = %v", files)
	}
	if err := w.Unwatch(file); err != nil {
		t.Fatalf("Unwatch: %v", err)
	}
	if files := w.WatchedFiles(); len(files) != 0 {
		t.Errorf("WatchedFiles() = %v after Unwatch", files)
	}

	if err := w.Watch(filepath.Join(dir, "missing", "x.toml")); err == nil {
		t.Error("watching in a missing directory should fail")
	}
}

func TestWatcher_Lifecycle(t *testing.T) {
	w := newWatcher(t)
	w.Start()
	w.Start()
	if !w.IsRunning() {
		t.Error("watcher should be running")
	}
	w.Stop()
	w.Stop()
	if w.IsRunning() {
		t.Error("watcher should be stopped")
	}
	if err := w.Watch(filepath.Join(t.TempDir(), "a.toml")); err != ErrClosed {
		t.Errorf("Watch after Stop = %v", err)
	}
}

func TestWatcher_DetectsChanges(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "folio.toml")
	other := filepath.Join(dir, "other.toml")

	w := newWatcher(t, WithDebounce(20*time.Millisecond))
	if err := w.Watch(file); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var events []Event
	got := make(chan struct{}, 16)
	w.OnChange(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
		got <- struct{}{}
	})
	w.Start()

	if err := os.WriteFile(other, []byte("x = 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(file, []byte("[undo]\ndepth = 3\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("no event for the watched file")
	}
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	abs, _ := filepath.Abs(file)
	for _, e := range events {
		if e.Path != abs {
			t.Errorf("event for unwatched file %s", e.Path)
		}
	}
	if len(events) != 1 {
		t.Errorf("events = %d, want the burst debounced into 1", len(events))
	}
}
