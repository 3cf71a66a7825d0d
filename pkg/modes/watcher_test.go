package modes

import (
	"context"
	"os"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_PicksUpNewModeFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore()

	watcher := NewWatcher(store, dir)
	watcher.debounce = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer watcher.Stop()

	// Give the watcher time to register
	time.Sleep(200 * time.Millisecond)

	writeMode(t, dir, "reviewer.yaml", "name: reviewer\n")

	if !waitFor(t, 3*time.Second, func() bool {
		_, ok := store.Get("reviewer")
		return ok
	}) {
		t.Error("expected mode 'reviewer' to load after file creation")
	}
}

func TestWatcher_PicksUpChangeInNestedDirectory(t *testing.T) {
	dir := t.TempDir()
	// The nested directory exists before the watcher starts, so it must
	// be registered by the startup walk, not by a create event.
	writeMode(t, dir, "team/review/old.yaml", "name: old\n")

	store := NewStore()
	watcher := NewWatcher(store, dir)
	watcher.debounce = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer watcher.Stop()

	time.Sleep(200 * time.Millisecond)

	writeMode(t, dir, "team/review/deep.yaml", "name: deep\n")

	if !waitFor(t, 3*time.Second, func() bool {
		_, ok := store.Get("deep")
		return ok
	}) {
		t.Error("expected mode 'deep' to load after a change two levels down")
	}
}

func TestWatcher_RemovalDropsMode(t *testing.T) {
	dir := t.TempDir()
	path := writeMode(t, dir, "temp.yaml", "name: temp\n")

	store := NewStore()
	modes, err := LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	store.Replace(modes)
	if _, ok := store.Get("temp"); !ok {
		t.Fatal("precondition: mode should be loaded")
	}

	watcher := NewWatcher(store, dir)
	watcher.debounce = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer watcher.Stop()

	time.Sleep(200 * time.Millisecond)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, 3*time.Second, func() bool {
		_, ok := store.Get("temp")
		return !ok
	}) {
		t.Error("expected mode 'temp' to drop after file removal")
	}
}
