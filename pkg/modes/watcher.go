package modes

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a mode directory into a Store when its files change.
// Reloads are debounced and replace the full mode set, so a half-edited
// file is only ever picked up once it parses.
type Watcher struct {
	store    *Store
	dir      string
	debounce time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewWatcher creates a Watcher for the given directory.
func NewWatcher(store *Store, dir string) *Watcher {
	return &Watcher{
		store:    store,
		dir:      dir,
		debounce: 500 * time.Millisecond,
	}
}

// Start begins watching. Stop or cancel the context to stop.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	if err := w.addDirAndChildren(watcher); err != nil {
		// Directory might not exist yet; watch is still useful once
		// the caller creates it and restarts.
		log.Printf("mode watcher: skipping %s: %v", w.dir, err)
	}

	go w.run(ctx, watcher)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

// addDirAndChildren registers the full directory tree, matching the
// recursive glob LoadDir uses — a mode file at any depth must trigger
// reloads, not just load at startup.
func (w *Watcher) addDirAndChildren(watcher *fsnotify.Watcher) error {
	if _, err := os.Stat(w.dir); err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		return err
	}

	return filepath.WalkDir(w.dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || !entry.IsDir() || path == w.dir {
			return nil
		}
		_ = watcher.Add(path)
		return nil
	})
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if !isModeFile(event.Name) && !isDir(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			// New subdirectories need watching too.
			if event.Op&fsnotify.Create != 0 && isDir(event.Name) {
				_ = watcher.Add(event.Name)
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("mode watcher error: %v", err)
		}
	}
}

// reload rereads the full directory and swaps the store contents.
func (w *Watcher) reload() {
	modes, err := LoadDir(w.dir)
	if err != nil {
		log.Printf("mode watcher: reload failed: %v", err)
		return
	}
	w.store.Replace(modes)
}

func isModeFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
