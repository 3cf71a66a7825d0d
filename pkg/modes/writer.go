package modes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// lockTimeout bounds how long Save waits for a contended file lock.
// Variable so tests can shorten it.
var lockTimeout = 5 * time.Second

// ErrLockTimeout is returned when another process holds a mode file's
// lock past the timeout.
var ErrLockTimeout = errors.New("timed out acquiring mode file lock")

// Save writes a mode to <dir>/<name>.yaml, guarded by a file lock for
// cross-process safety. Restrictions are sanitized before writing so a
// file on disk never carries malformed rule entries.
func Save(dir string, mode Mode) error {
	if mode.Name == "" {
		return fmt.Errorf("mode name must not be empty")
	}
	mode.Restrictions = sanitize(mode.Restrictions)

	data, err := yaml.Marshal(mode)
	if err != nil {
		return fmt.Errorf("marshal mode: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path := filepath.Join(dir, mode.Name+".yaml")

	fl := flock.New(path + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrLockTimeout
		}
		return fmt.Errorf("acquire mode file lock: %w", err)
	}
	if !locked {
		return ErrLockTimeout
	}
	defer fl.Unlock()

	return os.WriteFile(path, data, 0644)
}
