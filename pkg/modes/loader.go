package modes

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// LoadDir scans a directory tree for YAML mode files and returns the
// parsed modes in glob order. Files that fail to parse are skipped with
// a log line rather than failing the whole load — one broken profile
// must not take down the rest. Returns nil, nil when the directory does
// not exist.
func LoadDir(dir string) ([]Mode, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	paths, err := doublestar.FilepathGlob(filepath.Join(dir, "**", "*.{yaml,yml}"))
	if err != nil {
		return nil, fmt.Errorf("glob mode files: %w", err)
	}

	var modes []Mode
	for _, path := range paths {
		mode, err := LoadFile(path)
		if err != nil {
			log.Printf("modes: skipping %s: %v", path, err)
			continue
		}
		modes = append(modes, mode)
	}
	return modes, nil
}

// LoadFile parses a single YAML mode file. A missing name falls back to
// the file name stem. Malformed restriction entries are dropped here so
// the resolver never sees them.
func LoadFile(path string) (Mode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Mode{}, err
	}

	var mode Mode
	if err := yaml.Unmarshal(data, &mode); err != nil {
		return Mode{}, fmt.Errorf("parse mode file: %w", err)
	}

	mode.Name = strings.TrimSpace(mode.Name)
	if mode.Name == "" {
		base := filepath.Base(path)
		mode.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	mode.Restrictions = sanitize(mode.Restrictions)
	return mode, nil
}
