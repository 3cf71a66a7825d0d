package modes

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jg-phare/modegate/pkg/restriction"
)

// Store is a thread-safe registry of modes plus the currently active
// one. Restriction sets are stored in normalized form, so an empty set
// and an absent set are indistinguishable to readers.
type Store struct {
	mu     sync.RWMutex
	modes  map[string]*Mode
	active string
}

// NewStore creates an empty mode store.
func NewStore() *Store {
	return &Store{modes: make(map[string]*Mode)}
}

// Set adds or replaces a mode. The mode's restrictions are sanitized
// and normalized before storing.
func (s *Store) Set(mode Mode) error {
	if mode.Name == "" {
		return fmt.Errorf("mode name must not be empty")
	}
	mode.Restrictions = sanitize(mode.Restrictions)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes[mode.Name] = &mode
	return nil
}

// SetRestrictions replaces the restriction set of an existing mode.
func (s *Store) SetRestrictions(name string, rs *restriction.RestrictionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode, ok := s.modes[name]
	if !ok {
		return fmt.Errorf("unknown mode: %q", name)
	}
	mode.Restrictions = sanitize(rs)
	return nil
}

// Get returns a copy of the named mode.
func (s *Store) Get(name string) (Mode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mode, ok := s.modes[name]
	if !ok {
		return Mode{}, false
	}
	return *mode, true
}

// Delete removes a mode. Deleting the active mode leaves no mode active.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.modes, name)
	if s.active == name {
		s.active = ""
	}
}

// Names returns all mode names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.modes))
	for name := range s.modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetActive switches the active mode.
func (s *Store) SetActive(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.modes[name]; !ok {
		return fmt.Errorf("unknown mode: %q", name)
	}
	s.active = name
	return nil
}

// Active returns a copy of the active mode, if one is set.
func (s *Store) Active() (Mode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mode, ok := s.modes[s.active]
	if !ok {
		return Mode{}, false
	}
	return *mode, true
}

// ActiveRestrictions returns the active mode's restriction set. Nil
// when no mode is active or the active mode has no restrictions —
// either way the resolver falls back to server defaults.
func (s *Store) ActiveRestrictions() *restriction.RestrictionSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mode, ok := s.modes[s.active]
	if !ok {
		return nil
	}
	return mode.Restrictions
}

// Replace swaps the full mode set, keeping the active selection when
// the active mode still exists. Used by the directory watcher on
// reload.
func (s *Store) Replace(modes []Mode) {
	next := make(map[string]*Mode, len(modes))
	for i := range modes {
		mode := modes[i]
		if mode.Name == "" {
			continue
		}
		mode.Restrictions = sanitize(mode.Restrictions)
		next[mode.Name] = &mode
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes = next
	if _, ok := next[s.active]; !ok {
		s.active = ""
	}
}
