// Package featureflag stores experimental-feature toggles in a small JSON
// file under the supervisor's state directory, the same persisted-flag shape
// the teacher's `docker mcp feature` command uses against the Docker CLI's
// config file (SPEC_FULL §13) — minus the `docker/cli` config-file dependency,
// since this supervisor has no other reason to link it.
package featureflag

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// MultiTransport gates §4.8.3 multi-transport mode: a catalog requesting it
// without the flag enabled falls back to unified mode.
const MultiTransport = "multi-transport"

// Store is a small persisted set of enabled feature names.
type Store struct {
	path     string
	Features map[string]bool
}

// Load reads the flag file at path, treating a missing file as "nothing
// enabled" rather than an error.
func Load(path string) (*Store, error) {
	s := &Store{path: path, Features: make(map[string]bool)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.Features); err != nil {
		return nil, err
	}
	return s, nil
}

// Enabled reports whether name is on.
func (s *Store) Enabled(name string) bool {
	return s.Features[name]
}

// Set enables or disables name and persists the change atomically.
func (s *Store) Set(name string, enabled bool) error {
	if enabled {
		s.Features[name] = true
	} else {
		delete(s.Features, name)
	}
	return s.save()
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.Features, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
