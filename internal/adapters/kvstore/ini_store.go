// Package kvstore provides the client-side key-value store backed by an
// INI file, e.g.
//
//	[auth]
//	access_token = ...
//
//	[preferences]
//	language = es
package kvstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/ini.v1"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// INIStore implements ports.KeyValueStore. Keys have the form
// "section.key"; keys without a dot live in the default section.
type INIStore struct {
	mu   sync.Mutex
	path string
}

// NewINIStore creates a store at path. The file is created on first write.
func NewINIStore(path string) *INIStore {
	return &INIStore{path: path}
}

// Path returns the backing file.
func (s *INIStore) Path() string {
	return s.path
}

func splitKey(key string) (section, name string, err error) {
	if key == "" || strings.HasSuffix(key, ".") || strings.HasPrefix(key, ".") {
		return "", "", fmt.Errorf("invalid key %q", key)
	}
	if i := strings.Index(key, "."); i >= 0 {
		return key[:i], key[i+1:], nil
	}
	return ini.DefaultSection, key, nil
}

func (s *INIStore) load() (*ini.File, error) {
	cfg, err := ini.LooseLoad(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return cfg, nil
}

func (s *INIStore) save(cfg *ini.File) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := cfg.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

// Get implements ports.KeyValueStore.
func (s *INIStore) Get(key string) (string, bool, error) {
	section, name, err := splitKey(key)
	if err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.load()
	if err != nil {
		return "", false, err
	}
	sec, err := cfg.GetSection(section)
	if err != nil || !sec.HasKey(name) {
		return "", false, nil //nolint:nilerr // a missing section is a missing key
	}
	return sec.Key(name).String(), true, nil
}

// Set implements ports.KeyValueStore.
func (s *INIStore) Set(key, value string) error {
	section, name, err := splitKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.load()
	if err != nil {
		return err
	}
	cfg.Section(section).Key(name).SetValue(value)
	return s.save(cfg)
}

// Delete implements ports.KeyValueStore. Deleting a missing key is not an
// error.
func (s *INIStore) Delete(key string) error {
	section, name, err := splitKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.load()
	if err != nil {
		return err
	}
	sec, err := cfg.GetSection(section)
	if err != nil || !sec.HasKey(name) {
		return nil //nolint:nilerr // nothing to delete
	}
	sec.DeleteKey(name)
	return s.save(cfg)
}

// Ensure INIStore implements ports.KeyValueStore.
var _ ports.KeyValueStore = (*INIStore)(nil)
