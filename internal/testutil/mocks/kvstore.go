package mocks

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// KeyValueStore is an in-memory ports.KeyValueStore.
type KeyValueStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewKeyValueStore creates an empty KeyValueStore.
func NewKeyValueStore() *KeyValueStore {
	return &KeyValueStore{values: make(map[string]string)}
}

// Get implements ports.KeyValueStore.
func (m *KeyValueStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements ports.KeyValueStore.
func (m *KeyValueStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Delete implements ports.KeyValueStore.
func (m *KeyValueStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// ProfileService is a thread-safe test double for ports.ProfileService.
type ProfileService struct {
	recorder
}

// NewProfileService creates a ProfileService mock.
func NewProfileService() *ProfileService {
	return &ProfileService{}
}

// UpdateProfile implements ports.ProfileService by echoing the update.
func (m *ProfileService) UpdateProfile(_ context.Context, update ports.ProfileUpdate) (*ports.User, error) {
	if err := m.record("UpdateProfile", update); err != nil {
		return nil, err
	}
	return &ports.User{FirstName: update.FirstName, LastName: update.LastName, Language: update.Language}, nil
}

// Ensure the mocks implement their ports.
var (
	_ ports.KeyValueStore  = (*KeyValueStore)(nil)
	_ ports.ProfileService = (*ProfileService)(nil)
)
