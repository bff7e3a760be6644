package ports

import (
	"errors"
	"fmt"
)

// KeyValueStore is client-side state that survives restarts.
type KeyValueStore interface {
	// Get returns the value and whether it was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Keys used in the client state store.
const (
	KeyAccessToken = "auth.access_token"
	KeyLanguage    = "preferences.language"
)

// ErrNoToken is returned when no access token has been stored.
var ErrNoToken = errors.New("no access token stored")

// TokenStore persists the access token between runs.
type TokenStore struct {
	kv KeyValueStore
}

// NewTokenStore wraps a key-value store.
func NewTokenStore(kv KeyValueStore) *TokenStore {
	return &TokenStore{kv: kv}
}

// Token returns the stored access token or ErrNoToken.
func (s *TokenStore) Token() (string, error) {
	v, ok, err := s.kv.Get(KeyAccessToken)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	if !ok || v == "" {
		return "", ErrNoToken
	}
	return v, nil
}

// SetToken stores the access token.
func (s *TokenStore) SetToken(token string) error {
	return s.kv.Set(KeyAccessToken, token)
}

// Clear removes the stored token.
func (s *TokenStore) Clear() error {
	return s.kv.Delete(KeyAccessToken)
}

// PreferenceStore persists the interface language preference.
type PreferenceStore struct {
	kv       KeyValueStore
	fallback string
}

// NewPreferenceStore wraps a key-value store; fallback is returned when
// no language has been chosen.
func NewPreferenceStore(kv KeyValueStore, fallback string) *PreferenceStore {
	return &PreferenceStore{kv: kv, fallback: fallback}
}

// Language returns the preferred language tag.
func (s *PreferenceStore) Language() (string, error) {
	v, ok, err := s.kv.Get(KeyLanguage)
	if err != nil {
		return "", fmt.Errorf("failed to read language preference: %w", err)
	}
	if !ok || v == "" {
		return s.fallback, nil
	}
	return v, nil
}

// SetLanguage stores the preferred language tag.
func (s *PreferenceStore) SetLanguage(tag string) error {
	return s.kv.Set(KeyLanguage, tag)
}
