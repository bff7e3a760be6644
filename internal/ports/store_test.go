package ports

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore struct {
	data map[string]string
	err  error
}

func (m *mapStore) Get(key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapStore) Set(key, value string) error {
	m.data[key] = value
	return nil
}

func (m *mapStore) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func TestTokenStore(t *testing.T) {
	t.Parallel()

	kv := &mapStore{data: map[string]string{}}
	tokens := NewTokenStore(kv)

	_, err := tokens.Token()
	require.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, tokens.SetToken("abc"))
	tok, err := tokens.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	require.NoError(t, tokens.Clear())
	_, err = tokens.Token()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestTokenStore_ReadError(t *testing.T) {
	t.Parallel()

	tokens := NewTokenStore(&mapStore{err: errors.New("disk gone")})
	_, err := tokens.Token()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestPreferenceStore(t *testing.T) {
	t.Parallel()

	kv := &mapStore{data: map[string]string{}}
	prefs := NewPreferenceStore(kv, "en")

	lang, err := prefs.Language()
	require.NoError(t, err)
	assert.Equal(t, "en", lang)

	require.NoError(t, prefs.SetLanguage("es"))
	lang, err = prefs.Language()
	require.NoError(t, err)
	assert.Equal(t, "es", lang)
	assert.Equal(t, "es", kv.data[KeyLanguage])
}
