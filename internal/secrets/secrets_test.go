package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(filepath.Join(t.TempDir(), "state", "secrets.json"))
}

func TestSetGetDelete(t *testing.T) {
	m := newManager(t)

	require.NoError(t, m.Set("k", "v"))
	v, ok, err := m.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	deleted, err := m.Delete("k")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, ok, err = m.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmptyStore(t *testing.T) {
	m := newManager(t)

	keys, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, ok, err := m.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := m.Delete("missing")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = os.Stat(m.Path())
	assert.True(t, os.IsNotExist(err), "read-only calls must not create the store")
}

func TestListAndOverwrite(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Set("B_KEY", "1"))
	require.NoError(t, m.Set("A_KEY", "2"))
	require.NoError(t, m.Set("B_KEY", "3"))

	keys, err := m.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A_KEY", "B_KEY"}, keys)

	v, _, err := NewManager(m.Path()).Get("B_KEY")
	require.NoError(t, err)
	assert.Equal(t, "3", v)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Set("k", "v"))

	entries, err := os.ReadDir(filepath.Dir(m.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "secrets.json", entries[0].Name())

	data, err := os.ReadFile(m.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"_format": "hatch-secrets-1"`)
}

func TestUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"_format":"other","secrets":{}}`), 0600))

	_, err := NewManager(path).List()
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestValidKey(t *testing.T) {
	for _, k := range []string{"API_KEY", "_x", "a1"} {
		assert.True(t, ValidKey(k), k)
	}
	for _, k := range []string{"", "1abc", "has-dash", "sp ace"} {
		assert.False(t, ValidKey(k), k)
	}
}
