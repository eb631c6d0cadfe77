package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openers(t *testing.T) map[string]func() Store {
	dir := t.TempDir()
	return map[string]func() Store{
		"sqlite": func() Store {
			s, err := NewLocalStore(filepath.Join(dir, "cgo", "brd.db"))
			require.NoError(t, err)
			return s
		},
		"sqlite-purego": func() Store {
			s, err := NewLocalStoreWithDriver(filepath.Join(dir, "purego", "brd.db"), sqlDriverPureGo)
			require.NoError(t, err)
			return s
		},
		"memory": func() Store { return NewMemoryStore() },
	}
}

func TestKV_Contract(t *testing.T) {
	for name, open := range openers(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()

			_, ok, err := s.Get(KeyDraft)
			require.NoError(t, err)
			assert.False(t, ok, "absent key reports ok=false")

			require.NoError(t, s.Set(KeyDraft, `{"title":"A"}`))
			v, ok, err := s.Get(KeyDraft)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `{"title":"A"}`, v)

			require.NoError(t, s.Set(KeyDraft, `{"title":"B"}`))
			v, _, _ = s.Get(KeyDraft)
			assert.Equal(t, `{"title":"B"}`, v, "set overwrites")

			require.NoError(t, s.Remove(KeyDraft))
			require.NoError(t, s.Remove(KeyDraft), "removing an absent key is fine")
			_, ok, err = s.Get(KeyDraft)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Close())
			_, _, err = s.Get(KeyTheme)
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, s.Set(KeyTheme, "dark"), ErrClosed)
		})
	}
}

func TestLocalStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "brd.db")

	s, err := NewLocalStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeyTheme, "dark"))
	require.NoError(t, s.Set(KeyUserMode, "guest"))
	require.NoError(t, s.Close())

	s, err = NewLocalStore(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Get(KeyTheme)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{KeyTheme, KeyUserMode}, keys)

	version, err := SchemaVersion(s.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestLocalStore_RequiresPath(t *testing.T) {
	_, err := NewLocalStore("")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	s, err := Open(DriverMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	s.Close()

	s, err = Open(DriverSQLite, filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, s)
	s.Close()

	_, err = Open("bolt", "x")
	assert.Error(t, err)
}

func TestMemoryStore_Keys(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Set("b", "2"))
	require.NoError(t, m.Set("a", "1"))
	keys, err := m.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}
