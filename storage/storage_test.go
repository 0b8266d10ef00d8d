package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemory() },
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "storage.db"))
			require.NoError(t, err)
			return s
		},
		"sqlite-memory": func(t *testing.T) Store {
			s, err := OpenSQLite(":memory:")
			require.NoError(t, err)
			return s
		},
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			_, ok, err := s.Get(ctx, "http://a.test", "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "http://a.test", "b", "1"))
			require.NoError(t, s.Set(ctx, "http://a.test", "a", "2"))
			require.NoError(t, s.Set(ctx, "http://other.test", "a", "other"))

			v, ok, err := s.Get(ctx, "http://a.test", "b")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "1", v)

			require.NoError(t, s.Set(ctx, "http://a.test", "b", "updated"))
			v, _, _ = s.Get(ctx, "http://a.test", "b")
			assert.Equal(t, "updated", v)

			keys, err := s.Keys(ctx, "http://a.test")
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, keys)

			require.NoError(t, s.Delete(ctx, "http://a.test", "a"))
			require.NoError(t, s.Delete(ctx, "http://a.test", "never-set"))
			keys, _ = s.Keys(ctx, "http://a.test")
			assert.Equal(t, []string{"b"}, keys)

			require.NoError(t, s.Clear(ctx, "http://a.test"))
			keys, _ = s.Keys(ctx, "http://a.test")
			assert.Empty(t, keys)

			v, ok, _ = s.Get(ctx, "http://other.test", "a")
			assert.True(t, ok, "clearing one origin leaves others alone")
			assert.Equal(t, "other", v)
		})
	}
}

func TestStoreEmptyValue(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()

			require.NoError(t, s.Set(ctx, "o", "k", ""))
			v, ok, err := s.Get(ctx, "o", "k")
			require.NoError(t, err)
			assert.True(t, ok, "an empty value is still present")
			assert.Equal(t, "", v)
		})
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "http://a.test", "zsx_persist_form_f", `{"q":"x"}`))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Get(ctx, "http://a.test", "zsx_persist_form_f")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"q":"x"}`, v)
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()

	m := NewMemory()
	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Set(ctx, "o", "k", "v"), ErrClosed)
	_, _, err := m.Get(ctx, "o", "k")
	assert.ErrorIs(t, err, ErrClosed)

	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Set(ctx, "o", "k", "v"), ErrClosed)
}

func TestOpen(t *testing.T) {
	s, err := Open("", "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open("SQLite", ":memory:")
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	s.Close()

	_, err = Open("redis", "")
	assert.Error(t, err)

	_, err = Open(DriverSQLite, "")
	assert.Error(t, err)
}

func TestArea(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	a := NewArea(store, "http://a.test")
	b := NewArea(store, "http://b.test")

	require.NoError(t, a.SetItem(ctx, "k", "from-a"))
	_, ok, err := b.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "areas are isolated by origin")

	v, ok, err := a.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "from-a", v)
	assert.Equal(t, "http://a.test", a.Origin())

	keys, err := a.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)

	require.NoError(t, a.RemoveItem(ctx, "k"))
	_, ok, _ = a.GetItem(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, a.SetItem(ctx, "x", "1"))
	require.NoError(t, a.Clear(ctx))
	keys, _ = a.Keys(ctx)
	assert.Empty(t, keys)
}
