package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMem(t *testing.T) *Store {
	t.Helper()
	st, err := Open(Memory)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpenAppliesMigrations(t *testing.T) {
	st := openMem(t)

	var version int
	require.NoError(t, st.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, len(migrations), version)

	var name string
	require.NoError(t, st.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='kv'").Scan(&name))
	assert.Equal(t, "kv", name)
}

func TestMemoryStoresAreIsolated(t *testing.T) {
	a, b := openMem(t), openMem(t)
	require.NoError(t, a.Put("k", "a"))

	_, found, err := b.Get("k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetMissing(t *testing.T) {
	v, found, err := openMem(t).Get("nope")

	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, v)
}

func TestPutOverwriteDelete(t *testing.T) {
	st := openMem(t)

	require.NoError(t, st.Put("k", "one"))
	require.NoError(t, st.Put("k", "two"))

	v, found, err := st.Get("k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "two", v)

	require.NoError(t, st.Delete("k"))
	require.NoError(t, st.Delete("k"))
	_, found, err = st.Get("k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReopenKeepsDataAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "civic.db")

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Put("search.recent", `["santos"]`))
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()

	v, found, err := st.Get("search.recent")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `["santos"]`, v)
}

func TestConcurrentPut(t *testing.T) {
	st := openMem(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, st.Put(fmt.Sprintf("k%02d", i), "v"))
		}(i)
	}
	wg.Wait()

	var n int
	require.NoError(t, st.db.QueryRow("SELECT COUNT(*) FROM kv").Scan(&n))
	assert.Equal(t, 20, n)
}

func TestClosedStoreErrors(t *testing.T) {
	st, err := Open(Memory)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	assert.Error(t, st.Put("k", "v"))
	_, _, err = st.Get("k")
	assert.Error(t, err)
}
