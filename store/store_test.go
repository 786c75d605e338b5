package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertSyncAndLoadLive(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpsertSync("a", `"1"`, 1000, nil))

	rows, err := s.LoadLive(2000)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "a", rows[0].Key)
	require.Equal(t, `"1"`, rows[0].Value)
	require.Nil(t, rows[0].TTLSeconds)
}

func TestUpsertSyncWithTTLThenLoadLiveExpires(t *testing.T) {
	s := openTestStore(t)

	ttl := int64(10)
	require.NoError(t, s.UpsertSync("a", `"1"`, 1000, &ttl))

	rows, err := s.LoadLive(1005) // before expires_at == 1010
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rows, err = s.LoadLive(1011) // after expires_at
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestUpsertSyncOverwriteClearsStaleTTL(t *testing.T) {
	s := openTestStore(t)

	ttl := int64(60)
	require.NoError(t, s.UpsertSync("a", `"1"`, 1000, &ttl))

	// A later write for the same key with no TTL (e.g. a plain Insert
	// overwriting a value previously set through InsertWithTTL) must
	// clear the stale ttl_seconds/expires_at rather than preserve them —
	// the caller is expected to supply the TTL actually resolved for
	// each mutation, so "none supplied" means "none".
	require.NoError(t, s.UpsertSync("a", `"2"`, 1030, nil))

	rows, err := s.LoadLive(1040)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, `"2"`, rows[0].Value)
	require.Nil(t, rows[0].TTLSeconds)
}

func TestDeleteSync(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertSync("a", `"1"`, 1000, nil))
	require.NoError(t, s.DeleteSync("a"))

	rows, err := s.LoadLive(2000)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestClearSync(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertSync("a", `"1"`, 1000, nil))
	require.NoError(t, s.UpsertSync("b", `"2"`, 1000, nil))
	require.NoError(t, s.ClearSync())

	rows, err := s.LoadLive(2000)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestLoadLiveOrdersByKey(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertSync("c", `"3"`, 1000, nil))
	require.NoError(t, s.UpsertSync("a", `"1"`, 1000, nil))
	require.NoError(t, s.UpsertSync("b", `"2"`, 1000, nil))

	rows, err := s.LoadLive(2000)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, []string{rows[0].Key, rows[1].Key, rows[2].Key})
}
