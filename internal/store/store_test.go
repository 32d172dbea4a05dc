package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_BootstrapIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, bootstrap(s.DB))
	require.NoError(t, bootstrap(s.DB))

	var count int
	err := s.DB.QueryRow(`SELECT count(*) FROM sqlite_master WHERE name = 'db_objects'`).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestQuickCheck_PassesOnFreshStore(t *testing.T) {
	s := openTestStore(t)
	ok, err := QuickCheck(s.DB)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAddMissingSourcesColumns_SkipsExistingColumn(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, addMissingSourcesColumns(s.DB))
	require.NoError(t, addMissingSourcesColumns(s.DB))
}
