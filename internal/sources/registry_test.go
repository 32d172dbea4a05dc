package sources

import (
	"context"
	"testing"

	"github.com/generalpiston/qpg/internal/store"
	"github.com/generalpiston/qpg/internal/types"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	s, err := store.Open(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func TestAdd_RejectsDuplicateName(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	_, err := r.Add(ctx, "analytics", "postgres://u@h/db", nil, nil)
	require.NoError(t, err)

	_, err = r.Add(ctx, "analytics", "postgres://u@h/db2", nil, nil)
	require.Error(t, err)
	var exists *types.SourceExistsError
	require.ErrorAs(t, err, &exists)
}

func TestAdd_NormalizesDSNToReadOnly(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	src, err := r.Add(ctx, "analytics", "postgres://u@h/db", nil, nil)
	require.NoError(t, err)
	require.Contains(t, src.DSN, "default_transaction_read_only")
}

func TestGet_NotFound(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	_, err := r.Get(ctx, "missing")
	require.Error(t, err)
	var notFound *types.SourceNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestRename_UpdatesName(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	_, err := r.Add(ctx, "old", "postgres://u@h/db", nil, nil)
	require.NoError(t, err)

	require.NoError(t, r.Rename(ctx, "old", "new"))

	_, err = r.Get(ctx, "old")
	require.Error(t, err)
	src, err := r.Get(ctx, "new")
	require.NoError(t, err)
	require.Equal(t, "new", src.Name)
}

func TestDelete_CascadesContextsForThatSourceOnly(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)
	s := r.store

	_, err := r.Add(ctx, "analytics", "postgres://u@h/db", nil, nil)
	require.NoError(t, err)
	_, err = r.Add(ctx, "billing", "postgres://u@h/db2", nil, nil)
	require.NoError(t, err)

	_, err = s.DB.ExecContext(ctx, `INSERT INTO contexts (target_uri, body, created_at) VALUES
		('qpg://analytics', 'a', '2024-01-01T00:00:00Z'),
		('qpg://analytics/public.users', 'b', '2024-01-01T00:00:00Z'),
		('qpg://billing', 'c', '2024-01-01T00:00:00Z')`)
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, "analytics"))

	var count int
	require.NoError(t, s.DB.QueryRowContext(ctx, `SELECT count(*) FROM contexts`).Scan(&count))
	require.Equal(t, 1, count)

	_, err = r.Get(ctx, "analytics")
	require.Error(t, err)
	_, err = r.Get(ctx, "billing")
	require.NoError(t, err)
}

func TestMarkIndexedAndMarkError(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	_, err := r.Add(ctx, "analytics", "postgres://u@h/db", nil, nil)
	require.NoError(t, err)

	require.NoError(t, r.MarkError(ctx, "analytics", "boom"))
	src, err := r.Get(ctx, "analytics")
	require.NoError(t, err)
	require.Equal(t, "boom", src.LastError)
	require.Nil(t, src.LastIndexedAt)

	require.NoError(t, r.MarkIndexed(ctx, "analytics"))
	src, err = r.Get(ctx, "analytics")
	require.NoError(t, err)
	require.Equal(t, "", src.LastError)
	require.NotNil(t, src.LastIndexedAt)
}
