package lexical

import (
	"context"
	"testing"

	"github.com/generalpiston/qpg/internal/store"
	"github.com/stretchr/testify/require"
)

func TestBuildMatchQuery_TokenizesAndOrJoins(t *testing.T) {
	require.Equal(t, `"orders" OR "status"`, BuildMatchQuery("orders status"))
}

func TestBuildMatchQuery_EmptySentinelForNoTokens(t *testing.T) {
	require.Equal(t, "", BuildMatchQuery("   !!! "))
}

func TestSearch_EmptyQueryYieldsNoMatches(t *testing.T) {
	s, err := store.Open(":memory:", false)
	require.NoError(t, err)
	defer s.Close()

	results, err := Search(context.Background(), s.DB, "", SearchOptions{})
	require.NoError(t, err)
	require.Nil(t, results)
}

func TestSearch_ScansAndScoresRows(t *testing.T) {
	s, err := store.Open(":memory:", false)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	_, err = s.DB.ExecContext(ctx, `INSERT INTO sources (id, name, dsn, created_at, updated_at) VALUES (1, 'work', 'x', 'now', 'now')`)
	require.NoError(t, err)
	_, err = s.DB.ExecContext(ctx, `INSERT INTO db_objects (object_id, source_id, schema_name, object_name, object_type, fqname)
		VALUES ('abc123abc123', 1, 'public', 'orders', 'table', 'public.orders')`)
	require.NoError(t, err)
	_, err = s.DB.ExecContext(ctx, `INSERT INTO lexical_docs (object_id, source_id, source_name, schema_name, kind, name_col, comment_col, defs_col, context_col)
		VALUES ('abc123abc123', 1, 'work', 'public', 'table', 'public.orders', '', 'column id bigint', '')`)
	require.NoError(t, err)
	_, err = s.DB.ExecContext(ctx, `INSERT INTO objects_fts (object_id, source_name, schema_name, kind, name_col, comment_col, defs_col, context_col)
		VALUES ('abc123abc123', 'work', 'public', 'table', 'public.orders', '', 'column id bigint', '')`)
	require.NoError(t, err)

	results, err := Search(ctx, s.DB, "orders", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "abc123abc123", results[0].Object.ObjectID)
	require.Greater(t, results[0].Score, 0.0)
}
