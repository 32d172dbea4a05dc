package vector

import (
	"context"
	"testing"

	"github.com/generalpiston/qpg/internal/store"
	"github.com/stretchr/testify/require"
)

func TestCosine_IdenticalVectorsScoreOne(t *testing.T) {
	v := []float32{1, 0, 0}
	require.InDelta(t, 1.0, cosine(v, v), 1e-9)
}

func TestCosine_ZeroVectorScoresZero(t *testing.T) {
	require.Equal(t, 0.0, cosine([]float32{}, []float32{1, 2, 3}))
	require.Equal(t, 0.0, cosine([]float32{0, 0, 0}, []float32{1, 2, 3}))
}

func TestUpsertAndSearch_FallbackPath(t *testing.T) {
	s, err := store.Open(":memory:", false)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	_, err = s.DB.ExecContext(ctx, `INSERT INTO sources (id, name, dsn, created_at, updated_at) VALUES (1, 'work', 'x', 'now', 'now')`)
	require.NoError(t, err)
	_, err = s.DB.ExecContext(ctx, `INSERT INTO db_objects (object_id, source_id, schema_name, object_name, object_type, fqname)
		VALUES ('abc123abc123', 1, 'public', 'orders', 'table', 'public.orders')`)
	require.NoError(t, err)

	tx, err := s.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, Upsert(ctx, tx, false, "abc123abc123", []float32{1, 0, 0}, "test-model"))
	require.NoError(t, tx.Commit())

	results, err := Search(ctx, s.DB, false, []float32{1, 0, 0}, SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.InDelta(t, 1.0, results[0].Score, 1e-6)
}
