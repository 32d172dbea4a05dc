package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/generalpiston/qpg/internal/store"
	"github.com/generalpiston/qpg/internal/types"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedObject(t *testing.T, db *store.Store, sourceID int64, objectID, fqname, schemaName, objectName string) {
	t.Helper()
	_, err := db.DB.Exec(`INSERT INTO db_objects
		(object_id, source_id, schema_name, object_name, object_type, fqname, definition, comment, signature, owner, is_system)
		VALUES (?, ?, ?, ?, 'table', ?, 'create table x()', 'a comment', '', '', 0)`,
		objectID, sourceID, schemaName, objectName, fqname)
	require.NoError(t, err)
}

func seedSource(t *testing.T, db *store.Store, name string) {
	t.Helper()
	_, err := db.DB.Exec(`INSERT INTO sources (name, dsn, created_at, updated_at)
		VALUES (?, 'postgres://h/db', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`, name)
	require.NoError(t, err)
}

func TestResolveObjectRef_ByFqname(t *testing.T) {
	s := openTestStore(t)
	seedSource(t, s, "work")
	seedObject(t, s, 1, "abc123456789", "public.orders", "public", "orders")

	obj, err := resolveObjectRef(s.DB, "public.orders", "")
	require.NoError(t, err)
	require.Equal(t, "abc123456789", obj.ObjectID)
	require.Equal(t, types.ObjectType("table"), obj.ObjectType)
}

func TestResolveObjectRef_ByIDPrefix(t *testing.T) {
	s := openTestStore(t)
	seedSource(t, s, "work")
	seedObject(t, s, 1, "abc123456789", "public.orders", "public", "orders")

	obj, err := resolveObjectRef(s.DB, "#abc123", "")
	require.NoError(t, err)
	require.Equal(t, "public.orders", obj.Fqname)
}

func TestResolveObjectRef_MissingReturnsObjectNotFoundError(t *testing.T) {
	s := openTestStore(t)
	_, err := resolveObjectRef(s.DB, "public.nope", "")
	require.Error(t, err)
	var notFound *types.ObjectNotFoundError
	require.True(t, errors.As(err, &notFound))
}

func TestResolveObjectRef_ScopedBySource(t *testing.T) {
	s := openTestStore(t)
	seedSource(t, s, "work")
	seedObject(t, s, 1, "abc123456789", "public.orders", "public", "orders")

	_, err := resolveObjectRef(s.DB, "public.orders", "other")
	require.Error(t, err)
}

func TestLoadGenerationCandidates_JoinsSourceAndColumns(t *testing.T) {
	s := openTestStore(t)
	seedSource(t, s, "work")
	seedObject(t, s, 1, "abc123456789", "public.orders", "public", "orders")
	_, err := s.DB.Exec(`INSERT INTO columns (object_id, name, data_type, nullable, ordinal, default_value, comment)
		VALUES ('abc123456789', 'id', 'bigint', 0, 0, '', '')`)
	require.NoError(t, err)

	candidates, err := loadGenerationCandidates(context.Background(), s.DB, "")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "qpg://work/public.orders", candidates[0].targetURI)
	require.Len(t, candidates[0].Columns, 1)
	require.Equal(t, "id", candidates[0].Columns[0].Name)
}

func TestLoadGenerationCandidates_FiltersBySource(t *testing.T) {
	s := openTestStore(t)
	seedSource(t, s, "work")
	seedObject(t, s, 1, "abc123456789", "public.orders", "public", "orders")

	candidates, err := loadGenerationCandidates(context.Background(), s.DB, "someone-else")
	require.NoError(t, err)
	require.Empty(t, candidates)
}

func TestFail_WrapsCodeAndUnwraps(t *testing.T) {
	base := errors.New("boom")
	err := fail(3, base)

	var ee *exitError
	require.True(t, errors.As(err, &ee))
	require.Equal(t, 3, ee.code)
	require.ErrorIs(t, err, base)
}
