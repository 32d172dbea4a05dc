package contexts

import (
	"testing"

	"github.com/generalpiston/qpg/internal/types"
	"github.com/stretchr/testify/require"
)

func TestParseContextTarget_SourceOnly(t *testing.T) {
	scope, err := ParseContextTarget("qpg://work")
	require.NoError(t, err)
	require.Equal(t, types.ScopeSource, scope.Kind)
	require.Equal(t, "work", scope.Source)
}

func TestParseContextTarget_SchemaOnly(t *testing.T) {
	scope, err := ParseContextTarget("qpg://work/public")
	require.NoError(t, err)
	require.Equal(t, types.ScopeSchema, scope.Kind)
	require.Equal(t, "public", scope.Schema)
}

func TestParseContextTarget_SchemaDotObject(t *testing.T) {
	scope, err := ParseContextTarget("qpg://work/public.orders")
	require.NoError(t, err)
	require.Equal(t, types.ScopeObject, scope.Kind)
	require.Equal(t, "public", scope.Schema)
	require.Equal(t, "orders", scope.Object)
}

func TestParseContextTarget_SchemaSlashObject(t *testing.T) {
	scope, err := ParseContextTarget("qpg://work/public/orders")
	require.NoError(t, err)
	require.Equal(t, types.ScopeObject, scope.Kind)
	require.Equal(t, "public", scope.Schema)
	require.Equal(t, "orders", scope.Object)
}

func TestParseContextTarget_ObjectIDFragment(t *testing.T) {
	scope, err := ParseContextTarget("qpg://work#abc123")
	require.NoError(t, err)
	require.Equal(t, types.ScopeObjectID, scope.Kind)
	require.Equal(t, "abc123", scope.ObjectID)
}

func TestParseContextTarget_RejectsMissingScheme(t *testing.T) {
	_, err := ParseContextTarget("work/public")
	require.Error(t, err)
}

func TestParseContextTarget_RejectsEmptySource(t *testing.T) {
	_, err := ParseContextTarget("qpg:///public")
	require.Error(t, err)
}

func TestApplies_ObjectScopeAppliesToSyntheticChild(t *testing.T) {
	scope := types.ContextScope{Kind: types.ScopeObject, Source: "work", Schema: "public", Object: "orders"}
	child := types.ObjectRef{Source: "work", Schema: "public", Name: "orders.id"}
	require.True(t, Applies(scope, child))
}

func TestApplies_RejectsDifferentSource(t *testing.T) {
	scope := types.ContextScope{Kind: types.ScopeSource, Source: "work"}
	ref := types.ObjectRef{Source: "prod"}
	require.False(t, Applies(scope, ref))
}
