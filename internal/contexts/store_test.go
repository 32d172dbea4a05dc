package contexts

import (
	"context"
	"testing"

	"github.com/generalpiston/qpg/internal/types"
	"github.com/stretchr/testify/require"
)

type fakeSourceChecker struct {
	known map[string]bool
}

func (f fakeSourceChecker) Get(ctx context.Context, name string) (*types.Source, error) {
	if !f.known[name] {
		return nil, &types.SourceNotFoundError{Name: name}
	}
	return &types.Source{Name: name}, nil
}

func TestResolveEffectiveContext_InheritsAcrossScopes(t *testing.T) {
	records := []*types.ContextRecord{
		{TargetURI: "qpg://work", Body: "global"},
		{TargetURI: "qpg://work/public", Body: "schema"},
		{TargetURI: "qpg://work/public.orders", Body: "object"},
	}
	ref := types.ObjectRef{Source: "work", Schema: "public", Name: "orders"}

	got := ResolveEffectiveContext(records, ref)
	require.Equal(t, "global\nschema\nobject", got)
}

func TestResolveEffectiveContext_DedupesByValueFirstWins(t *testing.T) {
	records := []*types.ContextRecord{
		{TargetURI: "qpg://work", Body: "shared"},
		{TargetURI: "qpg://work/public", Body: "shared"},
	}
	ref := types.ObjectRef{Source: "work", Schema: "public", Name: "orders"}

	got := ResolveEffectiveContext(records, ref)
	require.Equal(t, "shared", got)
}

func TestResolveEffectiveContext_SkipsMalformedRows(t *testing.T) {
	records := []*types.ContextRecord{
		{TargetURI: "not-a-uri", Body: "ignored"},
		{TargetURI: "qpg://work", Body: "kept"},
	}
	ref := types.ObjectRef{Source: "work", Schema: "public", Name: "orders"}

	got := ResolveEffectiveContext(records, ref)
	require.Equal(t, "kept", got)
}

func TestResolveEffectiveContext_UnrelatedSourceIgnored(t *testing.T) {
	records := []*types.ContextRecord{
		{TargetURI: "qpg://other", Body: "nope"},
	}
	ref := types.ObjectRef{Source: "work", Schema: "public", Name: "orders"}

	got := ResolveEffectiveContext(records, ref)
	require.Equal(t, "", got)
}
