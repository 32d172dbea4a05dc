package contextgen

import (
	"context"
	"testing"

	"github.com/generalpiston/qpg/internal/store"
	"github.com/stretchr/testify/require"
)

func TestBoilerplateGate_SkipsPureBoilerplateTable(t *testing.T) {
	c := Candidate{
		Fqname: "public.widgets",
		Columns: []ColumnDescriptor{
			{Name: "id"}, {Name: "created_at"}, {Name: "updated_at"},
		},
	}
	reason, skip := boilerplateGate(c)
	require.True(t, skip)
	require.Equal(t, "only boilerplate fields available", reason)
}

func TestBoilerplateGate_KeepsTableWithComment(t *testing.T) {
	c := Candidate{Fqname: "public.widgets", Comment: "holds widgets", Columns: []ColumnDescriptor{{Name: "id"}}}
	_, skip := boilerplateGate(c)
	require.False(t, skip)
}

func TestBoilerplateGate_KeepsTableWithNonBoilerplateColumn(t *testing.T) {
	c := Candidate{Fqname: "public.widgets", Columns: []ColumnDescriptor{{Name: "id"}, {Name: "sku"}}}
	_, skip := boilerplateGate(c)
	require.False(t, skip)
}

func TestCacheKey_DeterministicPerModelAndPrompt(t *testing.T) {
	require.Equal(t, CacheKey("gpt", "p"), CacheKey("gpt", "p"))
	require.NotEqual(t, CacheKey("gpt", "p"), CacheKey("gpt", "q"))
}

func TestParseDecision_StripsCodeFences(t *testing.T) {
	d, err := parseDecision("```json\n{\"decision\":\"generate\",\"context\":\"hello\"}\n```")
	require.NoError(t, err)
	require.Equal(t, "generate", d.Decision)
	require.Equal(t, "hello", d.Context)
}

func TestParseDecision_AcceptsRawStringFallback(t *testing.T) {
	d, err := parseDecision("just some plain context text")
	require.NoError(t, err)
	require.Equal(t, "generate", d.Decision)
	require.Equal(t, "just some plain context text", d.Context)
}

func TestParseDecision_RejectsEmpty(t *testing.T) {
	_, err := parseDecision("")
	require.Error(t, err)
}

func TestGenerate_BoilerplateSkipIsCached(t *testing.T) {
	s, err := store.Open(":memory:", false)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	c := Candidate{Fqname: "public.widgets", Columns: []ColumnDescriptor{{Name: "id"}}}
	d, err := Generate(ctx, s.DB, "qpg://work/public.widgets", c, Options{Model: "gpt-4o-mini"})
	require.NoError(t, err)
	require.Equal(t, "skip", d.Decision)

	var count int
	require.NoError(t, s.DB.QueryRowContext(ctx, `SELECT count(*) FROM llm_cache`).Scan(&count))
	require.Equal(t, 1, count)
}
