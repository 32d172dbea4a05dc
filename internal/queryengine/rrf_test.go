package queryengine

import (
	"context"
	"testing"

	"github.com/generalpiston/qpg/internal/types"
	"github.com/stretchr/testify/require"
)

func obj(id string) *types.SearchResult {
	return &types.SearchResult{Object: &types.DbObject{ObjectID: id}}
}

// TestReciprocalRankFusion_Precedence exercises scenario S3: list A = [a,b,c],
// list B = [b,x]. Top element must be b, with a ahead of x.
func TestReciprocalRankFusion_Precedence(t *testing.T) {
	listA := []*types.SearchResult{obj("a"), obj("b"), obj("c")}
	listB := []*types.SearchResult{obj("b"), obj("x")}

	out, err := ReciprocalRankFusion([][]*types.SearchResult{listA, listB}, 60)
	require.NoError(t, err)
	require.Equal(t, "b", out[0].Object.ObjectID)

	var posA, posX int
	for i, r := range out {
		if r.Object.ObjectID == "a" {
			posA = i
		}
		if r.Object.ObjectID == "x" {
			posX = i
		}
	}
	require.Less(t, posA, posX)
}

func TestReciprocalRankFusion_RejectsNonPositiveK(t *testing.T) {
	_, err := ReciprocalRankFusion([][]*types.SearchResult{{obj("a")}}, 0)
	require.Error(t, err)
}

func TestReciprocalRankFusion_SortedDescending(t *testing.T) {
	out, err := ReciprocalRankFusion([][]*types.SearchResult{
		{obj("a"), obj("b"), obj("c")},
	}, 60)
	require.NoError(t, err)
	for i := 1; i < len(out); i++ {
		require.GreaterOrEqual(t, out[i-1].RRFScore, out[i].RRFScore)
	}
}

func TestExpandQuery_ReturnsOriginalAndUnion(t *testing.T) {
	variants := ExpandQuery("Order Status")
	require.Equal(t, "Order Status", variants[0])
	require.Contains(t, variants[1], "order")
	require.Contains(t, variants[1], "status")
	require.Contains(t, variants[1], "state")
	require.Contains(t, variants[1], "purchase")
}

func TestRerankWithHook_NoopWhenUnset(t *testing.T) {
	t.Setenv("QPG_RERANK_HOOK", "")
	results := []*types.SearchResult{obj("a"), obj("b")}
	out, err := RerankWithHook(context.Background(), "q", results)
	require.NoError(t, err)
	require.Equal(t, results, out)
}
