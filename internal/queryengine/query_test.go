package queryengine

import (
	"testing"

	"github.com/generalpiston/qpg/internal/types"
	"github.com/stretchr/testify/require"
)

func TestApplyPositionBonus_HigherRankGetsBiggerBonusOnTies(t *testing.T) {
	rows := []*types.SearchResult{
		{Object: &types.DbObject{ObjectID: "a"}, RRFScore: 0.5},
		{Object: &types.DbObject{ObjectID: "b"}, RRFScore: 0.5},
	}
	applyPositionBonus(rows)

	require.Equal(t, "a", rows[0].Object.ObjectID)
	require.InDelta(t, 0.5+positionBonusWeight*(1.0/2.0), rows[0].Score, 1e-9)
	require.InDelta(t, 0.5+positionBonusWeight*(1.0/3.0), rows[1].Score, 1e-9)
}

func TestApplyPositionBonus_KeepsOrderWhenRRFGapExceedsBonus(t *testing.T) {
	// b has a lower RRFScore than a, but starts far enough behind that the
	// position bonus alone cannot promote it past a.
	rows := []*types.SearchResult{
		{Object: &types.DbObject{ObjectID: "a"}, RRFScore: 0.9},
		{Object: &types.DbObject{ObjectID: "b"}, RRFScore: 0.85},
	}
	applyPositionBonus(rows)
	require.Equal(t, "a", rows[0].Object.ObjectID)
	require.Equal(t, "b", rows[1].Object.ObjectID)
}
