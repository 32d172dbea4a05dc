package queryengine

import (
	"fmt"
	"sort"

	"github.com/generalpiston/qpg/internal/types"
)

// topRankBonus is added to an object's accumulated score whenever it is the
// top result (rank 1) in any contributing list.
const topRankBonus = 0.02

// ReciprocalRankFusion merges several ranked result lists into one, scoring
// each object_id by sum(1/(k+rank)) across every list it appears in (plus a
// top_rank_bonus for rank-1 appearances), and sorts descending by the fused
// score. The first list to mention an object_id supplies its payload.
func ReciprocalRankFusion(lists [][]*types.SearchResult, k int) ([]*types.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("reciprocal rank fusion: k must be positive, got %d", k)
	}

	scores := make(map[string]float64)
	payload := make(map[string]*types.SearchResult)
	var order []string

	for _, list := range lists {
		for i, row := range list {
			rank := i + 1
			id := row.Object.ObjectID
			if _, ok := payload[id]; !ok {
				payload[id] = row
				order = append(order, id)
			}
			scores[id] += 1.0 / float64(k+rank)
			if rank == 1 {
				scores[id] += topRankBonus
			}
		}
	}

	out := make([]*types.SearchResult, 0, len(order))
	for _, id := range order {
		row := payload[id]
		row.RRFScore = scores[id]
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RRFScore > out[j].RRFScore
	})
	return out, nil
}
