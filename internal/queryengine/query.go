package queryengine

import (
	"context"
	"database/sql"
	"sort"

	"github.com/generalpiston/qpg/internal/lexical"
	"github.com/generalpiston/qpg/internal/types"
	"github.com/generalpiston/qpg/internal/vector"
)

// Embedder is the narrow capability the composite query flow needs to
// embed a query string for vector search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Options configures a single composite search.
type Options struct {
	Source       string
	Schema       string
	Kind         types.ObjectType
	MinScore     float64
	Limit        int
	NativeVector bool
	Rerank       bool
}

const rrfK = 60

// positionBonusWeight scales the post-fusion position bonus added to each
// row's final score: score = rrf_score + positionBonusWeight*position_bonus.
const positionBonusWeight = 0.1

// Query runs the composite hybrid flow: expand the query into lexical
// variants, run BM25 search for each variant plus one vector search over
// the embedded original query, fuse every list with reciprocal rank fusion,
// fold in a post-fusion position bonus, rerank, and only then apply
// min_score — applying it any earlier would drop rows before the position
// bonus and rerank have had a chance to change their relative order.
func Query(ctx context.Context, db *sql.DB, embedder Embedder, q string, opts Options) ([]*types.SearchResult, error) {
	variants := ExpandQuery(q)

	var lists [][]*types.SearchResult
	for _, variant := range variants {
		results, err := lexical.Search(ctx, db, variant, lexical.SearchOptions{
			Source: opts.Source, Schema: opts.Schema, Kind: opts.Kind,
		})
		if err != nil {
			return nil, err
		}
		if len(results) > 0 {
			lists = append(lists, results)
		}
	}

	if embedder != nil {
		queryVec, err := embedder.Embed(ctx, q)
		if err == nil {
			vecResults, err := vector.Search(ctx, db, opts.NativeVector, queryVec, vector.SearchOptions{
				Source: opts.Source,
			})
			if err == nil && len(vecResults) > 0 {
				lists = append(lists, vecResults)
			}
		}
	}

	if len(lists) == 0 {
		return nil, nil
	}

	fused, err := ReciprocalRankFusion(lists, rrfK)
	if err != nil {
		return nil, err
	}

	applyPositionBonus(fused)

	if opts.Rerank {
		// A failing hook leaves the fused order in place.
		if reranked, err := RerankWithHook(ctx, q, fused); err == nil {
			fused = reranked
		}
	}

	if opts.MinScore > 0 {
		filtered := fused[:0]
		for _, row := range fused {
			if row.Score >= opts.MinScore {
				filtered = append(filtered, row)
			}
		}
		fused = filtered
	}

	if opts.Limit > 0 && len(fused) > opts.Limit {
		fused = fused[:opts.Limit]
	}
	return fused, nil
}

// applyPositionBonus folds a post-fusion position bonus (1/(i+1) over the
// fused, 1-based index i) into each row's Score and re-sorts descending.
func applyPositionBonus(rows []*types.SearchResult) {
	for i, row := range rows {
		positionBonus := 1.0 / float64((i+1)+1)
		row.Score = row.RRFScore + positionBonusWeight*positionBonus
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Score > rows[j].Score
	})
}
