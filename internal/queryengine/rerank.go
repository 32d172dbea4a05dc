package queryengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/google/uuid"

	"github.com/generalpiston/qpg/internal/types"
)

const rerankHookEnv = "QPG_RERANK_HOOK"

type rerankRow struct {
	ObjectID       string `json:"object_id"`
	Fqname         string `json:"fqname"`
	ObjectType     string `json:"object_type"`
	Comment        string `json:"comment"`
	Definition     string `json:"definition"`
	NameSnippet    string `json:"name_snippet"`
	ContextSnippet string `json:"context_snippet"`
	Score          float64 `json:"score"`
}

type rerankRequest struct {
	Query   string      `json:"query"`
	Results []rerankRow `json:"results"`
}

// RerankWithHook reruns the order of results through an external executable
// named by QPG_RERANK_HOOK, if set. The hook receives
// {"query":...,"results":[{object_id,fqname,...},...]} on stdin, the full
// row payload rather than bare ids so it has enough to actually rank on,
// and must print a JSON array of object_id strings on stdout; a non-zero
// exit surfaces RerankHookError and the caller falls back to the unreranked
// order. It is a no-op (identity) when the env var is unset.
func RerankWithHook(ctx context.Context, query string, results []*types.SearchResult) ([]*types.SearchResult, error) {
	hook := os.Getenv(rerankHookEnv)
	if hook == "" {
		return results, nil
	}

	rows := make([]rerankRow, len(results))
	byID := make(map[string]*types.SearchResult, len(results))
	for i, r := range results {
		rows[i] = rerankRow{
			ObjectID:       r.Object.ObjectID,
			Fqname:         r.Object.Fqname,
			ObjectType:     string(r.Object.ObjectType),
			Comment:        r.Object.Comment,
			Definition:     r.Object.Definition,
			NameSnippet:    r.NameSnippet,
			ContextSnippet: r.ContextSnippet,
			Score:          r.Score,
		}
		byID[r.Object.ObjectID] = r
	}

	payload, err := json.Marshal(rerankRequest{Query: query, Results: rows})
	if err != nil {
		return nil, err
	}

	// requestID correlates this invocation across the hook's own stderr
	// logging; it is never part of the wire payload itself.
	requestID := uuid.New().String()

	cmd := exec.CommandContext(ctx, hook)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = append(os.Environ(), "QPG_RERANK_REQUEST_ID="+requestID)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &types.RerankHookError{Stderr: fmt.Sprintf("[%s] %s", requestID, stderr.String())}
	}

	var order []string
	if err := json.Unmarshal(stdout.Bytes(), &order); err != nil {
		return nil, &types.RerankHookError{Stderr: fmt.Sprintf("[%s] malformed hook output: %s", requestID, err.Error())}
	}

	out := make([]*types.SearchResult, 0, len(order))
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if row, ok := byID[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, row)
		}
	}
	// Any rows the hook dropped are appended in their original order, so
	// the set of rows is always preserved.
	for _, r := range results {
		if !seen[r.Object.ObjectID] {
			out = append(out, r)
		}
	}
	return out, nil
}
