package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/generalpiston/qpg/internal/mcp"
	"github.com/generalpiston/qpg/internal/queryengine"
	"github.com/generalpiston/qpg/internal/sources"
	"github.com/generalpiston/qpg/internal/store"
	"github.com/generalpiston/qpg/internal/types"
)

type searchArgs struct {
	Query    string  `json:"query"`
	Source   string  `json:"source"`
	Schema   string  `json:"schema"`
	Kind     string  `json:"kind"`
	MinScore float64 `json:"min_score"`
	Limit    int     `json:"limit"`
}

// buildHandlers wires the mcp tool contract to the core engine against one
// shared store connection, used by both the stdio and HTTP servers.
func buildHandlers(st *store.Store, embedder queryengine.Embedder) mcp.Handlers {
	search := func(args json.RawMessage, rerank bool) (any, error) {
		var a searchArgs
		if len(args) > 0 {
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
		}
		if a.Query == "" {
			return nil, fmt.Errorf("query is required")
		}
		limit := a.Limit
		if limit <= 0 {
			limit = 20
		}

		st.Mu.Lock()
		defer st.Mu.Unlock()

		return queryengine.Query(context.Background(), st.DB, embedder, a.Query, queryengine.Options{
			Source:       a.Source,
			Schema:       a.Schema,
			Kind:         types.ObjectType(a.Kind),
			MinScore:     a.MinScore,
			Limit:        limit,
			NativeVector: store.HasNativeVector(st.DB),
			Rerank:       rerank,
		})
	}

	get := func(args json.RawMessage) (any, error) {
		var a struct {
			ObjectID string `json:"object_id"`
		}
		if err := json.Unmarshal(args, &a); err != nil || a.ObjectID == "" {
			return nil, fmt.Errorf("object_id is required")
		}

		st.Mu.Lock()
		defer st.Mu.Unlock()

		obj, err := resolveObjectRef(st.DB, "#"+a.ObjectID, "")
		if err != nil {
			return nil, err
		}
		return obj, nil
	}

	status := func(args json.RawMessage) (any, error) {
		st.Mu.Lock()
		defer st.Mu.Unlock()

		reg := sources.New(st)
		list, err := reg.List(context.Background())
		if err != nil {
			return nil, err
		}
		return list, nil
	}

	listSources := func(args json.RawMessage) (any, error) {
		return status(args)
	}

	return mcp.Handlers{
		Search:      func(args json.RawMessage) (any, error) { return search(args, false) },
		DeepSearch:  func(args json.RawMessage) (any, error) { return search(args, true) },
		Get:         get,
		Status:      status,
		ListSources: listSources,
	}
}

