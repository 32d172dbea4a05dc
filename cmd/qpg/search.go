package main

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/generalpiston/qpg/internal/queryengine"
	"github.com/generalpiston/qpg/internal/settings"
	"github.com/generalpiston/qpg/internal/store"
	"github.com/generalpiston/qpg/internal/types"
	"github.com/generalpiston/qpg/internal/vector"
)

var (
	searchSource   string
	searchSchema   string
	searchKind     string
	searchMinScore float64
	searchLimit    int
)

func registerSearchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&searchSource, "source", "", "filter by source name")
	cmd.Flags().StringVar(&searchSchema, "schema", "", "filter by schema name")
	cmd.Flags().StringVar(&searchKind, "kind", "", "filter by object kind")
	cmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "minimum fused score to include")
	cmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum results to return")
}

func runSearch(cmd *cobra.Command, query string, rerank bool) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	st, err := openStore(false)
	if err != nil {
		return fail(4, err)
	}
	defer st.Close()

	embedder, err := resolveEmbedder(ctx, false)
	if err != nil {
		logger.Debugf("vector search disabled: %v", err)
		embedder = nil
	}

	results, err := queryengine.Query(ctx, st.DB, embedder, query, queryengine.Options{
		Source:       searchSource,
		Schema:       searchSchema,
		Kind:         types.ObjectType(searchKind),
		MinScore:     searchMinScore,
		Limit:        searchLimit,
		NativeVector: store.HasNativeVector(st.DB),
		Rerank:       rerank,
	})
	if err != nil {
		return fail(1, err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Hybrid lexical + vector search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, args[0], false)
	},
}

var deepSearchCmd = &cobra.Command{
	Use:   "deep-search <query>",
	Short: "Hybrid search with external reranking applied",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, args[0], true)
	},
}

var vectorCmd = &cobra.Command{
	Use:   "vector",
	Short: "Manage the local embedding model",
}

var vectorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Load the embedding model from the local model cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		cacheDir := filepath.Join(settings.CacheDir(), "models")
		m := vector.NewModelEmbedder(cacheDir)
		if err := m.Init(ctx, vectorModelRepo); err != nil {
			return fail(4, err)
		}
		defer m.Close()
		logger.Infof("embedding model ready (dim=%d) at %s", m.Dim(), cacheDir)
		return nil
	},
}

func init() {
	registerSearchFlags(searchCmd)
	registerSearchFlags(deepSearchCmd)
	vectorCmd.AddCommand(vectorInitCmd)
	rootCmd.AddCommand(searchCmd, deepSearchCmd, vectorCmd)
}
