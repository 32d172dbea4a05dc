package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/generalpiston/qpg/internal/contexts"
	"github.com/generalpiston/qpg/internal/ingest"
	"github.com/generalpiston/qpg/internal/introspect"
	"github.com/generalpiston/qpg/internal/pgxreader"
	"github.com/generalpiston/qpg/internal/settings"
	"github.com/generalpiston/qpg/internal/sources"
	"github.com/generalpiston/qpg/internal/store"
	"github.com/generalpiston/qpg/internal/types"
	"github.com/generalpiston/qpg/internal/vector"
)

const vectorModelRepo = "jinaai/jina-embeddings-v2-base-code"

var (
	indexSkipFunctions bool
	indexNoEmbed       bool
)

var indexCmd = &cobra.Command{
	Use:   "index <source>",
	Short: "Introspect a source and rebuild its normalized schema index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		st, err := openStore(false)
		if err != nil {
			return fail(4, err)
		}
		defer st.Close()

		reg := sources.New(st)
		src, err := reg.Get(ctx, args[0])
		if err != nil {
			if errors.Is(err, types.ErrSourceNotFound) {
				return fail(2, err)
			}
			return fail(1, err)
		}

		reader, err := pgxreader.Connect(ctx, src.DSN)
		if err != nil {
			_ = reg.MarkError(ctx, src.Name, err.Error())
			return fail(4, fmt.Errorf("connect to %q: %w", src.Name, err))
		}
		defer reader.Close()

		bundle := introspect.Run(ctx, reader, indexSkipFunctions)
		bundle = introspect.ApplyFilters(bundle, src.IncludeSchemas, src.SkipPatterns)
		for _, w := range bundle.Warnings {
			logger.Infof("introspection warning for %q: %s", src.Name, w)
		}

		cs := contexts.New(st, reg)
		records, err := cs.List(ctx)
		if err != nil {
			return fail(1, err)
		}

		embedder, err := resolveEmbedder(ctx, indexNoEmbed)
		if err != nil {
			logger.Infof("vector embedding disabled: %v", err)
			embedder = nil
		}

		stats, err := ingest.Run(ctx, st.DB, ingest.Options{
			SourceID:     src.ID,
			SourceName:   src.Name,
			Bundle:       bundle,
			Contexts:     records,
			Embedder:     embedder,
			NativeVector: store.HasNativeVector(st.DB),
		})
		if err != nil {
			_ = reg.MarkError(ctx, src.Name, err.Error())
			return fail(1, fmt.Errorf("ingest %q: %w", src.Name, err))
		}

		if err := reg.MarkIndexed(ctx, src.Name); err != nil {
			return fail(1, err)
		}

		logger.Infof("indexed %q: %d objects, %d columns, %d constraints, %d indexes, %d dependencies, %d vectors",
			src.Name, stats.Objects, stats.Columns, stats.Constraints, stats.Indexes, stats.Dependencies, stats.Vectors)
		return nil
	},
}

// resolveEmbedder loads the vector model if the cache is populated and
// embedding was not explicitly disabled. When embedding is disabled or the
// model is not available it returns an error, and callers proceed without
// vectors.
func resolveEmbedder(ctx context.Context, disabled bool) (ingest.Embedder, error) {
	if disabled {
		return nil, errors.New("--no-embed set")
	}
	cacheDir := filepath.Join(settings.CacheDir(), "models")
	m := vector.NewModelEmbedder(cacheDir)
	if err := m.Require(); err != nil {
		return nil, err
	}
	if err := m.Init(ctx, vectorModelRepo); err != nil {
		return nil, err
	}
	return m, nil
}

func init() {
	indexCmd.Flags().BoolVar(&indexSkipFunctions, "skip-functions", false, "skip function introspection")
	indexCmd.Flags().BoolVar(&indexNoEmbed, "no-embed", false, "skip vector embedding even if the model is initialized")
	rootCmd.AddCommand(indexCmd)
}
