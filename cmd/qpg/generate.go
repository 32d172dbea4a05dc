package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/generalpiston/qpg/internal/contextgen"
	"github.com/generalpiston/qpg/internal/settings"
)

// generateConcurrency bounds how many candidate goroutines are in flight at
// once; each candidate's error is isolated per §7's per-candidate failure
// policy.
const generateConcurrency = 4

var (
	generateOverwrite bool
	generateDryRun    bool
	generateSource    string
)

var generateContextCmd = &cobra.Command{
	Use:   "generate-context",
	Short: "Generate LLM context annotations for tables and views",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
		defer cancel()

		// Candidates are processed concurrently below, so the store must be
		// opened multi-thread-safe, the same way the HTTP server opens it.
		st, err := openStore(true)
		if err != nil {
			return fail(4, err)
		}
		defer st.Close()

		resolved := settings.Resolve(settings.Overrides{})
		opts := contextgen.Options{
			Model:     resolved.Model,
			BaseURL:   resolved.BaseURL,
			APIKey:    resolved.APIKey,
			Overwrite: generateOverwrite,
			DryRun:    generateDryRun,
		}

		candidates, err := loadGenerationCandidates(ctx, st.DB, generateSource)
		if err != nil {
			return fail(1, err)
		}

		// Bound how many candidates are in flight at once. Each one holds the
		// store's mutex for its whole Generate call (cache lookup, chat
		// completion and writes), so the calls themselves run one at a time,
		// per §5's "single mutex around the connection" resource model.
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(generateConcurrency)
		for _, cand := range candidates {
			cand := cand
			g.Go(func() error {
				st.Mu.Lock()
				decision, err := contextgen.Generate(gctx, st.DB, cand.targetURI, cand.Candidate, opts)
				st.Mu.Unlock()
				if err != nil {
					logger.Infof("context generation failed for %s: %v", cand.Fqname, err)
					return nil
				}
				logger.Infof("%s: %s (%s)", cand.Fqname, decision.Decision, decision.Reason)
				return nil
			})
		}
		return g.Wait()
	},
}

type generationCandidate struct {
	contextgen.Candidate
	targetURI string
}

func loadGenerationCandidates(ctx context.Context, db *sql.DB, source string) ([]generationCandidate, error) {
	query := `SELECT o.object_id, o.fqname, o.schema_name, o.comment, o.definition, s.name
		FROM db_objects o JOIN sources s ON s.id = o.source_id
		WHERE o.object_type IN ('table', 'view')`
	var rows *sql.Rows
	var err error
	if source != "" {
		rows, err = db.QueryContext(ctx, query+" AND s.name = ?", source)
	} else {
		rows, err = db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []generationCandidate
	for rows.Next() {
		var objectID, fqname, schemaName, comment, definition, sourceName string
		if err := rows.Scan(&objectID, &fqname, &schemaName, &comment, &definition, &sourceName); err != nil {
			return nil, err
		}
		cols, err := loadColumnDescriptors(ctx, db, objectID)
		if err != nil {
			return nil, err
		}
		out = append(out, generationCandidate{
			Candidate: contextgen.Candidate{
				Fqname:     fqname,
				Comment:    comment,
				Definition: definition,
				Columns:    cols,
			},
			targetURI: "qpg://" + sourceName + "/" + fqname,
		})
	}
	return out, rows.Err()
}

func loadColumnDescriptors(ctx context.Context, db *sql.DB, objectID string) ([]contextgen.ColumnDescriptor, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, data_type, nullable, default_value, comment
		FROM columns WHERE object_id = ? ORDER BY ordinal`, objectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contextgen.ColumnDescriptor
	for rows.Next() {
		var c contextgen.ColumnDescriptor
		var nullable int
		if err := rows.Scan(&c.Name, &c.DataType, &nullable, &c.Default, &c.Comment); err != nil {
			return nil, err
		}
		c.Nullable = nullable != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

func init() {
	generateContextCmd.Flags().BoolVar(&generateOverwrite, "overwrite", false, "replace any existing context annotation")
	generateContextCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "run generation without writing context records")
	generateContextCmd.Flags().StringVar(&generateSource, "source", "", "restrict to one source")
	rootCmd.AddCommand(generateContextCmd)
}
