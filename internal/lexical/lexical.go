// Package lexical implements full-text indexing and BM25-ranked search over
// normalized database objects.
package lexical

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/generalpiston/qpg/internal/types"
)

var tokenRe = regexp.MustCompile(`[A-Za-z0-9_]+`)

// BuildMatchQuery tokenizes q into [A-Za-z0-9_]+ runs, quotes each as an FTS
// term, and OR-joins them. An empty or all-punctuation query returns the
// empty-string sentinel, which matches nothing.
func BuildMatchQuery(q string) string {
	tokens := tokenRe.FindAllString(q, -1)
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}

// column weights applied to fts5's bm25() auxiliary function, matching
// column declaration order in objects_fts: object_id (unindexed), source_name (unindexed),
// schema_name (unindexed), kind (unindexed), name_col, comment_col,
// defs_col, context_col.
const bm25Args = "0.0, 0.0, 0.0, 0.0, 3.5, 1.5, 1.1, 5.0"

// SearchOptions narrows a lexical search by source/schema/kind and a
// post-conversion minimum score.
type SearchOptions struct {
	Source   string
	Schema   string
	Kind     types.ObjectType
	MinScore float64
	Limit    int
}

// Search runs q against objects_fts and returns hits ordered by descending
// score (ascending bm25). Score is 1/(1+max(bm25,0)) so higher is always
// better.
func Search(ctx context.Context, db *sql.DB, q string, opts SearchOptions) ([]*types.SearchResult, error) {
	match := BuildMatchQuery(q)
	if match == "" {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT o.object_id, o.source_id, o.schema_name, o.object_name, o.object_type, o.fqname,
		       o.definition, o.comment, o.signature, o.owner, o.is_system,
		       bm25(objects_fts, %s) AS rank,
		       snippet(objects_fts, 4, '[', ']', '...', 8) AS name_snip,
		       snippet(objects_fts, 7, '[', ']', '...', 12) AS context_snip
		FROM objects_fts
		JOIN db_objects o ON o.object_id = objects_fts.object_id
		WHERE objects_fts MATCH ?`, bm25Args)

	args := []any{match}
	if opts.Source != "" {
		query += " AND objects_fts.source_name = ?"
		args = append(args, opts.Source)
	}
	if opts.Schema != "" {
		query += " AND objects_fts.schema_name = ?"
		args = append(args, opts.Schema)
	}
	if opts.Kind != "" {
		query += " AND objects_fts.kind = ?"
		args = append(args, string(opts.Kind))
	}
	query += " ORDER BY rank ASC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.SearchResult
	for rows.Next() {
		var obj types.DbObject
		var isSystem int
		var bm25Score float64
		var nameSnip, contextSnip string
		if err := rows.Scan(&obj.ObjectID, &obj.SourceID, &obj.SchemaName, &obj.ObjectName, &obj.ObjectType,
			&obj.Fqname, &obj.Definition, &obj.Comment, &obj.Signature, &obj.Owner, &isSystem,
			&bm25Score, &nameSnip, &contextSnip); err != nil {
			return nil, err
		}
		obj.IsSystem = isSystem != 0
		if bm25Score < 0 {
			bm25Score = 0
		}
		score := 1.0 / (1.0 + bm25Score)
		if score < opts.MinScore {
			continue
		}
		out = append(out, &types.SearchResult{
			Object:       &obj,
			Score:        score,
			LexicalScore: score,
			NameSnippet:  nameSnip,
			ContextSnippet: contextSnip,
		})
	}
	return out, rows.Err()
}

// RebuildAll truncates and repopulates objects_fts from lexical_docs.
func RebuildAll(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM objects_fts`); err != nil {
		return err
	}
	return copyLexicalDocsToFTS(ctx, tx, "")
}

// RebuildForSource truncates and repopulates the FTS rows for one source.
// sourceName identifies rows by objects_fts.source_name, since the virtual
// table has no source_id column to join on (its object_id, source_name,
// schema_name and kind columns are UNINDEXED copies, not foreign keys).
func RebuildForSource(ctx context.Context, tx *sql.Tx, sourceID int64, sourceName string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM objects_fts WHERE source_name = ?`, sourceName); err != nil {
		return err
	}
	return copyLexicalDocsToFTS(ctx, tx, fmt.Sprintf("WHERE source_id = %d", sourceID))
}

func copyLexicalDocsToFTS(ctx context.Context, tx *sql.Tx, where string) error {
	query := `
		INSERT INTO objects_fts (object_id, source_name, schema_name, kind, name_col, comment_col, defs_col, context_col)
		SELECT object_id, source_name, schema_name, kind, name_col, comment_col, defs_col, context_col
		FROM lexical_docs ` + where
	_, err := tx.ExecContext(ctx, query)
	return err
}
