package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/generalpiston/qpg/internal/types"
)

// Upsert stores embedding for objectID. When native is true the vector is
// stored via vec_f32(json); otherwise the raw JSON float array is stored.
// Either way it is scored in-process on read.
func Upsert(ctx context.Context, tx *sql.Tx, native bool, objectID string, embedding []float32, model string) error {
	payload, err := json.Marshal(embedding)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if native {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO object_vectors (object_id, embedding, is_native, model, updated_at)
			VALUES (?, vec_f32(?), 1, ?, ?)
			ON CONFLICT(object_id) DO UPDATE SET embedding = vec_f32(excluded.embedding), is_native = 1, model = excluded.model, updated_at = excluded.updated_at`,
			objectID, string(payload), model, now)
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO object_vectors (object_id, embedding, is_native, model, updated_at)
		VALUES (?, ?, 0, ?, ?)
		ON CONFLICT(object_id) DO UPDATE SET embedding = excluded.embedding, is_native = 0, model = excluded.model, updated_at = excluded.updated_at`,
		objectID, payload, model, now)
	return err
}

// SearchOptions narrows vector search to a source and a post-conversion
// minimum score.
type SearchOptions struct {
	Source   string
	MinScore float64
	Limit    int
}

// Search scores every stored vector against the already-embedded queryVec by
// cosine similarity computed in-process; native only selects how a stored
// blob is decoded, and vec_distance_cosine is not used. Score is always in
// [-1, 1]; the zero vector scores 0 against anything.
func Search(ctx context.Context, db *sql.DB, native bool, queryVec []float32, opts SearchOptions) ([]*types.SearchResult, error) {
	query := `
		SELECT o.object_id, o.source_id, o.schema_name, o.object_name, o.object_type, o.fqname,
		       o.definition, o.comment, o.signature, o.owner, o.is_system, v.embedding, v.is_native
		FROM object_vectors v
		JOIN db_objects o ON o.object_id = v.object_id`
	var args []any
	if opts.Source != "" {
		query += ` JOIN sources s ON s.id = o.source_id WHERE s.name = ?`
		args = append(args, opts.Source)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.SearchResult
	for rows.Next() {
		var obj types.DbObject
		var isSystem, isNative int
		var blob []byte
		if err := rows.Scan(&obj.ObjectID, &obj.SourceID, &obj.SchemaName, &obj.ObjectName, &obj.ObjectType,
			&obj.Fqname, &obj.Definition, &obj.Comment, &obj.Signature, &obj.Owner, &isSystem, &blob, &isNative); err != nil {
			return nil, err
		}
		obj.IsSystem = isSystem != 0

		stored, err := decodeEmbedding(blob, isNative != 0)
		if err != nil {
			continue
		}
		score := cosine(queryVec, stored)
		if score < opts.MinScore {
			continue
		}
		out = append(out, &types.SearchResult{Object: &obj, Score: score, VectorScore: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortByScoreDesc(out)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func decodeEmbedding(blob []byte, native bool) ([]float32, error) {
	if native {
		return decodeNativeFloat32Blob(blob)
	}
	var vec []float32
	if err := json.Unmarshal(blob, &vec); err != nil {
		return nil, fmt.Errorf("decode vector json: %w", err)
	}
	return vec, nil
}

// decodeNativeFloat32Blob decodes the little-endian float32 array format
// sqlite-vec's vec_f32 materializes on disk.
func decodeNativeFloat32Blob(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("malformed vector blob: length %d not a multiple of 4", len(blob))
	}
	out := make([]float32, len(blob)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func sortByScoreDesc(results []*types.SearchResult) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Score > results[j-1].Score; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}
