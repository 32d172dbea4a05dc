// Package sources implements the CRUD registry over registered databases,
// cascading deletion of their dependent contexts and normalized objects.
package sources

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/generalpiston/qpg/internal/dsn"
	"github.com/generalpiston/qpg/internal/store"
	"github.com/generalpiston/qpg/internal/types"
)

// Registry provides CRUD operations over sources.
type Registry struct {
	store *store.Store
}

// New returns a Registry backed by s.
func New(s *store.Store) *Registry {
	return &Registry{store: s}
}

// Add registers a new source. name must be unique; dsn is normalized to
// read-only before storage. include/skip are stored as sorted, deduplicated
// JSON arrays.
func (r *Registry) Add(ctx context.Context, name, rawDSN string, includeSchemas, skipPatterns []string) (*types.Source, error) {
	normalizedDSN, err := dsn.EnforceReadOnlyDSN(rawDSN)
	if err != nil {
		return nil, fmt.Errorf("normalize dsn: %w", err)
	}

	includeJSON, err := sortedUniqueJSON(includeSchemas)
	if err != nil {
		return nil, err
	}
	skipJSON, err := sortedUniqueJSON(skipPatterns)
	if err != nil {
		return nil, err
	}

	now := nowISO()
	r.store.Mu.Lock()
	defer r.store.Mu.Unlock()

	_, err = r.store.DB.ExecContext(ctx, `
		INSERT INTO sources (name, dsn, include_schemas, skip_patterns, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		name, normalizedDSN, includeJSON, skipJSON, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &types.SourceExistsError{Name: name}
		}
		return nil, err
	}

	return r.getLocked(ctx, name)
}

// List returns all sources ordered by name.
func (r *Registry) List(ctx context.Context) ([]*types.Source, error) {
	r.store.Mu.Lock()
	defer r.store.Mu.Unlock()

	rows, err := r.store.DB.QueryContext(ctx, `
		SELECT id, name, dsn, include_schemas, skip_patterns, created_at, updated_at, last_indexed_at, last_error
		FROM sources ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// Get fetches a source by name.
func (r *Registry) Get(ctx context.Context, name string) (*types.Source, error) {
	r.store.Mu.Lock()
	defer r.store.Mu.Unlock()
	return r.getLocked(ctx, name)
}

func (r *Registry) getLocked(ctx context.Context, name string) (*types.Source, error) {
	row := r.store.DB.QueryRowContext(ctx, `
		SELECT id, name, dsn, include_schemas, skip_patterns, created_at, updated_at, last_indexed_at, last_error
		FROM sources WHERE name = ?`, name)
	src, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, &types.SourceNotFoundError{Name: name}
	}
	return src, err
}

// Rename changes a source's name. The target name must not already exist.
func (r *Registry) Rename(ctx context.Context, oldName, newName string) error {
	r.store.Mu.Lock()
	defer r.store.Mu.Unlock()

	res, err := r.store.DB.ExecContext(ctx, `UPDATE sources SET name = ?, updated_at = ? WHERE name = ?`,
		newName, nowISO(), oldName)
	if err != nil {
		if isUniqueViolation(err) {
			return &types.SourceExistsError{Name: newName}
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &types.SourceNotFoundError{Name: oldName}
	}
	return nil
}

// Delete removes a source and cascades to its db_objects (and their
// children, via foreign keys) plus every context whose target_uri names
// this source. Contexts of other sources are left untouched.
func (r *Registry) Delete(ctx context.Context, name string) error {
	r.store.Mu.Lock()
	defer r.store.Mu.Unlock()

	src, err := r.getLocked(ctx, name)
	if err != nil {
		return err
	}

	tx, err := r.store.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM db_objects WHERE source_id = ?`, src.ID); err != nil {
		return err
	}

	exact := "qpg://" + name
	prefixSlash := exact + "/%"
	prefixHash := exact + "#%"
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM contexts WHERE target_uri = ? OR target_uri LIKE ? OR target_uri LIKE ?`,
		exact, prefixSlash, prefixHash); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, src.ID); err != nil {
		return err
	}

	return tx.Commit()
}

// MarkIndexed records a successful re-index.
func (r *Registry) MarkIndexed(ctx context.Context, name string) error {
	r.store.Mu.Lock()
	defer r.store.Mu.Unlock()
	now := nowISO()
	res, err := r.store.DB.ExecContext(ctx, `
		UPDATE sources SET last_indexed_at = ?, last_error = '', updated_at = ? WHERE name = ?`, now, now, name)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(res, name)
}

// MarkError records the error from a failed re-index attempt without
// touching last_indexed_at.
func (r *Registry) MarkError(ctx context.Context, name, message string) error {
	r.store.Mu.Lock()
	defer r.store.Mu.Unlock()
	res, err := r.store.DB.ExecContext(ctx, `
		UPDATE sources SET last_error = ?, updated_at = ? WHERE name = ?`, message, nowISO(), name)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(res, name)
}

func rowsAffectedOrNotFound(res sql.Result, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &types.SourceNotFoundError{Name: name}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*types.Source, error) {
	var s types.Source
	var includeJSON, skipJSON string
	var createdAt, updatedAt string
	var lastIndexedAt sql.NullString
	if err := row.Scan(&s.ID, &s.Name, &s.DSN, &includeJSON, &skipJSON, &createdAt, &updatedAt, &lastIndexedAt, &s.LastError); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(includeJSON), &s.IncludeSchemas)
	_ = json.Unmarshal([]byte(skipJSON), &s.SkipPatterns)
	s.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	if lastIndexedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastIndexedAt.String)
		if err == nil {
			s.LastIndexedAt = &t
		}
	}
	return &s, nil
}

func sortedUniqueJSON(values []string) (string, error) {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}

func nowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
