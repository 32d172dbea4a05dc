package contexts

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/generalpiston/qpg/internal/store"
	"github.com/generalpiston/qpg/internal/types"
)

// SourceExistsChecker is the narrow capability Store needs from the sources
// registry to validate add_context's target at write time.
type SourceExistsChecker interface {
	Get(ctx context.Context, name string) (*types.Source, error)
}

// Store is the contexts repository.
type Store struct {
	store   *store.Store
	sources SourceExistsChecker
}

// New returns a contexts Store backed by s, validating targets against sources.
func New(s *store.Store, sources SourceExistsChecker) *Store {
	return &Store{store: s, sources: sources}
}

// Add parses, validates, and persists a new context record.
func (s *Store) Add(ctx context.Context, targetURI, body string) (*types.ContextRecord, error) {
	scope, err := ParseContextTarget(targetURI)
	if err != nil {
		return nil, err
	}
	if _, err := s.sources.Get(ctx, scope.Source); err != nil {
		return nil, &types.ContextSourceNotFoundError{Source: scope.Source}
	}

	s.store.Mu.Lock()
	defer s.store.Mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.store.DB.ExecContext(ctx, `
		INSERT INTO contexts (target_uri, body, created_at) VALUES (?, ?, ?)`, targetURI, body, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, now)
	return &types.ContextRecord{ID: id, TargetURI: targetURI, Body: body, CreatedAt: createdAt}, nil
}

// List returns every stored context ordered by id (insertion order).
func (s *Store) List(ctx context.Context) ([]*types.ContextRecord, error) {
	s.store.Mu.Lock()
	defer s.store.Mu.Unlock()

	rows, err := s.store.DB.QueryContext(ctx, `SELECT id, target_uri, body, created_at FROM contexts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.ContextRecord
	for rows.Next() {
		var rec types.ContextRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.TargetURI, &rec.Body, &createdAt); err != nil {
			return nil, err
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Remove deletes a context by numeric id or by its exact target URI.
func (s *Store) Remove(ctx context.Context, idOrTarget string) error {
	s.store.Mu.Lock()
	defer s.store.Mu.Unlock()

	var res sql.Result
	var err error
	if id, parseErr := strconv.ParseInt(idOrTarget, 10, 64); parseErr == nil {
		res, err = s.store.DB.ExecContext(ctx, `DELETE FROM contexts WHERE id = ?`, id)
	} else {
		res, err = s.store.DB.ExecContext(ctx, `DELETE FROM contexts WHERE target_uri = ?`, idOrTarget)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &types.InvalidContextTarget{Target: idOrTarget, Reason: "no matching context"}
	}
	return nil
}

// ResolveEffectiveContext iterates all stored contexts in insertion order,
// keeps the bodies whose scope applies to ref, dedupes by value keeping the
// first occurrence, and joins the survivors with newlines. Rows whose
// target_uri fails to parse are silently skipped.
func ResolveEffectiveContext(records []*types.ContextRecord, ref types.ObjectRef) string {
	seen := make(map[string]bool)
	var parts []string
	for _, rec := range records {
		scope, err := ParseContextTarget(rec.TargetURI)
		if err != nil {
			continue
		}
		if !Applies(scope, ref) {
			continue
		}
		if seen[rec.Body] {
			continue
		}
		seen[rec.Body] = true
		parts = append(parts, rec.Body)
	}
	return joinNewline(parts)
}

func joinNewline(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += "\n" + p
	}
	return out
}
