// Package pgxreader implements pgreader.PgReader against a live PostgreSQL
// connection using jackc/pgx. It is the one package in the module allowed
// to depend on a concrete driver; everything else speaks the interface.
package pgxreader

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/generalpiston/qpg/internal/pgreader"
	"github.com/generalpiston/qpg/internal/types"
)

// Reader is a pgreader.PgReader backed by a pgx connection pool.
type Reader struct {
	pool *pgxpool.Pool
}

// defaultStatementTimeout and defaultIdleInTransactionTimeout are the
// session-guard values from the read-only envelope; tunable by a future
// Options struct if a caller needs to override them.
const (
	defaultStatementTimeout         = 5 * time.Second
	defaultIdleInTransactionTimeout = 10 * time.Second
	connectMaxElapsedTime           = 10 * time.Second
)

// Connect opens a pool against dsn and installs the read-only envelope's
// session guards: default_transaction_read_only, a statement_timeout, and
// an idle_in_transaction_session_timeout, so no introspection query can
// mutate the source or block indefinitely. The initial dial and ping are
// retried with exponential backoff to ride out transient network blips.
func Connect(ctx context.Context, dsn string) (*Reader, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrPostgresDependency, err)
	}
	cfg.MaxConns = 4
	cfg.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"
	cfg.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", defaultStatementTimeout.Milliseconds())
	cfg.ConnConfig.RuntimeParams["idle_in_transaction_session_timeout"] = fmt.Sprintf("%d", defaultIdleInTransactionTimeout.Milliseconds())

	var pool *pgxpool.Pool
	dial := func() error {
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := p.Ping(pingCtx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	}

	retry := backoff.NewExponentialBackOff()
	retry.MaxElapsedTime = connectMaxElapsedTime
	if err := backoff.Retry(dial, backoff.WithContext(retry, ctx)); err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrPostgresDependency, err)
	}
	return &Reader{pool: pool}, nil
}

func (r *Reader) Close() error {
	r.pool.Close()
	return nil
}

func (r *Reader) Schemas(ctx context.Context) ([]pgreader.SchemaRow, error) {
	rows, err := r.pool.Query(ctx, schemasQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pgreader.SchemaRow
	for rows.Next() {
		var row pgreader.SchemaRow
		if err := rows.Scan(&row.Name, &row.Owner); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Reader) Relations(ctx context.Context) ([]pgreader.RelationRow, error) {
	rows, err := r.pool.Query(ctx, relationsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pgreader.RelationRow
	for rows.Next() {
		var row pgreader.RelationRow
		if err := rows.Scan(&row.Schema, &row.Name, &row.Kind, &row.Definition, &row.Comment, &row.Owner); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Reader) Extensions(ctx context.Context) ([]pgreader.ExtensionRow, error) {
	rows, err := r.pool.Query(ctx, extensionsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pgreader.ExtensionRow
	for rows.Next() {
		var row pgreader.ExtensionRow
		if err := rows.Scan(&row.Name, &row.Comment); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Reader) Functions(ctx context.Context) ([]pgreader.FunctionRow, error) {
	rows, err := r.pool.Query(ctx, functionsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pgreader.FunctionRow
	for rows.Next() {
		var row pgreader.FunctionRow
		if err := rows.Scan(&row.Schema, &row.Name, &row.Signature, &row.Definition, &row.Comment, &row.Owner); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Reader) Columns(ctx context.Context) ([]pgreader.ColumnRow, error) {
	rows, err := r.pool.Query(ctx, columnsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pgreader.ColumnRow
	for rows.Next() {
		var row pgreader.ColumnRow
		if err := rows.Scan(&row.Schema, &row.Relation, &row.Name, &row.DataType, &row.Nullable, &row.Ordinal, &row.Default, &row.Comment); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Reader) Constraints(ctx context.Context) ([]pgreader.ConstraintRow, error) {
	rows, err := r.pool.Query(ctx, constraintsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pgreader.ConstraintRow
	for rows.Next() {
		var row pgreader.ConstraintRow
		var kindByte string
		if err := rows.Scan(&row.Schema, &row.Relation, &row.Name, &kindByte, &row.Columns, &row.Definition); err != nil {
			return nil, err
		}
		row.Kind = constraintKindName(kindByte)
		out = append(out, row)
	}
	return out, rows.Err()
}

func constraintKindName(contype string) string {
	switch contype {
	case "p":
		return "primary key"
	case "f":
		return "foreign key"
	case "u":
		return "unique"
	case "c":
		return "check"
	case "x":
		return "exclusion"
	default:
		return contype
	}
}

func (r *Reader) Indexes(ctx context.Context) ([]pgreader.IndexRow, error) {
	rows, err := r.pool.Query(ctx, indexesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pgreader.IndexRow
	for rows.Next() {
		var row pgreader.IndexRow
		if err := rows.Scan(&row.Schema, &row.Relation, &row.Name, &row.Unique, &row.Primary, &row.Definition, &row.Columns); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Reader) Dependencies(ctx context.Context) ([]pgreader.DependencyRow, error) {
	rows, err := r.pool.Query(ctx, dependenciesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pgreader.DependencyRow
	for rows.Next() {
		var row pgreader.DependencyRow
		if err := rows.Scan(&row.Schema, &row.Name, &row.DependsOnSchema, &row.DependsOnName, &row.DependencyType); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Reader) CurrentUser(ctx context.Context) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, currentUserQuery).Scan(&name)
	return name, err
}

func (r *Reader) InheritedRoles(ctx context.Context, currentUser string) ([]pgreader.RoleRow, error) {
	rows, err := r.pool.Query(ctx, inheritedRolesQuery, currentUser)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pgreader.RoleRow
	for rows.Next() {
		var row pgreader.RoleRow
		if err := rows.Scan(&row.RoleName); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Reader) PrivilegeViolations(ctx context.Context, roles []string, allowExecute bool) ([]string, error) {
	rows, err := r.pool.Query(ctx, privilegeViolationsQuery, roles, allowExecute)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

var _ pgreader.PgReader = (*Reader)(nil)
