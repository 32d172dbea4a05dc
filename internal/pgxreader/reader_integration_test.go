package pgxreader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("qpg_test"),
		postgres.WithUsername("qpg"),
		postgres.WithPassword("qpg"),
	)
	require.NoError(t, err, "failed to start postgres container")

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")
	return dsn
}

func TestConnectIntegration_EnforcesReadOnlySession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dsn := setupPostgres(t)
	ctx := context.Background()

	reader, err := Connect(ctx, dsn)
	require.NoError(t, err)
	defer reader.Close()

	var readOnly string
	err = reader.pool.QueryRow(ctx, "SHOW default_transaction_read_only").Scan(&readOnly)
	require.NoError(t, err)
	require.Equal(t, "on", readOnly)

	var stmtTimeout string
	err = reader.pool.QueryRow(ctx, "SHOW statement_timeout").Scan(&stmtTimeout)
	require.NoError(t, err)
	require.Equal(t, "5s", stmtTimeout)
}

func TestConnectIntegration_IntrospectsSchema(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dsn := setupPostgres(t)
	ctx := context.Background()

	reader, err := Connect(ctx, dsn)
	require.NoError(t, err)
	defer reader.Close()

	schemas, err := reader.Schemas(ctx)
	require.NoError(t, err)

	var found bool
	for _, s := range schemas {
		if s.Name == "public" {
			found = true
		}
	}
	require.True(t, found, "expected public schema to be introspected")
}
