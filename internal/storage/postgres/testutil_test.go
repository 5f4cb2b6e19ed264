package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"fx-trend-lab/internal/storage/migrations"
)

// migratedPool starts a throwaway PostgreSQL, applies the embedded schema
// through the migration runner and returns a pool to it.
// The container is terminated when the test ends.
func migratedPool(t *testing.T) *Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("fx_history"),
		tcpostgres.WithUsername("fx"),
		tcpostgres.WithPassword("fx"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "postgres connection string")

	pool, err := NewPool(ctx, dsn, 4)
	require.NoError(t, err, "open pool")
	t.Cleanup(pool.Close)

	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	require.NoError(t, err, "migrate")
	t.Logf("applied migrations: %v", applied)

	return pool
}
