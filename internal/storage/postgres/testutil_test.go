package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL container for testing and applies the
// decision_states schema. Returns a cleanup function that must be called
// after tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := pgcontainer.Run(ctx, "postgres:15-alpine",
		pgcontainer.WithDatabase("testdb"),
		pgcontainer.WithUsername("test"),
		pgcontainer.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	applySchema(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// applySchema creates the decision_states table. Kept inline instead of
// importing the migrations package to avoid an import cycle in tests.
func applySchema(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS decision_states (
			token_id            TEXT PRIMARY KEY,
			pair_address        TEXT NOT NULL DEFAULT '',
			decision            TEXT NOT NULL DEFAULT 'unknown',
			state               TEXT NOT NULL DEFAULT 'collecting',
			segment_label_1     TEXT NOT NULL DEFAULT 'unknown',
			segment_label_2     TEXT NOT NULL DEFAULT 'unknown',
			segment_label_3     TEXT NOT NULL DEFAULT 'unknown',
			entry_iteration     BIGINT,
			entry_price         DOUBLE PRECISION,
			plan_exit_iteration BIGINT,
			plan_exit_price     DOUBLE PRECISION,
			plan_hit            BOOLEAN NOT NULL DEFAULT FALSE,
			frozen              BOOLEAN NOT NULL DEFAULT FALSE,
			archive             BOOLEAN NOT NULL DEFAULT FALSE,
			checkpoints_seen    BIGINT[] NOT NULL DEFAULT '{}',
			created_at_ms       BIGINT NOT NULL,
			updated_at_ms       BIGINT NOT NULL
		)
	`)
	require.NoError(t, err, "failed to apply schema")
}
