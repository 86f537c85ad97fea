//go:build integration

// cmd/service/integration_test.go
package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github-contributions/internal/config"
	"github-contributions/internal/storage"
)

func setupTestDatabase(ctx context.Context, t *testing.T) (string, func()) {
	// Start a postgres container
	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	teardown := func() {
		err := pgContainer.Terminate(ctx)
		require.NoError(t, err)
	}
	return connStr, teardown
}

func TestService_PostgresIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	connStr, teardown := setupTestDatabase(ctx, t)
	defer teardown()
	server, historyCalls := newGraphQLServer(t, 120)

	cfg := testConfig(server.URL)
	cfg.StorageDriver = config.DriverPostgres
	cfg.DBURL = connStr
	cfg.MigrationsPath = "file://../../migrations"
	cfg.CacheSize = 0

	svc, err := newService(ctx, cfg, testLogger(), nil)
	require.NoError(t, err)
	defer svc.Close()

	// --- ACT ---
	changed, err := svc.syncer.Run(ctx, "octocat")
	require.NoError(t, err)
	assert.True(t, changed)

	// --- ASSERT ---
	// Query the database directly to verify every item was written.
	dbpool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer dbpool.Close()

	var ids []string
	rows, err := dbpool.Query(ctx, "SELECT id FROM items")
	require.NoError(t, err)
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	assert.ElementsMatch(t, []string{"U_1", "U_1-stats", "octocat", "octocat-repositories"}, ids)
	assert.Equal(t, int32(2), atomic.LoadInt32(historyCalls), "120 commits take two pages")

	// A fresh process resumes from the stored state and finds nothing new.
	again, err := newService(ctx, cfg, testLogger(), nil)
	require.NoError(t, err)
	defer again.Close()

	changed, err = again.syncer.Run(ctx, "octocat")
	require.NoError(t, err)
	assert.False(t, changed)

	data, ok, err := storage.NewPostgresStore(dbpool).ReadItem(ctx, storage.StatsID("octocat"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, data, `"commitCount":120`)
}
