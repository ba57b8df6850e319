//go:build integration

package pgcache

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/specialistvlad/burstgraph/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/zclconf/go-cty/cty"
)

var postgresContainer *postgres.PostgresContainer

func TestMain(m *testing.M) {
	code := m.Run()
	if postgresContainer != nil {
		_ = postgresContainer.Terminate(context.Background())
	}
	os.Exit(code)
}

func setupStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	ctx := context.Background()

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error
		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("burstgraph_cache_test"),
			postgres.WithUsername("burstgraph"),
			postgres.WithPassword("burstgraph"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := Open(ctx, logger, databaseURL)
	require.NoError(t, err)

	_, err = s.db.ExecContext(ctx, "DELETE FROM node_outputs")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s, ctx
}

func TestStore_LoadMissing(t *testing.T) {
	s, ctx := setupStore(t)

	_, err := s.Load(ctx, "deadbeefdeadbeef")

	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestStore_UpsertAndLoad(t *testing.T) {
	s, ctx := setupStore(t)
	fp := "deadbeefdeadbeef"

	first := &cache.Record{Fingerprint: fp, NodeID: "a", NodeType: "print", Output: cty.ObjectVal(map[string]cty.Value{"v": cty.NumberIntVal(1)}), CreatedAt: time.Now()}
	second := &cache.Record{Fingerprint: fp, NodeID: "a", NodeType: "print", Output: cty.ObjectVal(map[string]cty.Value{"v": cty.NumberIntVal(2)}), CreatedAt: time.Now()}
	require.NoError(t, s.Store(ctx, fp, first))
	require.NoError(t, s.Store(ctx, fp, second))

	got, err := s.Load(ctx, fp)
	require.NoError(t, err)
	assert.True(t, second.Output.RawEquals(got.Output))

	var count int
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM node_outputs").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	s, ctx := setupStore(t)

	require.NoError(t, migrate(ctx, s.logger, s.db, cacheMigrations()))

	var version int
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM burstgraph_schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)
}
