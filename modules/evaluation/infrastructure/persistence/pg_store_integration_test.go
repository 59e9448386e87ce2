package persistence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/perfeval/migrations"
	"github.com/iota-uz/perfeval/modules/evaluation/domain"
	"github.com/iota-uz/perfeval/pkg/configuration"
	"github.com/iota-uz/perfeval/pkg/logging"
)

func setupPgStore(tb testing.TB) *PgStore {
	tb.Helper()

	cfg := configuration.Use()
	if !canDial(tb, cfg.Database.Host, cfg.Database.Port) {
		if isCI() {
			tb.Fatalf("postgres is not reachable (DB_HOST/DB_PORT).")
		}
		tb.Skip("postgres is not reachable; skipping pg store integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sum := sha256.Sum256([]byte(tb.Name()))
	schema := "t_" + hex.EncodeToString(sum[:8])

	admin, err := pgxpool.New(ctx, cfg.Database.ConnectionString())
	require.NoError(tb, err)
	tb.Cleanup(admin.Close)
	_, err = admin.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE; CREATE SCHEMA %s", schema, schema))
	require.NoError(tb, err)
	tb.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schema))
	})

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	require.NoError(tb, err)
	poolCfg.MaxConns = 4
	poolCfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	require.NoError(tb, err)
	tb.Cleanup(pool.Close)

	_, err = migrations.Up(ctx, pool, migrations.FS(""))
	require.NoError(tb, err)

	return NewPgStore(pool, logging.Discard())
}

func TestPgStoreContract(t *testing.T) {
	store := setupPgStore(t)

	// The role seed migration fills roles; the contract only touches other tables.
	roles, err := domain.QueryAs[domain.Role](context.Background(), store, domain.KindRole, domain.All())
	require.NoError(t, err)
	require.Len(t, roles, 3)
	for _, r := range roles {
		require.True(t, r.Protected())
	}

	runStoreContract(t, store)
}
