package main

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/perfeval/modules/evaluation"
	"github.com/iota-uz/perfeval/modules/evaluation/domain"
	"github.com/iota-uz/perfeval/modules/evaluation/infrastructure/persistence"
	"github.com/iota-uz/perfeval/pkg/authz"
	"github.com/iota-uz/perfeval/pkg/configuration"
)

type appOptions struct {
	backend     string
	fixtures    string
	token       string
	asUser      int64
	asRole      string
	department  int64
	dumpMetrics bool
}

type app struct {
	logger        *logrus.Logger
	store         domain.Store
	pool          *pgxpool.Pool
	migrationsDir string
	authz         *authz.Service
	module        *evaluation.Module
	jwtSecret     []byte
	production    bool
	closers       []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// openApp is swapped out by tests.
var openApp = openConfiguredApp

func openConfiguredApp(ctx context.Context, opts *appOptions) (*app, error) {
	cfg := configuration.Use()
	a := &app{
		logger:        cfg.Logger(),
		migrationsDir: cfg.MigrationsDir,
		jwtSecret:     []byte(cfg.JWTSecret),
		production:    cfg.GoAppEnvironment == configuration.Production,
	}

	backend := cfg.StoreBackend
	if opts.backend != "" {
		backend = strings.ToLower(strings.TrimSpace(opts.backend))
	}
	if opts.fixtures != "" && backend != configuration.StoreMemory {
		return nil, usageError("--fixtures only applies to the memory store")
	}

	switch backend {
	case configuration.StorePostgres:
		pool, err := connectDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.store = persistence.NewPgStore(pool, a.logger)
		a.closers = append(a.closers, pool.Close)
	case configuration.StoreMongo:
		client, err := persistence.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, withCode(exitStorage, err)
		}
		a.closers = append(a.closers, func() { _ = client.Disconnect(context.Background()) })
		store := persistence.NewMongoStore(client, cfg.Mongo.Database, a.logger)
		if err := store.EnsureIndexes(ctx); err != nil {
			a.Close()
			return nil, withCode(exitStorage, err)
		}
		a.store = store
	case configuration.StoreMemory:
		store, err := memoryStore(opts.fixtures)
		if err != nil {
			return nil, err
		}
		a.store = store
	default:
		return nil, usageError("unknown store %q (expected postgres|mongo|memory)", backend)
	}

	svc, err := authz.NewService(authz.DefaultConfig())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.authz = svc
	a.module = evaluation.New(a.store, svc, nil, a.logger)
	return a, nil
}

func memoryStore(fixtures string) (*persistence.MemoryStore, error) {
	store := persistence.NewMemoryStore()
	if fixtures == "" {
		return store, nil
	}
	entities, err := persistence.LoadFixtureFile(fixtures)
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	store.Seed(entities...)
	return store, nil
}

func connectDB(ctx context.Context, db configuration.DatabaseOptions) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(db.ConnectionString())
	if err != nil {
		return nil, withCode(exitUsage, errors.Wrap(err, "db config"))
	}
	if db.MaxConns > 0 {
		poolCfg.MaxConns = db.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, withCode(exitStorage, errors.Wrap(err, "db connect failed"))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, withCode(exitStorage, errors.Wrap(err, "db ping failed"))
	}
	return pool, nil
}

// principal resolves the caller. A token always wins; explicit flags are a
// development convenience. Unknown roles resolve to a principal that every
// service denies.
func (a *app) principal(opts *appOptions) (domain.Principal, error) {
	if opts.token != "" {
		if len(a.jwtSecret) == 0 {
			return domain.Principal{}, usageError("JWT_SECRET is not configured")
		}
		p, err := domain.ParseToken(opts.token, a.jwtSecret)
		if err != nil {
			return domain.Principal{}, withCode(exitNotAuthorized, err)
		}
		return p, nil
	}
	if a.production {
		return domain.Principal{}, usageError("--token is required in production")
	}
	role, _ := domain.ParseRole(opts.asRole)
	return domain.Principal{UserID: opts.asUser, Role: role, DepartmentID: opts.department}, nil
}

// runWithApp opens the app, resolves the principal and hands both to fn.
func runWithApp(cmd *cobra.Command, opts *appOptions, fn func(ctx context.Context, a *app, p domain.Principal) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.principal(opts)
	if err != nil {
		return err
	}
	return fn(ctx, a, p)
}

func parseKindFlag(s string) (domain.Kind, error) {
	kind, err := domain.ParseKind(s)
	if err != nil {
		return "", withCode(exitUsage, err)
	}
	return kind, nil
}
