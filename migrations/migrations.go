// Package migrations embeds the PostgreSQL schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"os"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var embedded embed.FS

// FS returns the embedded migrations, or dir on disk when it is non-empty and exists.
func FS(dir string) fs.FS {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir)
		}
	}
	return embedded
}

// Result summarises one applied (or rolled back) migration.
type Result struct {
	Version  int64  `json:"version"`
	Source   string `json:"source"`
	Duration string `json:"duration"`
}

func newProvider(pool *pgxpool.Pool, fsys fs.FS) (*goose.Provider, *sql.DB, error) {
	db := stdlib.OpenDBFromPool(pool)
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		_ = db.Close()
		return nil, nil, errors.Wrap(err, "goose provider")
	}
	return provider, db, nil
}

// Up applies every pending migration.
func Up(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS) ([]Result, error) {
	provider, db, err := newProvider(pool, fsys)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "migrate up")
	}
	return toResults(results), nil
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS) ([]Result, error) {
	provider, db, err := newProvider(pool, fsys)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	result, err := provider.Down(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "migrate down")
	}
	return toResults([]*goose.MigrationResult{result}), nil
}

// Version reports the current schema version.
func Version(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS) (int64, error) {
	provider, db, err := newProvider(pool, fsys)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	v, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "migrate version")
	}
	return v, nil
}

func toResults(in []*goose.MigrationResult) []Result {
	out := make([]Result, 0, len(in))
	for _, r := range in {
		if r == nil || r.Source == nil {
			continue
		}
		out = append(out, Result{
			Version:  r.Source.Version,
			Source:   r.Source.Path,
			Duration: r.Duration.String(),
		})
	}
	return out
}
