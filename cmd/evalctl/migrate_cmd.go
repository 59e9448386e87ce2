package main

import (
	"context"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/iota-uz/perfeval/migrations"
	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

type migrateOutput struct {
	Command string              `json:"command"`
	Applied []migrations.Result `json:"applied,omitempty"`
	Version int64               `json:"version"`
}

type migrationStep func(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS) ([]migrations.Result, error)

func newMigrateCmd(opts *appOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the PostgreSQL schema",
	}
	cmd.AddCommand(newMigrateStepCmd(opts, "up", "Apply all pending migrations", migrations.Up))
	cmd.AddCommand(newMigrateStepCmd(opts, "down", "Roll back the latest migration", migrations.Down))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd, opts, func(ctx context.Context, a *app) error {
				v, err := migrations.Version(ctx, a.pool, migrations.FS(a.migrationsDir))
				if err != nil {
					return withCode(exitStorage, err)
				}
				return writeJSON(cmd, migrateOutput{Command: "migrate version", Version: v})
			})
		},
	})
	return cmd
}

func newMigrateStepCmd(opts *appOptions, use, short string, step migrationStep) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd, opts, func(ctx context.Context, a *app) error {
				fsys := migrations.FS(a.migrationsDir)
				applied, err := step(ctx, a.pool, fsys)
				if err != nil {
					return withCode(exitStorage, err)
				}
				v, err := migrations.Version(ctx, a.pool, fsys)
				if err != nil {
					return withCode(exitStorage, err)
				}
				return writeJSON(cmd, migrateOutput{Command: "migrate " + use, Applied: applied, Version: v})
			})
		},
	}
}

// runMigrations needs a PostgreSQL pool but no principal: schema changes are an
// operator action outside the evaluation access model.
func runMigrations(cmd *cobra.Command, opts *appOptions, fn func(ctx context.Context, a *app) error) error {
	return runWithApp(cmd, opts, func(ctx context.Context, a *app, _ domain.Principal) error {
		if a.pool == nil {
			return usageError("migrate requires the postgres store")
		}
		return fn(ctx, a)
	})
}
