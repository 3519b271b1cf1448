package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const migrationsDir = "migrations"

var migrationCommands = map[string]func(ctx context.Context, db *sql.DB) error{
	"up": func(ctx context.Context, db *sql.DB) error {
		return goose.UpContext(ctx, db, migrationsDir)
	},
	"down": func(ctx context.Context, db *sql.DB) error {
		return goose.DownContext(ctx, db, migrationsDir)
	},
	"status": func(ctx context.Context, db *sql.DB) error {
		return goose.StatusContext(ctx, db, migrationsDir)
	},
	"version": func(ctx context.Context, db *sql.DB) error {
		return goose.VersionContext(ctx, db, migrationsDir)
	},
}

// Migrate applies all pending goose migrations to the database behind pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return RunMigrations(ctx, pool, "up")
}

// RunMigrations runs one goose command (up, down, status or version)
// against the embedded migrations.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, command string) error {
	run, ok := migrationCommands[command]
	if !ok {
		return fmt.Errorf("platform/db: unknown migrate command %q", command)
	}
	if pool == nil {
		return fmt.Errorf("platform/db: migrate %s: nil pool", command)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("platform/db: goose set dialect: %w", err)
	}

	if err := run(ctx, sqlDB); err != nil {
		return fmt.Errorf("platform/db: goose %s: %w", command, err)
	}

	return nil
}
