// Package db provides the provider event audit store: pgx pooling,
// migrations and the repository.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const logPrefix = "db:pool"

// Pool sizing for the audit store. Writes are small and bursty and come from
// the delivery workers only.
const (
	poolMaxConns = 8
	poolMinConns = 1
)

// NewPool opens a pgx pool for the audit store and verifies connectivity.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("%s - database URL is empty", logPrefix)
	}
	slog.Info(fmt.Sprintf("%s - Connecting to audit database", logPrefix))

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to parse database URL: %w", logPrefix, err)
	}
	cfg.MaxConns = poolMaxConns
	cfg.MinConns = poolMinConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create pool: %w", logPrefix, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to ping database: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Audit database ready (max %d conns)", logPrefix, poolMaxConns))
	return pool, nil
}

// RunMigrations applies migrations in order, each inside its own transaction.
// The first failure stops the run and names the offending file.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, migrations []Migration) error {
	slog.Info(fmt.Sprintf("%s - Running %d migrations", logPrefix, len(migrations)))

	for _, m := range migrations {
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, m.SQL)
			return err
		})
		if err != nil {
			return fmt.Errorf("%s - migration %s failed: %w", logPrefix, m.Name, err)
		}
		slog.Debug(fmt.Sprintf("%s - Applied %s", logPrefix, m.Name))
	}

	slog.Info(fmt.Sprintf("%s - Migrations complete", logPrefix))
	return nil
}

// MigrationStatus reports whether migrations have been applied (by checking for the provider_events table).
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, migrationPath string) error {
	const statusLogPrefix = "db:MigrationStatus"

	// provider_events is created by the first migration
	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = 'provider_events')`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s - failed to check schema: %w", statusLogPrefix, err)
	}

	files, err := LoadMigrationFiles(migrationPath)
	if err != nil {
		return fmt.Errorf("%s - load migration list: %w", statusLogPrefix, err)
	}

	state := "not applied (run 'app2app-broker migrate up')"
	if exists {
		state = "applied (provider_events present)"
	}
	fmt.Printf("Migration status: %s\n", state)
	for _, m := range files {
		fmt.Printf("  %s\n", m.Name)
	}
	return nil
}

// dropAuditSQL reverses 0001_provider_events.sql. The indexes go with the table.
const dropAuditSQL = `DROP TABLE IF EXISTS provider_events`

// MigrationDown removes the audit schema created by the migrations. Only the
// provider event history is lost: the broker keeps all routing state in memory
// and runs without the table while AUDIT_ENABLED is off.
func MigrationDown(ctx context.Context, pool *pgxpool.Pool) error {
	const downLogPrefix = "db:MigrationDown"
	if pool == nil {
		return fmt.Errorf("%s - no database pool", downLogPrefix)
	}

	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, dropAuditSQL)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s - drop provider_events failed: %w", downLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Audit schema removed (provider_events dropped)", downLogPrefix))
	fmt.Println("Migration down: provider_events dropped. Run 'app2app-broker migrate up' to recreate it.")
	return nil
}
