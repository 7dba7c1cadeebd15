package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearAudit truncates the provider_events table. Schema is preserved; only
// data is removed. RESTART IDENTITY resets the id sequence.
func ClearAudit(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing provider event audit", clearLogPrefix))

	if _, err := pool.Exec(ctx, `TRUNCATE TABLE provider_events RESTART IDENTITY`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Provider event audit cleared", clearLogPrefix))
	return nil
}
