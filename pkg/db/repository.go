package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/app2app-broker/pkg/events"
)

const repoLogPrefix = "db:repository"

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// Repository provides database access for the provider event audit.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertProviderEvent records one provider change. It implements
// events.EventStore.
func (r *Repository) InsertProviderEvent(ctx context.Context, event *events.ProviderChangedEvent) error {
	occurred := eventTime(event.Timestamp)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO provider_events (capability, app_id, connection_id, origin, action, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.Capability, event.AppID, int64(event.ConnectionID), event.Origin, event.Action, occurred)
	if err != nil {
		return fmt.Errorf("%s - insert provider event for %s: %w", repoLogPrefix, event.Capability, err)
	}
	slog.Debug(fmt.Sprintf("%s - InsertProviderEvent capability=%s action=%s", repoLogPrefix, event.Capability, event.Action))
	return nil
}

// ListProviderEvents returns the most recent events, newest first. A
// non-positive limit uses the default; limits are capped.
func (r *Repository) ListProviderEvents(ctx context.Context, limit int) ([]ProviderEvent, error) {
	limit = clampLimit(limit)

	rows, err := r.pool.Query(ctx,
		`SELECT id, capability, app_id, connection_id, origin, action, occurred_at, created
		 FROM provider_events
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s - list provider events: %w", repoLogPrefix, err)
	}

	out, err := pgx.CollectRows(rows, scanProviderEvent)
	if err != nil {
		return nil, fmt.Errorf("%s - scan provider events: %w", repoLogPrefix, err)
	}
	return out, nil
}

func scanProviderEvent(row pgx.CollectableRow) (ProviderEvent, error) {
	var e ProviderEvent
	var connID int64
	err := row.Scan(&e.ID, &e.Capability, &e.AppID, &connID, &e.Origin, &e.Action, &e.OccurredAt, &e.Created)
	e.ConnectionID = uint32(connID)
	return e, err
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// eventTime parses an RFC 3339 event timestamp, falling back to now.
func eventTime(ts string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}
