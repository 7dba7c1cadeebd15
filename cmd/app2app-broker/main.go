// Package main is the entrypoint for the app2app-broker.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/app2app-broker/internal/config"
	"github.com/morezero/app2app-broker/internal/server"
	"github.com/morezero/app2app-broker/pkg/db"
)

const usage = `Usage: app2app-broker [command]
       app2app-broker serve              Start the broker (COMMS, HTTP, WebSocket gateway).
       app2app-broker migrate up         Run audit database migrations.
       app2app-broker migrate down       Drop the audit schema (provider event history only).
       app2app-broker migrate status     Show migration status.
       app2app-broker clear              Truncate the provider audit trail; schema is preserved.
       app2app-broker events [limit]     Print the most recent provider events as JSON.

Commands:
  serve           (default) Start the broker.
  migrate up      Run database migrations only.
  migrate down    Drop provider_events; broker state is unaffected.
  migrate status  Show current migration status.
  clear           Truncate provider_events.
  events [limit]  List recent provider registration changes (default 50).

Environment: COMMS_URL, BROKER_SUBJECT, HTTP_PORT, WS_PATH, METHODS_FILE, LOG_LEVEL, LOG_FORMAT.
Audit: AUDIT_ENABLED, DATABASE_URL (required for migrate, clear, events), MIGRATION_PATH.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		sub := "up"
		if len(args) > 1 {
			sub = args[1]
		}
		switch sub {
		case "up":
			if err := runMigrateUp(); err != nil {
				log.Fatalf("app2app-broker migrate up: %v", err)
			}
		case "status":
			if err := runMigrateStatus(); err != nil {
				log.Fatalf("app2app-broker migrate status: %v", err)
			}
		case "down":
			if err := runMigrateDown(); err != nil {
				log.Fatalf("app2app-broker migrate down: %v", err)
			}
		default:
			log.Fatalf("app2app-broker migrate: unknown subcommand %q (use up, down, status)", sub)
		}
		return
	case "clear":
		if err := runClear(); err != nil {
			log.Fatalf("app2app-broker clear: %v", err)
		}
		return
	case "events":
		limit, err := parseLimit(args[1:])
		if err != nil {
			log.Fatalf("app2app-broker events: %v", err)
		}
		if err := runEvents(limit); err != nil {
			log.Fatalf("app2app-broker events: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("app2app-broker: %v", err)
	}
}

// parseLimit reads the optional positional limit of the events command. Zero
// means the repository default.
func parseLimit(args []string) (int, error) {
	if len(args) == 0 || args[0] == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("limit must be a non-negative integer, got %q", args[0])
	}
	return n, nil
}

// withPool loads config, validates it for database commands and runs fn with
// a connected pool.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}

func runMigrateUp() error {
	return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
		migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
		if err != nil {
			return fmt.Errorf("load migrations: %w", err)
		}
		if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		return nil
	})
}

func runMigrateStatus() error {
	return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
		return db.MigrationStatus(ctx, pool, cfg.MigrationPath)
	})
}

func runMigrateDown() error {
	return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
		return db.MigrationDown(ctx, pool)
	})
}

func runClear() error {
	return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
		if err := db.ClearAudit(ctx, pool); err != nil {
			return fmt.Errorf("clear audit: %w", err)
		}
		return nil
	})
}

func runEvents(limit int) error {
	return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
		list, err := db.NewRepository(pool).ListProviderEvents(ctx, limit)
		if err != nil {
			return fmt.Errorf("list provider events: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	})
}
