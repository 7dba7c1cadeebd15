package server

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"
)

// HealthChecks reports the state of each dependency. Database is nil when the
// audit store is disabled.
type HealthChecks struct {
	Comms    bool  `json:"comms"`
	Database *bool `json:"database,omitempty"`
}

// HealthOutput is served on /health and by the broker health method.
type HealthOutput struct {
	Status    string       `json:"status"`
	Checks    HealthChecks `json:"checks"`
	Timestamp string       `json:"timestamp"`
}

func checkHealth(ctx context.Context, nc *comms.Conn, pool *pgxpool.Pool) *HealthOutput {
	out := &HealthOutput{
		Status:    "healthy",
		Checks:    HealthChecks{Comms: nc != nil && nc.IsConnected()},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if !out.Checks.Comms {
		out.Status = "unhealthy"
	}
	if pool != nil {
		ok := pool.Ping(ctx) == nil
		out.Checks.Database = &ok
		if !ok {
			out.Status = "unhealthy"
		}
	}
	return out
}
