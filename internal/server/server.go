// Package server orchestrates all components: COMMS client, audit DB, worker
// pool, broker, dispatcher, WebSocket gateway and the HTTP endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/app2app-broker/internal/config"
	"github.com/morezero/app2app-broker/pkg/broker"
	"github.com/morezero/app2app-broker/pkg/commsutil"
	"github.com/morezero/app2app-broker/pkg/correlation"
	"github.com/morezero/app2app-broker/pkg/db"
	"github.com/morezero/app2app-broker/pkg/dispatcher"
	"github.com/morezero/app2app-broker/pkg/events"
	"github.com/morezero/app2app-broker/pkg/gateway"
	"github.com/morezero/app2app-broker/pkg/resolver"
	"github.com/morezero/app2app-broker/pkg/responder"
	"github.com/morezero/app2app-broker/pkg/workerpool"
)

const logPrefix = "server:server"

// Server is the app2app-broker orchestrator.
type Server struct {
	cfg *config.Config
	ctx context.Context

	nc      *comms.Conn
	pool    *pgxpool.Pool
	workers *workerpool.Pool

	directory *responder.Directory
	broker    *broker.Broker
	gateway   *gateway.Gateway
	disp      *dispatcher.Dispatcher

	brokerSubject string
	sub           *comms.Subscription
	httpServer    *http.Server
	listener      net.Listener
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.SetDefault(slog.New(NewLogHandler(os.Stdout, cfg.LogFormat, ParseLevel(cfg.LogLevel))))
	slog.Info(fmt.Sprintf("%s - Starting app2app-broker", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		s.Shutdown(context.Background())
		return err
	}

	slog.Info(fmt.Sprintf("%s - app2app-broker is ready", logPrefix))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	s.Shutdown(context.Background())
	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// New connects to COMMS (and the audit DB when enabled) and wires every
// component. Nothing is served until Start.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg, ctx: ctx}

	// Step 1: Load method table
	table, err := resolver.LoadMethodTable(cfg.MethodsFile)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load method table: %w", logPrefix, err)
	}
	res, err := resolver.New(table)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid method table: %w", logPrefix, err)
	}

	// Step 2: Connect to COMMS
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}
	s.nc = nc

	// Step 3: Audit database, when enabled
	publishers := events.Fanout{
		events.NewCommsPublisher(nc, &events.CommsPublisherOpts{GlobalChangeSubject: cfg.ProviderEventSubject}),
	}
	if cfg.AuditEnabled {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		s.pool = pool

		if cfg.RunMigrations {
			migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
			if err != nil {
				s.closeResources()
				return nil, fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
			}
			if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
				s.closeResources()
				return nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
			}
		}
		publishers = append(publishers, events.NewStorePublisher(db.NewRepository(pool)))
	}

	// Step 4: Worker pool, responders, broker
	s.workers = workerpool.New(cfg.WorkerCount, cfg.WorkerQueueSize)
	s.workers.Start(ctx)

	s.directory = responder.NewDirectory()
	s.broker = broker.NewBroker(broker.NewBrokerParams{
		Queue:          s.workers,
		Locator:        s.directory,
		Generator:      correlation.NewUUIDGenerator(),
		Publisher:      publishers,
		PublishTimeout: cfg.EventPublishTimeout,
	})

	s.gateway = gateway.New(gateway.NewGatewayParams{Broker: s.broker, Resolver: res})
	s.directory.Register(string(broker.OriginGateway), s.gateway)

	delegate := responder.NewCommsResponder(nc, cfg.LaunchDelegateSubject, string(broker.OriginLaunchDelegate))
	s.directory.Register(string(broker.OriginLaunchDelegate), delegate)
	slog.Info(fmt.Sprintf("%s - Launch delegate deliveries on %s", logPrefix, delegate.Subject()))
	slog.Info(fmt.Sprintf("%s - Responders: %s", logPrefix, strings.Join(s.directory.Names(), ", ")))

	// Step 5: Dispatcher
	s.disp = dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{
		Broker: s.broker,
		Health: func(ctx context.Context) interface{} { return s.health(ctx) },
	})
	s.brokerSubject = cfg.BrokerSubject
	if s.brokerSubject == "" {
		s.brokerSubject = commsutil.SubjectBroker
	}

	return s, nil
}

// Start subscribes the dispatcher and starts the HTTP server.
func (s *Server) Start() error {
	sub, err := s.nc.Subscribe(s.brokerSubject, s.disp.MsgHandler(s.ctx, s.cfg.RequestTimeout))
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, s.brokerSubject, err)
	}
	s.sub = sub
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, s.brokerSubject))

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.HTTPPort))
	if err != nil {
		return fmt.Errorf("%s - failed to listen on port %d: %w", logPrefix, s.cfg.HTTPPort, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{Handler: s.Handler()}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, ln.Addr()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()
	return nil
}

// Addr returns the HTTP listen address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// StatsOutput is the /stats body: broker counters plus the bound responder names.
type StatsOutput struct {
	broker.Stats
	Responders []string `json:"responders"`
}

// Handler returns the HTTP routes: health, readiness, stats and the gateway.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, StatsOutput{Stats: s.broker.Stats(), Responders: s.directory.Names()})
	})
	mux.Handle(s.cfg.WSPath, s.gateway)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.health(r.Context())
	status := http.StatusOK
	if h.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}

func (s *Server) health(ctx context.Context) *HealthOutput {
	healthCtx, cancel := context.WithTimeout(ctx, s.cfg.HealthCheckTimeout)
	defer cancel()
	return checkHealth(healthCtx, s.nc, s.pool)
}

// Shutdown stops intake first, then drains delivery work, then closes
// connections.
func (s *Server) Shutdown(ctx context.Context) {
	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			slog.Warn(fmt.Sprintf("%s - HTTP shutdown: %v", logPrefix, err))
		}
	}
	if s.gateway != nil {
		s.gateway.Close()
	}
	if s.workers != nil {
		if err := s.workers.Close(); err != nil {
			slog.Warn(fmt.Sprintf("%s - worker pool close: %v", logPrefix, err))
		}
	}
	s.closeResources()
}

func (s *Server) closeResources() {
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			s.nc.Close()
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - encode response: %v", logPrefix, err))
	}
}
