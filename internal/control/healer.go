package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/healer/internal/core/config"
	"github.com/vietddude/healer/internal/core/worker"
	"github.com/vietddude/healer/internal/healing/catalog"
	"github.com/vietddude/healer/internal/healing/health"
	"github.com/vietddude/healer/internal/healing/planner"
	"github.com/vietddude/healer/internal/healing/recovery"
	redisclient "github.com/vietddude/healer/internal/infra/redis"
	"github.com/vietddude/healer/internal/infra/storage"
	"github.com/vietddude/healer/internal/infra/storage/memory"
	"github.com/vietddude/healer/internal/infra/storage/postgres"
)

// Healer is the main application struct that manages the executor lifecycle.
type Healer struct {
	cfg          Config
	executor     *recovery.Executor
	planner      *planner.Planner
	repo         storage.ResultRepository
	pruner       *worker.Pruner
	healthMon    *health.Monitor
	healthServer *health.Server
	grpcServer   *health.GRPCServer
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger
}

// Config holds the application configuration.
type Config struct {
	Port       int
	GRPCPort   int
	Executor   recovery.Config
	Actions    catalog.Config
	Strategies map[string]string
	Storage    config.StorageConfig
	Redis      redisclient.Config
	Database   postgres.Config

	// Runner overrides host command execution; nil runs commands locally.
	Runner catalog.CommandRunner
	// RouteSwitcher is the optional routing collaborator.
	RouteSwitcher catalog.RouteSwitcher
}

// ConfigFromApp transforms file configuration into application configuration.
func ConfigFromApp(app *config.AppConfig) Config {
	exec := recovery.Config{
		NodeID:          app.NodeID,
		MaxRetries:      app.Executor.MaxRetries,
		RetryDelay:      app.Executor.RetryDelay,
		MaxHistorySize:  app.Executor.MaxHistorySize,
		MaxRollbackSize: app.Executor.MaxRollbackSize,
	}
	if !app.CircuitBreaker.Disabled {
		cb := app.CircuitBreaker.Config
		exec.CircuitBreaker = &cb
	}
	if !app.RateLimit.Disabled {
		rl := app.RateLimit.Config
		exec.RateLimit = &rl
	}

	return Config{
		Port:       app.Server.Port,
		GRPCPort:   app.Server.GRPCPort,
		Executor:   exec,
		Actions:    app.Actions,
		Strategies: app.Planner.Strategies,
		Storage:    app.Storage,
		Redis:      app.Redis,
		Database:   app.Database,
	}
}

// NewHealer creates a new Healer instance with all dependencies initialized.
func NewHealer(ctx context.Context, cfg Config) (*Healer, error) {
	log := slog.Default().With("node_id", cfg.Executor.NodeID)
	h := &Healer{cfg: cfg, log: log}

	// 1. Initialize Storage
	var check health.CheckFunc
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if cfg.Storage.Migrate {
			if err := db.Migrate(ctx); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to migrate db: %w", err)
			}
		}
		h.db = db
		h.repo = postgres.NewResultRepo(db)
		check = db.Health
		log.Info("Using PostgreSQL storage")
	case config.DriverRedis:
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		h.redisClient = client
		h.repo = redisclient.NewResultRepo(client, 0)
		check = client.Ping
		log.Info("Using Redis storage")
	case config.DriverMemory, "":
		h.repo = memory.NewResultStore()
		log.Info("Using Memory storage")
	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownDriver, cfg.Storage.Driver)
	}

	// 2. Initialize Executor
	catOpts := []catalog.Option{catalog.WithLogger(log)}
	if cfg.RouteSwitcher != nil {
		catOpts = append(catOpts, catalog.WithRouteSwitcher(cfg.RouteSwitcher))
	}
	cat := catalog.New(cfg.Actions, cfg.Runner, catOpts...)

	h.executor = recovery.NewExecutor(cfg.Executor, cat,
		recovery.WithLogger(log),
		recovery.WithResultSink(h.repo),
	)
	h.planner = planner.New(h.executor, nil, cfg.Strategies, log)

	// 3. Initialize Workers and Servers
	h.pruner = worker.NewPruner(h.repo, h.executor.NodeID(), cfg.Storage.Retention, cfg.Storage.PruneSchedule)

	h.healthMon = health.NewMonitor(h.executor)
	if check != nil {
		h.healthMon.AddCheck("storage", check)
	}
	h.healthServer = health.NewServer(h.healthMon, h.executor, h.planner, cfg.Port)
	if cfg.GRPCPort > 0 {
		h.grpcServer = health.NewGRPCServer(h.healthMon, cfg.GRPCPort, 0)
	}

	return h, nil
}

// Executor returns the recovery executor.
func (h *Healer) Executor() *recovery.Executor {
	return h.executor
}

// Planner returns the MAPE-K planner.
func (h *Healer) Planner() *planner.Planner {
	return h.planner
}

// Repository returns the result store.
func (h *Healer) Repository() storage.ResultRepository {
	return h.repo
}

// Start starts the servers and background workers.
func (h *Healer) Start(ctx context.Context) error {
	if err := h.pruner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start pruner: %w", err)
	}

	// Start Health Server
	go func() {
		if err := h.healthServer.Start(); err != nil {
			h.log.Error("Health server failed", "error", err)
		}
	}()

	if h.grpcServer != nil {
		go func() {
			if err := h.grpcServer.Start(ctx); err != nil {
				h.log.Error("gRPC health server failed", "error", err)
			}
		}()
	}

	// Start DB Metrics Collector
	if h.db != nil {
		h.db.StartMetricsCollector(ctx)
	}

	h.log.Info("Healer started", "port", h.cfg.Port, "grpc_port", h.cfg.GRPCPort)
	return nil
}

// Stop stops the healer.
func (h *Healer) Stop(ctx context.Context) error {
	h.log.Info("Stopping Healer...")

	h.pruner.Stop()
	if h.grpcServer != nil {
		h.grpcServer.Stop()
	}

	err := h.healthServer.Stop(ctx)
	h.Close()
	return err
}

// Close releases storage connections.
func (h *Healer) Close() {
	if h.redisClient != nil {
		if err := h.redisClient.Close(); err != nil {
			h.log.Warn("Failed to close Redis", "error", err)
		}
		h.redisClient = nil
	}
	if h.db != nil {
		if err := h.db.Close(); err != nil {
			h.log.Warn("Failed to close database", "error", err)
		}
		h.db = nil
	}
}
