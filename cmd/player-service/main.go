package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pops/player-service/internal/app"
	"github.com/pops/player-service/internal/catalog"
	"github.com/pops/player-service/internal/cli"
	"github.com/pops/player-service/internal/eventbus"
	"github.com/pops/player-service/internal/guard"
	"github.com/pops/player-service/internal/handler"
	"github.com/pops/player-service/internal/infra"
	"github.com/pops/player-service/internal/reconciler"
	"github.com/pops/player-service/internal/repository"
	"github.com/pops/player-service/internal/service"
	"github.com/pops/player-service/internal/store"
	"github.com/spf13/cobra"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// Logs never go to stdout, which belongs to the operator shell.
	logger, closer := infra.NewLogger(cfg)
	defer closer.Close()
	slog.SetDefault(logger)

	if err := newRootCmd(cfg, logger).Execute(); err != nil {
		logger.Error("player service failed", "error", err)
		closer.Close()
		os.Exit(1)
	}
}

func newRootCmd(cfg *infra.Config, logger *slog.Logger) *cobra.Command {
	var interactive bool
	root := &cobra.Command{
		Use:          "player-service",
		Short:        "Tracks installed games and reconciles distributor events",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg, logger, interactive)
		},
	}
	root.Flags().BoolVar(&interactive, "shell", true, "read operator commands from stdin")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(&cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or revert the player database schema and exit",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "up":
				return infra.RunMigrations(cfg.DSN(), logger)
			case "down":
				return infra.RollbackMigrations(cfg.DSN(), logger)
			default:
				return fmt.Errorf("unknown direction %q, want up or down", args[0])
			}
		},
	})
	return root
}

func run(cfg *infra.Config, logger *slog.Logger, interactive bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Connect to Postgres
	pool, err := infra.NewPostgresPool(ctx, cfg.DSN())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to player database")

	if cfg.RunMigrations {
		if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	publisherPool := pool
	if cfg.PublisherDSN() != cfg.DSN() {
		publisherPool, err = infra.NewPostgresPool(ctx, cfg.PublisherDSN())
		if err != nil {
			return fmt.Errorf("connect publisher postgres: %w", err)
		}
		defer publisherPool.Close()
		logger.Info("connected to publisher database")
	}

	checks := map[string]handler.Check{
		"postgres": func(ctx context.Context) error { return infra.HealthCheck(ctx, pool) },
	}

	// Catalog behind a circuit breaker, optionally cached in Redis
	breaker := guard.NewCircuitBreaker(cfg.CatalogBreakerThreshold, cfg.CatalogBreakerReset)
	var lookup catalog.Lookup = catalog.NewGuardedLookup(
		catalog.NewPgLookup(publisherPool, repository.NewCatalogRepository()), breaker)
	var cached *catalog.CachedLookup
	if cfg.CatalogCacheTTL > 0 {
		rdb, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		cached = catalog.NewCachedLookup(lookup, catalog.NewRedisCache(rdb, "player-service:"), cfg.CatalogCacheTTL)
		lookup = cached
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		logger.Info("catalog cache enabled", "ttl", cfg.CatalogCacheTTL)
	}

	installed := store.NewPgStore(pool, repository.NewInstalledGameRepository())

	// Kafka producer
	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, eventbus.CompletionLogger(logger), logger)
	defer producer.Close()

	svc := service.NewPlayerService(installed, lookup, eventbus.NewKafkaPublisher(producer, logger), logger)

	// Reconciler and its listeners
	audit := newAuditLog(cfg, pool)
	rec := reconciler.New(installed, audit, logger)
	if cached != nil {
		rec.WithCatalogInvalidator(cached)
	}

	registry := eventbus.NewRegistry(logger)
	openReader := func(topic string) eventbus.MessageReader {
		return infra.NewKafkaConsumer(cfg.KafkaBrokers, topic, cfg.KafkaGroupID, cfg.KafkaEnabled, logger)
	}
	for _, l := range rec.Listeners(openReader, logger) {
		if err := registry.Register(l); err != nil {
			return fmt.Errorf("register listener: %w", err)
		}
	}
	if cfg.KafkaAutostart {
		registry.StartAll()
	}
	defer registry.StopAll()

	errCh := make(chan error, 2)

	// Ops server
	var srv *http.Server
	if cfg.OpsPort > 0 {
		addr := fmt.Sprintf(":%d", cfg.OpsPort)
		srv = &http.Server{
			Addr: addr,
			Handler: app.NewRouter(app.RouterDeps{
				Installations: svc,
				Audit:         audit,
				Listeners:     registry,
				Checks:        checks,
				Logger:        logger,
			}),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			logger.Info("ops server starting", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("ops server: %w", err)
			}
		}()
	}

	// Operator shell
	var shellDone <-chan struct{}
	if interactive {
		shell := cli.New(svc, registry, audit, os.Stdout, os.Stderr)
		shellDone = superviseShell(func() error { return shell.Run(ctx, os.Stdin) }, errCh)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case <-shellDone:
		logger.Info("shell closed")
	case err := <-errCh:
		return err
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	logger.Info("player service stopped")
	return nil
}

// superviseShell runs the shell in a goroutine. The returned channel is closed only
// on a clean exit; a failure is sent to errCh instead so it is never dropped.
func superviseShell(run func() error, errCh chan<- error) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		if err := run(); err != nil {
			errCh <- fmt.Errorf("shell: %w", err)
			return
		}
		close(done)
	}()
	return done
}

func newAuditLog(cfg *infra.Config, pool *pgxpool.Pool) reconciler.AuditLog {
	if cfg.AuditLogBackend == infra.AuditBackendPostgres {
		return reconciler.NewPgAuditLog(pool, repository.NewConsumeLogRepository())
	}
	return reconciler.NewMemoryAuditLog()
}
