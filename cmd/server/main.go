/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the bonus engine server. Handles configuration,
  dependency injection, policy hot reload and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present), then config (defaults -> YAML -> BONUS_* env)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Build the bonus service, loading the policy file if configured
  5. Configure HTTP router with metrics
  6. Run the HTTP server and the policy watcher under one errgroup

COMMAND-LINE FLAGS:
  -config  YAML config file (default: $BONUS_CONFIG)
  -addr    Overrides the listen address
  -db      Overrides the SQLite path; ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the policy watcher
  4. Close database connection

EXAMPLES:
  ./server -config=./config.yaml
  BONUS_DB_PATH=":memory:" BONUS_LOG_LEVEL=debug ./server

SEE ALSO:
  - config/config.go: Configuration fields and precedence
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/bonus-engine/api"
	"github.com/warp/bonus-engine/bonus"
	"github.com/warp/bonus-engine/config"
	"github.com/warp/bonus-engine/factory"
	"github.com/warp/bonus-engine/generic"
	"github.com/warp/bonus-engine/metrics"
	"github.com/warp/bonus-engine/store/sqlite"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load(".env")

	configPath := flag.String("config", "", "YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	recorder := metrics.New()
	svc := bonus.NewService(store, bonus.WithLogger(logger), bonus.WithRecorder(recorder))

	policies := factory.NewPolicyFactory()
	reloadPolicy := func(path string) error {
		p, err := policies.ParseFile(path)
		if err == nil {
			err = svc.SetPolicy(*p)
		}
		recorder.PolicyReloaded(err)
		return err
	}
	if cfg.PolicyFile != "" {
		if err := reloadPolicy(cfg.PolicyFile); err != nil {
			return err
		}
	}

	formatter, err := bonus.NewFormatter(cfg.Locale, generic.Unit(cfg.Currency))
	if err != nil {
		return err
	}

	handler := api.NewHandler(store, svc, formatter, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.Origins(),
		Metrics:        recorder,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting",
			zap.String("addr", cfg.Addr),
			zap.String("db", cfg.DBPath),
			zap.String("policy", svc.Policy().ID))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.PolicyFile != "" && cfg.WatchPolicy {
		g.Go(func() error {
			return config.WatchFile(gctx, cfg.PolicyFile, logger.Named("policy"), reloadPolicy)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
