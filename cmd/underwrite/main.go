package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/underwrite/internal/api"
	"github.com/opensource-finance/underwrite/internal/bus"
	"github.com/opensource-finance/underwrite/internal/cache"
	"github.com/opensource-finance/underwrite/internal/config"
	"github.com/opensource-finance/underwrite/internal/domain"
	"github.com/opensource-finance/underwrite/internal/repository"
	"github.com/opensource-finance/underwrite/internal/rules"
	"github.com/opensource-finance/underwrite/internal/scoring"
	"github.com/opensource-finance/underwrite/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logger
	logger := slog.New(newLogHandler(cfg.Logging))
	slog.SetDefault(logger)

	slog.Info("starting underwrite",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type, "max_entries", cfg.Cache.LocalMaxSize)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	engine, err := rules.NewEngine()
	if err != nil {
		slog.Error("failed to initialize ladder engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	// Stored overrides are optional; the built-in ladders always load.
	if err := api.ReloadLadders(ctx, repo, engine); err != nil {
		slog.Warn("failed to load ladder overrides, using defaults", "error", err)
	}
	slog.Info("ladder engine initialized",
		"ladders", len(engine.Ladders()),
		"fingerprint", engine.Fingerprint(),
	)

	scorer := scoring.New(cacheImpl, engine, scoring.WithMemoTTL(cfg.Scoring.MemoTTL))

	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("UNDERWRITE_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, repo, scorer)
		if err := asyncWorker.Start(worker.Config{WorkerCount: cfg.Scoring.WorkerPoolSize}); err != nil {
			slog.Error("failed to start async worker", "error", err)
			asyncWorker = nil
		} else {
			slog.Info("async worker started", "workers", cfg.Scoring.WorkerPoolSize)
		}
	}

	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, scorer, Version)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("underwrite is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first so in-flight results are persisted
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("underwrite shutdown complete")
}

func newLogHandler(cfg domain.LoggingConfig) slog.Handler {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.NewJSONHandler(os.Stdout, opts)
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  +-------------------------------------------+")
	fmt.Println("  |              UNDERWRITE                   |")
	fmt.Println("  |       Loan Applicant Scoring Engine       |")
	fmt.Println("  +-------------------------------------------+")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /api/score            - Score a prefi/plaid pair")
	fmt.Println("    POST /api/score/files      - Score uploaded JSON files")
	fmt.Println("    POST /api/score/async      - Queue a score request")
	fmt.Println("    GET  /api/history          - List score history")
	fmt.Println("    GET  /api/history/{id}     - Get a history entry")
	fmt.Println("    POST /api/debits           - Debit report")
	fmt.Println("    POST /api/accounts/income  - Per-account income log")
	fmt.Println("    POST /api/patterns         - Recurring income patterns")
	fmt.Println("    GET  /api/ladders          - List scoring ladders")
	fmt.Println("    PUT  /api/ladders/{id}     - Override a ladder")
	fmt.Println("    GET  /health               - Health check")
	fmt.Println()
}
