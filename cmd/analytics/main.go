// Command analytics consumes section-generation events from Kafka and serves
// the aggregated stats at GET /api/v1/analytics. With a snapshot interval
// configured, aggregates are persisted to PostgreSQL and restored on start.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults and environment only when empty)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service",
		"port", cfg.Analytics.Port,
		"topic", cfg.Kafka.Topics.GenerationEvents,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator()
	// background tracks goroutines that must finish before the database
	// closes, including the final snapshot.
	var background sync.WaitGroup
	checker := health.NewChecker(5 * time.Second)

	if cfg.Analytics.SnapshotInterval > 0 {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres for snapshots", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		snapshots := snapshot.NewStore(db.DB)
		latest, err := snapshots.Latest(ctx)
		if err != nil {
			slog.Warn("could not restore analytics snapshot", "error", err)
		} else if latest != nil {
			aggregator.Restore(*latest)
			slog.Info("analytics restored from snapshot", "total_generations", latest.TotalGenerations)
		}
		background.Go(func() { snapshots.Run(ctx, aggregator, cfg.Analytics.SnapshotInterval) })

		checker.Register("postgres", health.PingCheck(db, health.StatusDegraded))
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.GenerationEvents, analytics.HandleEvent(aggregator))
	background.Go(func() {
		if err := consumer.Run(ctx); err != nil {
			slog.Error("consumer error", "error", err)
		}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Analytics.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Deferred cleanup must wait until Shutdown has drained in-flight
	// requests, not just until ListenAndServe returns.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone
	background.Wait()

	slog.Info("analytics service stopped")
}
