// Command grantbot starts the section-generation HTTP service.
//
// It loads grant documents once at startup (NDJSON file or PostgreSQL),
// answers POST /generate-section by ranking stored snippets for the
// requested company and section, and keeps an in-memory history per company.
// Redis caching and Kafka analytics are optional. SIGHUP reloads the
// documents.
//
// Usage:
//
//	go run ./cmd/grantbot [-config configs/development.yaml]
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
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/document"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/history"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/retrieval"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/router"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/sections"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/sections/cache"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/sections/handler"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/redis"
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
	slog.Info("starting grantbot service",
		"port", cfg.Server.Port,
		"data_source", cfg.Data.Source,
		"top_k", cfg.Retrieval.TopK,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	// Documents. Any failure here leaves the store empty; requests then get 503.
	var (
		source document.Source
		db     *postgres.Client
	)
	switch cfg.Data.Source {
	case config.SourcePostgres:
		db, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, starting without documents", "error", err)
		} else {
			defer db.Close()
			source = document.NewPostgresSource(db.DB, cfg.Data.Table)
		}
	default:
		source = document.NewFileSource(cfg.Data.Path, cfg.Data.SkipMalformed)
	}
	store := document.NewStore(source, m.DocumentsLoaded)
	store.Load(ctx)

	// Optional Redis cache.
	var (
		redisClient  *pkgredis.Client
		sectionCache *cache.SectionCache
	)
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, section caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			sectionCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			slog.Info("section cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	// Analytics: always aggregated in-process, shipped to Kafka when enabled.
	aggregator := analytics.NewAggregator()
	recorders := analytics.Fanout{aggregator}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.GenerationEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, analytics.CollectorConfig{
			BufferSize:    cfg.Analytics.BufferSize,
			BatchSize:     cfg.Analytics.BatchSize,
			FlushInterval: cfg.Analytics.FlushInterval,
		})
		collector.Start()
		defer collector.Close()
		recorders = append(recorders, collector)
	}

	svc := sections.NewService(store, retrieval.NewEngine(), history.NewLedger(), cfg.Retrieval.TopK, sections.Options{
		Cache:    sectionCache,
		Recorder: recorders,
		Metrics:  m,
	})

	checker := health.NewChecker(5 * time.Second)
	checker.Register("documents", health.CountCheck("documents", store.Count))
	if cfg.Redis.Enabled {
		var pinger health.Pinger
		if redisClient != nil {
			pinger = redisClient
		}
		checker.Register("redis", health.PingCheck(pinger, health.StatusDegraded))
	}
	if db != nil {
		checker.Register("postgres", health.PingCheck(db, health.StatusDegraded))
	}

	limiter := ratelimit.New(time.Minute)
	defer limiter.Close()

	chain := router.New(router.Config{
		Sections:       handler.New(svc),
		Analytics:      analytics.NewHandler(aggregator),
		Health:         checker,
		Metrics:        m,
		Limiter:        limiter,
		RatePerMinute:  cfg.RateLimit.RequestsPerMinute,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	go reloadOnHangup(ctx, store, sectionCache)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
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

	slog.Info("grantbot service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone

	slog.Info("grantbot service stopped")
}

// reloadOnHangup reloads the document store on SIGHUP and drops cached
// sections built from the previous set.
func reloadOnHangup(ctx context.Context, store *document.Store, sectionCache *cache.SectionCache) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			n := store.Load(ctx)
			slog.Info("documents reloaded", "count", n)
			if sectionCache != nil {
				if err := sectionCache.Invalidate(ctx); err != nil {
					slog.Warn("cache invalidation after reload failed", "error", err)
				}
			}
		}
	}
}
