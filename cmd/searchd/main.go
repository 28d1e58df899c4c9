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

	"github.com/deepsearch-io/deepsearch/internal/ingest"
	"github.com/deepsearch-io/deepsearch/internal/search/cache"
	"github.com/deepsearch-io/deepsearch/internal/search/encoder"
	"github.com/deepsearch-io/deepsearch/internal/search/handler"
	"github.com/deepsearch-io/deepsearch/internal/search/hybrid"
	"github.com/deepsearch-io/deepsearch/internal/search/monitor"
	"github.com/deepsearch-io/deepsearch/internal/search/pool"
	"github.com/deepsearch-io/deepsearch/internal/searchlog"
	"github.com/deepsearch-io/deepsearch/pkg/config"
	"github.com/deepsearch-io/deepsearch/pkg/health"
	"github.com/deepsearch-io/deepsearch/pkg/kafka"
	"github.com/deepsearch-io/deepsearch/pkg/logger"
	"github.com/deepsearch-io/deepsearch/pkg/metrics"
	"github.com/deepsearch-io/deepsearch/pkg/middleware"
	"github.com/deepsearch-io/deepsearch/pkg/postgres"
	pkgredis "github.com/deepsearch-io/deepsearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "data_dir", cfg.Index.DataDir)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var enc encoder.Encoder
	if cfg.Encoder.BaseURL != "" {
		openaiEnc := encoder.NewOpenAI(encoder.OpenAIOptions{
			BaseURL:    cfg.Encoder.BaseURL,
			APIKey:     cfg.Encoder.APIKey,
			Model:      cfg.Encoder.Model,
			Dimensions: cfg.Encoder.Dimensions,
			Timeout:    cfg.Encoder.Timeout,
			Metrics:    m,
		})
		cached, err := encoder.NewCached(openaiEnc, cfg.Encoder.CacheSize, m)
		if err != nil {
			slog.Error("failed to create encoder cache", "error", err)
			os.Exit(1)
		}
		enc = cached
		slog.Info("encoder configured", "base_url", cfg.Encoder.BaseURL, "model", cfg.Encoder.Model)
	} else {
		slog.Warn("no encoder configured, vector search disabled")
	}

	snapshots := pool.New(ingest.Loader(cfg.Index.DataDir), cfg.Search.ReloadInterval, m)
	resultCache := cache.NewMemory(cfg.Search.CacheSize, cfg.Search.CacheTTL, m)
	mon := monitor.New(cfg.Search.SlowQueryWindow, m)

	var engineCache cache.Cache = resultCache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, shared cache tier disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		engineCache = cache.NewTiered(resultCache, redisClient, cfg.Redis.CacheTTL)
		slog.Info("shared cache tier enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	engine := hybrid.New(snapshots, enc, engineCache, mon, hybrid.Options{
		BranchTimeout:         cfg.Search.BranchTimeout,
		VectorScoreMultiplier: cfg.Search.VectorScoreMultiplier,
		MaxResultsPerBranch:   cfg.Search.MaxResultsPerBranch,
		DefaultTopK:           cfg.Search.DefaultTopK,
		MaxTopK:               cfg.Search.MaxTopK,
	})

	var collector *searchlog.Collector
	var store *searchlog.Store
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, search history disabled", "error", err)
	} else {
		defer db.Close()
		store = searchlog.NewStore(db)
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer producer.Close()
		collector = searchlog.NewCollector(producer, 10000)
		collector.Start(ctx)
		defer collector.Close()

		logConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents, searchlog.HandleEvent(store))
		go func() {
			if err := logConsumer.Start(ctx); err != nil {
				slog.Error("search log consumer error", "error", err)
			}
		}()
		slog.Info("search history enabled", "topic", cfg.Kafka.Topics.SearchEvents)
	}

	invalidateConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CacheInvalidate,
		func(ctx context.Context, key []byte, value []byte) error {
			event, err := kafka.DecodeJSON[ingest.InvalidateEvent](value)
			if err != nil {
				slog.Error("failed to decode invalidate event", "error", err)
				return nil
			}
			slog.Info("cache invalidation received",
				"reason", event.Reason,
				"chunks", event.Chunks,
			)
			engineCache.Clear(ctx)
			snapshots.Invalidate()
			return nil
		})
	go func() {
		if err := invalidateConsumer.Start(ctx); err != nil {
			slog.Error("invalidation consumer error", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("snapshot", func(ctx context.Context) health.ComponentHealth {
		snap := snapshots.Current()
		if snap == nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no snapshot loaded"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d chunks", snap.Lexical.Len()),
		}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := handler.New(handler.Options{
		Engine:    engine,
		Pool:      snapshots,
		Cache:     resultCache,
		Monitor:   mon,
		Collector: collector,
		Store:     store,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/suggestions", h.Suggestions)
	mux.HandleFunc("GET /api/v1/popular", h.Popular)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
