package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/deepsearch-io/deepsearch/internal/ingest"
	"github.com/deepsearch-io/deepsearch/internal/search/encoder"
	"github.com/deepsearch-io/deepsearch/pkg/config"
	"github.com/deepsearch-io/deepsearch/pkg/kafka"
	"github.com/deepsearch-io/deepsearch/pkg/logger"
	"github.com/deepsearch-io/deepsearch/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	sourceKind := flag.String("source", "jsonl", "chunk source: jsonl or postgres")
	skipEmbed := flag.Bool("skip-embed", false, "build a keyword-only snapshot without embeddings")
	skipNotify := flag.Bool("skip-notify", false, "do not publish a cache invalidation event")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting index build",
		"source", *sourceKind,
		"data_dir", cfg.Index.DataDir,
	)

	ctx := context.Background()
	start := time.Now()

	var source ingest.Source
	switch *sourceKind {
	case "jsonl":
		source = ingest.JSONLSource{Path: cfg.Index.ChunksPath}
	case "postgres":
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		source = ingest.PostgresSource{DB: db}
	default:
		fmt.Fprintf(os.Stderr, "unknown source %q\n", *sourceKind)
		os.Exit(1)
	}

	var enc encoder.Encoder
	if !*skipEmbed && cfg.Encoder.BaseURL != "" {
		openaiEnc := encoder.NewOpenAI(encoder.OpenAIOptions{
			BaseURL:    cfg.Encoder.BaseURL,
			APIKey:     cfg.Encoder.APIKey,
			Model:      cfg.Encoder.Model,
			Dimensions: cfg.Encoder.Dimensions,
			Timeout:    cfg.Encoder.Timeout,
		})
		cached, err := encoder.NewCached(openaiEnc, cfg.Encoder.CacheSize, nil)
		if err != nil {
			slog.Error("failed to create encoder cache", "error", err)
			os.Exit(1)
		}
		enc = cached
	}

	pipeline := ingest.NewPipeline(source, enc, cfg.Index.EmbedWorkers)
	snap, err := pipeline.Build(ctx)
	if err != nil {
		slog.Error("snapshot build failed", "error", err)
		os.Exit(1)
	}
	if err := ingest.WriteSnapshot(cfg.Index.DataDir, snap); err != nil {
		slog.Error("snapshot write failed", "error", err)
		os.Exit(1)
	}

	vectors := 0
	if snap.Vector != nil {
		vectors = snap.Vector.Len()
	}
	slog.Info("snapshot written",
		"chunks", snap.Lexical.Len(),
		"vectors", vectors,
		"duration", time.Since(start),
	)

	if !*skipNotify {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CacheInvalidate)
		defer producer.Close()
		event := ingest.InvalidateEvent{
			Reason:    "index_rebuild",
			Chunks:    snap.Lexical.Len(),
			Vectors:   vectors,
			Timestamp: time.Now().UTC(),
		}
		if err := producer.Publish(ctx, kafka.Event{Key: "invalidate", Value: event}); err != nil {
			slog.Warn("failed to publish invalidation event, caches refresh on schedule", "error", err)
		} else {
			slog.Info("invalidation event published", "topic", cfg.Kafka.Topics.CacheInvalidate)
		}
	}
}
