// Command indexer consumes crawled pages from Kafka, extracts and tokenizes
// them, and flushes their postings into the SQL store in batches.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/stopwords"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/store/sqlstore"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/metrics"
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
	slog.Info("starting indexer service",
		"storage", cfg.Storage.Driver,
		"batch_size", cfg.Indexer.BatchSize,
	)

	stop, err := loadStopWords(cfg.Indexer.StopWordsPath)
	if err != nil {
		slog.Error("failed to load stop words", "error", err)
		os.Exit(1)
	}
	tok, err := tokenizer.New(stop)
	if err != nil {
		slog.Error("failed to create tokenizer", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := sqlstore.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	m := metrics.New(nil)

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexUpdated)
	defer producer.Close()
	updates := publisher.New(producer)

	checker := health.NewChecker("indexer")
	checker.Register("store", health.PingCheck(store.Ping, health.StatusDown))
	checker.Register("kafka", health.PingCheck(producer.Ping, health.StatusDegraded))
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer("indexer", cfg.Metrics.Port, map[string]http.Handler{
			"/health/live":  checker.LiveHandler(),
			"/health/ready": checker.ReadyHandler(),
		})
		defer shutdown(context.Background())
	}

	// offsets are committed by the flush hook, once the pages are stored
	var indexConsumer *consumer.IndexConsumer
	engine := indexer.NewEngine(tok, store, store, cfg.Indexer,
		indexer.WithMetrics(m),
		indexer.WithFlushHook(func(ctx context.Context, r index.FlushReport) {
			if r.Written > 0 {
				updates.IndexUpdated(ctx, ingestion.SourceIndexer, r.Written, r.Pages)
			}
		}),
		indexer.WithFlushHook(func(ctx context.Context, r index.FlushReport) {
			indexConsumer.CommitIndexed(ctx, r)
		}),
	)

	kafkaConsumer := kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.Topics.PagesCrawled,
		kafka.ConsumerOptions{DeferCommit: true},
		consumer.HandleMessage(engine),
	)
	indexConsumer = consumer.New(kafkaConsumer)
	defer indexConsumer.Close()
	flushDone := engine.StartFlushLoop(ctx, cfg.Server.ShutdownTimeout)

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.PagesCrawled,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := indexConsumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	<-flushDone
	slog.Info("indexer service stopped")
}

func loadStopWords(path string) (*stopwords.Filter, error) {
	if path == "" {
		return stopwords.Default()
	}
	return stopwords.LoadFile(path)
}
