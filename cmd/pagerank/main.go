// Command pagerank recomputes page ranks over the stored link graph, either
// once or on a fixed interval, and announces each rank update on Kafka.
//
// Usage:
//
//	go run ./cmd/pagerank [-config configs/development.yaml] [-once]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/pagerank"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/store/sqlstore"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single computation and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting pagerank service",
		"damping", cfg.PageRank.Damping,
		"tolerance", cfg.PageRank.Tolerance,
		"max_iterations", cfg.PageRank.MaxIterations,
		"once", *once,
	)

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

	checker := health.NewChecker("pagerank")
	checker.Register("store", health.PingCheck(store.Ping, health.StatusDown))
	checker.Register("kafka", health.PingCheck(producer.Ping, health.StatusDegraded))
	if cfg.Metrics.Enabled && !*once {
		shutdown := metrics.StartServer("pagerank", cfg.Metrics.Port, map[string]http.Handler{
			"/health/live":  checker.LiveHandler(),
			"/health/ready": checker.ReadyHandler(),
		})
		defer shutdown(context.Background())
	}

	engine := pagerank.NewEngine(cfg.PageRank, store, store, pagerank.WithMetrics(m))
	run := func() error {
		res, err := engine.Run(ctx)
		if err != nil {
			return err
		}
		if res.State == pagerank.NotComputed {
			return nil
		}
		return updates.IndexUpdated(ctx, ingestion.SourcePageRank, 0, len(res.Ranks))
	}

	if *once {
		if err := run(); err != nil {
			slog.Error("pagerank run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	ticker := time.NewTicker(cfg.PageRank.Interval)
	defer ticker.Stop()
	for {
		if err := run(); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("pagerank run failed", "error", err)
		}
		select {
		case <-ctx.Done():
			slog.Info("pagerank service stopped")
			return
		case <-ticker.C:
		}
	}
}
