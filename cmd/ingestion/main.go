// Command ingestion starts the page submission HTTP service.
//
// The service accepts crawled pages via POST /api/v1/pages, validates them
// and publishes them to the pages-crawled topic for the indexer. It provides
// liveness and readiness endpoints under /health.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/middleware"
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
	slog.Info("starting ingestion service", "port", cfg.Server.Port)

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer("ingestion", cfg.Metrics.Port, nil)
		defer shutdown(context.Background())
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.PagesCrawled)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.PagesCrawled)

	h := handler.New(publisher.New(producer))
	checker := health.NewChecker("ingestion")
	checker.Register("kafka", health.PingCheck(producer.Ping, health.StatusDown))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/pages", h.SubmitPage)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()
	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}
