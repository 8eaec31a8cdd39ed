// Command searcher serves ranked full-text and phrase search over the SQL
// store, with an optional Redis result cache that is cleared whenever the
// index or the ranks change.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/stopwords"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/store/sqlstore"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/redis"
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
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Driver,
		"idf_mode", cfg.Search.IDFMode,
	)

	var stop *stopwords.Filter
	if cfg.Indexer.StopWordsPath != "" {
		stop, err = stopwords.LoadFile(cfg.Indexer.StopWordsPath)
	} else {
		stop, err = stopwords.Default()
	}
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
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer("searcher", cfg.Metrics.Port, nil)
		defer shutdown(context.Background())
	}

	var (
		queryCache *cache.QueryCache
		redisPing  func(context.Context) error
	)
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		breaker := cache.NewBreaker(cfg.Redis.BreakerFailures, cfg.Redis.BreakerCooldown)
		queryCache = cache.New(cache.Guard(redisClient, breaker), cfg.Redis.CacheTTL, m)
		redisPing = redisClient.Ping
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)

		// every replica keeps its own group so each one sees every update
		hostname, _ := os.Hostname()
		updates := kafka.NewConsumer(
			cfg.Kafka,
			cfg.Kafka.Topics.IndexUpdated,
			kafka.ConsumerOptions{GroupID: "websearch-searcher-" + hostname},
			cache.InvalidateOnUpdate(queryCache),
		)
		defer updates.Close()
		go func() {
			if err := updates.Start(ctx); err != nil {
				slog.Error("index update consumer error", "error", err)
			}
		}()
	}

	checker := health.NewChecker("searcher")
	checker.Register("store", health.PingCheck(store.Ping, health.StatusDown))
	checker.Register("redis", health.PingCheck(redisPing, health.StatusDegraded))

	exec := executor.New(tok, store, store, cfg.Search)
	h := handler.New(exec, queryCache, m, cfg.Search.DefaultLimit, cfg.Search.MaxResults)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
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
