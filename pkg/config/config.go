// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Storage, Postgres, Kafka, Redis, Indexer, PageRank, Search).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	PageRank PageRankConfig `yaml:"pagerank"`
	Search   SearchConfig   `yaml:"search"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlitePath"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	PagesCrawled string `yaml:"pagesCrawled"`
	IndexUpdated string `yaml:"indexUpdated"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
	// BreakerFailures consecutive failures open the cache circuit for
	// BreakerCooldown, during which searches skip Redis.
	BreakerFailures int           `yaml:"breakerFailures"`
	BreakerCooldown time.Duration `yaml:"breakerCooldown"`
}

// IndexerConfig controls stop-word loading and batch flushing.
type IndexerConfig struct {
	StopWordsPath string        `yaml:"stopWordsPath"`
	BatchSize     int           `yaml:"batchSize"`
	FlushRetries  int           `yaml:"flushRetries"`
	FlushInterval time.Duration `yaml:"flushInterval"`
}

// PageRankConfig controls the link-analysis run.
type PageRankConfig struct {
	Damping       float64       `yaml:"damping"`
	Tolerance     float64       `yaml:"tolerance"`
	MaxIterations int           `yaml:"maxIterations"`
	Workers       int           `yaml:"workers"`
	Interval      time.Duration `yaml:"interval"`
}

// SearchConfig controls query execution limits and scoring weights.
type SearchConfig struct {
	MaxResults     int     `yaml:"maxResults"`
	DefaultLimit   int     `yaml:"defaultLimit"`
	SnippetSize    int     `yaml:"snippetSize"`
	TFIDFWeight    float64 `yaml:"tfidfWeight"`
	PageRankWeight float64 `yaml:"pageRankWeight"`
	IDFMode        string  `yaml:"idfMode"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided), applies environment-variable
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("storage.driver must be postgres or sqlite, got %q", c.Storage.Driver)
	}
	if c.PageRank.Damping <= 0 || c.PageRank.Damping >= 1 {
		return fmt.Errorf("pagerank.damping must be in (0,1), got %v", c.PageRank.Damping)
	}
	if c.PageRank.Tolerance <= 0 {
		return fmt.Errorf("pagerank.tolerance must be positive, got %v", c.PageRank.Tolerance)
	}
	if c.PageRank.MaxIterations < 1 {
		return fmt.Errorf("pagerank.maxIterations must be at least 1, got %d", c.PageRank.MaxIterations)
	}
	if c.Indexer.BatchSize < 1 {
		return fmt.Errorf("indexer.batchSize must be at least 1, got %d", c.Indexer.BatchSize)
	}
	if c.Search.SnippetSize < 4 {
		return fmt.Errorf("search.snippetSize must be at least 4, got %d", c.Search.SnippetSize)
	}
	switch c.Search.IDFMode {
	case "standard", "legacy":
	default:
		return fmt.Errorf("search.idfMode must be standard or legacy, got %q", c.Search.IDFMode)
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Driver:     "postgres",
			SQLitePath: "data/search.db",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "websearch",
			User:            "websearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "websearch-indexer",
			Topics: KafkaTopics{
				PagesCrawled: "pages-crawled",
				IndexUpdated: "index-updated",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize:        10,
			CacheTTL:        60 * time.Second,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Indexer: IndexerConfig{
			BatchSize:     50,
			FlushRetries:  3,
			FlushInterval: 10 * time.Second,
		},
		PageRank: PageRankConfig{
			Damping:       0.85,
			Tolerance:     1e-9,
			MaxIterations: 100,
			Interval:      time.Hour,
		},
		Search: SearchConfig{
			MaxResults:     100,
			DefaultLimit:   10,
			SnippetSize:    40,
			TFIDFWeight:    0.7,
			PageRankWeight: 0.3,
			IDFMode:        "standard",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads WSE_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WSE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("WSE_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("WSE_STORAGE_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("WSE_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("WSE_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("WSE_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("WSE_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("WSE_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("WSE_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("WSE_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("WSE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("WSE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("WSE_INDEXER_STOPWORDS"); v != "" {
		cfg.Indexer.StopWordsPath = v
	}
	if v := os.Getenv("WSE_PAGERANK_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PageRank.Workers = n
		}
	}
	if v := os.Getenv("WSE_SEARCH_IDF_MODE"); v != "" {
		cfg.Search.IDFMode = v
	}
	if v := os.Getenv("WSE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WSE_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
