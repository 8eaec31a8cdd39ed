package sqlstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/sqlite"
)

// Open connects to the backend named by cfg.Storage.Driver and migrates the
// schema. The returned close function releases the connection pool.
func Open(ctx context.Context, cfg *config.Config) (*Store, func() error, error) {
	dialect, err := ParseDialect(cfg.Storage.Driver)
	if err != nil {
		return nil, nil, err
	}

	var (
		store   *Store
		closeFn func() error
	)
	switch dialect {
	case Postgres:
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		store, closeFn = New(client.DB, Postgres), client.Close
		slog.Info("connected to postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	case SQLite:
		client, err := sqlite.New(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, closeFn = New(client.DB, SQLite), client.Close
		slog.Info("opened sqlite database", "path", cfg.Storage.SQLitePath)
	}

	if err := store.Migrate(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("preparing %s store: %w", cfg.Storage.Driver, err)
	}
	return store, closeFn, nil
}
