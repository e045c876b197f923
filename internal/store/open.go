package store

import (
	"context"
	"fmt"

	"github.com/example/perimeter/internal/config"
)

// Open builds the Store selected by the configuration. For Postgres it
// applies pending migrations first. It is meant to run behind the lazy
// one-flight initializer, so it dials at most once per process under
// concurrent first access.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.DBAdapter {
	case "memory":
		return NewMemStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLiteFile)
	case "postgres":
		dsn, err := cfg.BuildPostgresDSN()
		if err != nil {
			return nil, fmt.Errorf("postgres config: %w", err)
		}
		if err := ApplyMigrations(cfg.MigrationsDir, dsn); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		return NewPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_ADAPTER: %s", cfg.DBAdapter)
	}
}
