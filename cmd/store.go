package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sampa-labs/brgen-cli/internal/db"
	"github.com/sampa-labs/brgen-cli/internal/store"
)

// initStore opens the run catalog named by store.driver. SQLite is the
// zero-config default; postgres shares one pgx pool across the process.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DSN
		if dsn == "" {
			dsn = "brgen.db"
		}
		return store.NewSQLite(dsn, nil)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DSN, &db.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		}, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
