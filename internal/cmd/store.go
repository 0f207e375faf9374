package cmd

import (
	"context"

	"github.com/ecomtrend/ecomtrend/internal/config"
	"github.com/ecomtrend/ecomtrend/internal/core/store"
)

// openStore connects to the configured store and applies migrations.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
