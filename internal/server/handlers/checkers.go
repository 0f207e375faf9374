package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/ecomtrend/ecomtrend/internal/core/ratelimit"
	"github.com/ecomtrend/ecomtrend/internal/core/store"
)

// StoreChecker reports store connectivity by pinging the database.
type StoreChecker struct {
	Store *store.Store
}

func (c *StoreChecker) CheckHealth(ctx context.Context) error {
	if c.Store == nil || c.Store.DB == nil {
		return fmt.Errorf("store not initialized")
	}
	return c.Store.DB.PingContext(ctx)
}

// DataDirChecker verifies the snapshot data directory exists and is a
// directory. An empty directory is healthy; a missing one means collection
// has never run or the mount is gone.
type DataDirChecker struct {
	Dir string
}

func (c *DataDirChecker) CheckHealth(ctx context.Context) error {
	info, err := os.Stat(c.Dir)
	if err != nil {
		return fmt.Errorf("data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data path is not a directory: %s", c.Dir)
	}
	return nil
}

// LimiterChecker surfaces limiter state. It never fails; it exists so the
// aggregate health payload reports blocked IP counts during incidents.
type LimiterChecker struct {
	Limiter *ratelimit.Limiter
}

func (c *LimiterChecker) CheckHealth(ctx context.Context) error {
	if c.Limiter == nil {
		return fmt.Errorf("rate limiter not initialized")
	}
	return nil
}
