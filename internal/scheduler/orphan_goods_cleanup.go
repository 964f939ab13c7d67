package scheduler

import (
	"context"
	"time"

	"delivery_price_calculator/platform/logger"
)

const defaultOrphanSweepInterval = time.Hour

// OrphanGoodsCleanup periodically removes goods left behind by purged calculations.
type OrphanGoodsCleanup struct {
	sweeper  Sweeper
	log      *logger.Logger
	interval time.Duration
}

func NewOrphanGoodsCleanup(sweeper Sweeper, log *logger.Logger, interval time.Duration) *OrphanGoodsCleanup {
	if interval <= 0 {
		interval = defaultOrphanSweepInterval
	}

	return &OrphanGoodsCleanup{
		sweeper:  sweeper,
		log:      log,
		interval: interval,
	}
}

func (c *OrphanGoodsCleanup) Run(ctx context.Context) {
	if c == nil || c.sweeper == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *OrphanGoodsCleanup) cleanup(ctx context.Context) {
	deleted, err := c.sweeper.SweepOrphanGoods(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Warn("orphan goods cleanup failed", "error", err)
		}
		return
	}

	if deleted > 0 {
		c.log.Info("orphan goods cleanup deleted goods", "deleted", deleted)
	}
}
