package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mockdesk/dashboard/internal/config"
)

// Sweeper drops expired cache entries and reports how many it removed.
type Sweeper interface {
	Sweep() int
}

// StartCacheSweepJob periodically evicts expired backend responses so idle keys do
// not accumulate between reads.
func StartCacheSweepJob(ctx context.Context, cfg config.Config, cache Sweeper, log *zap.Logger) {
	if cache == nil {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}
	interval := cfg.CacheSweepInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := cache.Sweep(); removed > 0 {
					log.Debug("cache sweep", zap.Int("removed", removed))
				}
			}
		}
	}()
}
