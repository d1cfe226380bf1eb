package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"mockdesk/dashboard/internal/config"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (c *countingSweeper) Sweep() int {
	c.calls.Add(1)
	return 1
}

func TestCacheSweepJobRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := &countingSweeper{}
	StartCacheSweepJob(ctx, config.Config{CacheSweepInterval: 5 * time.Millisecond}, sweeper, nil)

	deadline := time.Now().Add(2 * time.Second)
	for sweeper.calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("sweep job did not tick")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	time.Sleep(20 * time.Millisecond)
	settled := sweeper.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if sweeper.calls.Load() != settled {
		t.Fatalf("sweep job kept running after cancel")
	}
}

func TestCacheSweepJobNilCache(t *testing.T) {
	StartCacheSweepJob(context.Background(), config.Config{}, nil, nil)
}
