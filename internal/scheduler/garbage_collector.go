package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/marktrabit/internal/logger"
)

// DefaultGCInterval is how often expired in-memory entries are dropped.
const DefaultGCInterval = 5 * time.Minute

// Purger drops expired entries and reports how many were removed. Count
// is the number of live entries left.
type Purger interface {
	Purge() int
	Count() int
}

// GarbageCollector handles cleanup of expired sessions, flows and views in
// the in-memory store. Redis expires its keys on its own.
type GarbageCollector struct {
	store    Purger
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewGarbageCollector creates a collector; interval <= 0 uses DefaultGCInterval.
func NewGarbageCollector(store Purger, log logger.Logger, interval time.Duration) *GarbageCollector {
	if interval <= 0 {
		interval = DefaultGCInterval
	}

	return &GarbageCollector{
		store:    store,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) error {
	// Run immediately on start
	gc.Collect(ctx)

	// Start periodic collection
	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				gc.Collect(ctx)
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the garbage collector
func (gc *GarbageCollector) Stop() {
	close(gc.stopCh)
}

// Collect removes expired entries and returns how many were dropped.
func (gc *GarbageCollector) Collect(_ context.Context) int {
	removed := gc.store.Purge()

	if removed > 0 {
		gc.logger.Info("garbage collection completed",
			logger.Int("entries_removed", removed),
			logger.Int("entries_live", gc.store.Count()))
	} else {
		gc.logger.Debug("no expired entries")
	}

	return removed
}
