package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
	drepo "github.com/y2kjoh23-ux/btc-compass-26/internal/domain/repository"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/cache"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/logger"
)

const collectLockKey = "lock:snapshot-collect"

// SnapshotSource is satisfied by Dashboard.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
}

// SnapshotCollector takes a market snapshot on a fixed interval. With a shared cache,
// only one replica collects per interval.
type SnapshotCollector struct {
	source   SnapshotSource
	lock     cache.Service
	metrics  drepo.Metrics
	log      *logger.Logger
	interval time.Duration

	latest atomic.Pointer[models.Snapshot]
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSnapshotCollector creates a new SnapshotCollector instance. lock may be nil.
func NewSnapshotCollector(source SnapshotSource, lock cache.Service, metrics drepo.Metrics, log *logger.Logger, interval time.Duration) *SnapshotCollector {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SnapshotCollector{source: source, lock: lock, metrics: metrics, log: log, interval: interval}
}

// Latest returns the most recent collected snapshot, or nil before the first one.
func (c *SnapshotCollector) Latest() *models.Snapshot { return c.latest.Load() }

// Interval returns the collection interval.
func (c *SnapshotCollector) Interval() time.Duration { return c.interval }

// Start collects once immediately and then every interval until Shutdown.
func (c *SnapshotCollector) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.run(ctx)
}

func (c *SnapshotCollector) run(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Collect(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Collect(ctx)
		}
	}
}

// Collect takes one snapshot. It reports whether a snapshot was taken.
func (c *SnapshotCollector) Collect(ctx context.Context) bool {
	if c.lock != nil {
		ok, err := c.lock.TryLock(ctx, collectLockKey, c.interval/2)
		if err != nil {
			c.log.Warn("snapshot collect lock", logger.Error(err))
		} else if !ok {
			c.log.Debug("snapshot collect skipped, another replica holds the lock")
			return false
		}
	}

	snap, err := c.source.Snapshot(ctx)
	if snap != nil {
		c.latest.Store(snap)
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrPersist):
		// assessed but not fully persisted; sink errors are already logged
	default:
		c.metrics.RecordError("snapshot_collect")
		c.log.Error("snapshot collect failed", logger.Error(err))
		return false
	}

	c.log.Info("snapshot collected",
		logger.String("source", snap.Observation.Source),
		logger.Float64("price", snap.Observation.Price),
		logger.Float64("risk", snap.Indicators.RiskPercent),
		logger.String("regime", string(snap.Indicators.Regime)),
	)
	return true
}

// Shutdown stops the collection loop and waits for an in-flight collect.
func (c *SnapshotCollector) Shutdown(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
