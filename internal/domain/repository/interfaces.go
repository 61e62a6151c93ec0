package repository

import (
	"context"
	"time"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
)

// MarketSource supplies the latest observation and daily price history.
type MarketSource interface {
	Observation(ctx context.Context) (models.Observation, error)
	PriceHistory(ctx context.Context, days int) ([]models.PricePoint, error)
}

type SnapshotPublisher interface {
	Publish(ctx context.Context, s *models.Snapshot) error
	Close() error
}

type SnapshotStore interface {
	Init(ctx context.Context) error // ensure tables
	Store(ctx context.Context, s *models.Snapshot) error
	Query(ctx context.Context, from, to time.Time, limit int) ([]*models.Snapshot, error)
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordSnapshot(s models.Snapshot)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
