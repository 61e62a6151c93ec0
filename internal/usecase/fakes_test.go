package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
)

type fakeMarket struct {
	obs      models.Observation
	obsErr   error
	history  []models.PricePoint
	histErr  error
	histDays int
	calls    int
}

func (m *fakeMarket) Observation(context.Context) (models.Observation, error) {
	m.calls++
	return m.obs, m.obsErr
}

func (m *fakeMarket) PriceHistory(_ context.Context, days int) ([]models.PricePoint, error) {
	m.histDays = days
	return m.history, m.histErr
}

type fakeMetrics struct {
	mu        sync.Mutex
	snapshots []models.Snapshot
	errors    map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{errors: map[string]int{}} }

func (m *fakeMetrics) RecordSnapshot(s models.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, s)
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

type fakeStore struct {
	stored   []*models.Snapshot
	storeErr error
	query    []*models.Snapshot
	from, to time.Time
	limit    int
}

func (s *fakeStore) Init(context.Context) error { return nil }

func (s *fakeStore) Store(_ context.Context, snap *models.Snapshot) error {
	if s.storeErr != nil {
		return s.storeErr
	}
	s.stored = append(s.stored, snap)
	return nil
}

func (s *fakeStore) Query(_ context.Context, from, to time.Time, limit int) ([]*models.Snapshot, error) {
	s.from, s.to, s.limit = from, to, limit
	return s.query, nil
}

func (s *fakeStore) Health(context.Context) error { return nil }
func (s *fakeStore) Close() error                 { return nil }

type fakePublisher struct {
	published []*models.Snapshot
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, snap *models.Snapshot) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, snap)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

var errBoom = errors.New("boom")
