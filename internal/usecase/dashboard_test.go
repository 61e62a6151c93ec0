package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/services/indicators"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/services/valuation"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/cache"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/logger"
)

var fixedNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestDashboard(m *fakeMarket, met *fakeMetrics, opts ...DashboardOption) *Dashboard {
	opts = append([]DashboardOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewDashboard(valuation.Default(), indicators.Default(), m, met, logger.Nop(), opts...)
}

func TestDeriveUsesObservationDateByDefault(t *testing.T) {
	d := newTestDashboard(&fakeMarket{}, newFakeMetrics())
	obs := models.Observation{Price: 60000, Timestamp: time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC), FearGreed: 50}

	snap := d.Derive(obs, time.Time{})
	assert.Equal(t, d.Evaluate(obs.Timestamp), snap.Curves)
	assert.Equal(t, obs, snap.Observation)
	assert.Equal(t, fixedNow, snap.CreatedAt)

	other := d.Derive(obs, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.NotEqual(t, snap.Curves.Weighted, other.Curves.Weighted)
}

func TestSnapshotPersistsToSinks(t *testing.T) {
	m := &fakeMarket{obs: models.Observation{Price: 65000, Timestamp: fixedNow, FearGreed: 70, Source: "live"}}
	met := newFakeMetrics()
	store := &fakeStore{}
	pub := &fakePublisher{}
	d := newTestDashboard(m, met, WithSnapshotStore(store), WithSnapshotPublisher(pub))

	snap, err := d.Snapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, "live", snap.Observation.Source)
	assert.Len(t, store.stored, 1)
	assert.Len(t, pub.published, 1)
	assert.Len(t, met.snapshots, 1)
	assert.NotEmpty(t, snap.Indicators.Regime)
	assert.LessOrEqual(t, snap.Curves.Lower, snap.Curves.Weighted)
	assert.LessOrEqual(t, snap.Curves.Weighted, snap.Curves.Upper)
}

func TestSnapshotMarketFailure(t *testing.T) {
	met := newFakeMetrics()
	d := newTestDashboard(&fakeMarket{obsErr: errBoom}, met)

	_, err := d.Snapshot(context.Background())
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, met.errors["market_observation"])
}

func TestIngestSinkFailureStillReturnsSnapshot(t *testing.T) {
	met := newFakeMetrics()
	d := newTestDashboard(&fakeMarket{}, met,
		WithSnapshotStore(&fakeStore{storeErr: errBoom}),
		WithSnapshotPublisher(&fakePublisher{}),
	)

	snap, err := d.Ingest(context.Background(), models.Observation{Price: 50000, FearGreed: 40})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersist))
	assert.True(t, errors.Is(err, errBoom))
	require.NotNil(t, snap)
	assert.Equal(t, fixedNow, snap.Observation.Timestamp)
	assert.Equal(t, 1, met.errors["snapshot_store"])
}

func TestIngestRejectsInvalidObservations(t *testing.T) {
	d := newTestDashboard(&fakeMarket{}, newFakeMetrics())

	tests := []struct {
		name string
		obs  models.Observation
	}{
		{"zero price", models.Observation{Price: 0, FearGreed: 50}},
		{"negative price", models.Observation{Price: -1, FearGreed: 50}},
		{"fng above range", models.Observation{Price: 1, FearGreed: 101}},
		{"fng below range", models.Observation{Price: 1, FearGreed: -1}},
		{"before genesis", models.Observation{Price: 1, FearGreed: 50, Timestamp: time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := d.Ingest(context.Background(), tt.obs)
			require.ErrorIs(t, err, ErrInvalidObservation)
			assert.Nil(t, snap)
		})
	}
}

func TestChartHistoricalAndProjection(t *testing.T) {
	from := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	m := &fakeMarket{history: []models.PricePoint{
		{Time: from, Price: 100000},
		{Time: from.AddDate(0, 0, 10), Price: 110000},
	}}
	d := newTestDashboard(m, newFakeMetrics())

	chart, err := d.Chart(context.Background(), ChartParams{
		From:         from,
		To:           from.AddDate(0, 0, 14),
		StepDays:     1,
		ProjectYears: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 15, m.histDays)
	assert.Equal(t, 11, chart.Historical)
	require.Len(t, chart.Points, 15+365)

	first := chart.Points[0]
	assert.Equal(t, 100000.0, first.Price)
	assert.InDelta(t, indicators.Oscillator(100000, first.Curves.Weighted), first.Oscillator, 1e-12)

	// interpolated day between the two closes
	assert.Greater(t, chart.Points[5].Price, 100000.0)
	assert.Less(t, chart.Points[5].Price, 110000.0)

	assert.Zero(t, chart.Points[12].Price)
	assert.False(t, chart.Points[14].Projected)
	last := chart.Points[len(chart.Points)-1]
	assert.True(t, last.Projected)
	assert.Zero(t, last.Price)
	assert.Equal(t, from.AddDate(1, 0, 14), last.Curves.Date)
}

func TestChartSurvivesHistoryFailure(t *testing.T) {
	met := newFakeMetrics()
	d := newTestDashboard(&fakeMarket{histErr: errBoom}, met)

	chart, err := d.Chart(context.Background(), ChartParams{
		From:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2025, 1, 29, 0, 0, 0, 0, time.UTC),
		StepDays: 7,
	})
	require.NoError(t, err)
	assert.Len(t, chart.Points, 5)
	assert.Zero(t, chart.Historical)
	assert.Equal(t, 1, met.errors["market_history"])
}

func TestChartRejectsBadRanges(t *testing.T) {
	d := newTestDashboard(&fakeMarket{}, newFakeMetrics())

	_, err := d.Chart(context.Background(), ChartParams{
		From: time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2009, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, valuation.ErrBeforeGenesis)

	_, err = d.Chart(context.Background(), ChartParams{
		From: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, valuation.ErrInvalidRange)
}

func TestChartIsCached(t *testing.T) {
	m := &fakeMarket{history: []models.PricePoint{{Time: fixedNow.AddDate(0, 0, -3), Price: 90000}, {Time: fixedNow, Price: 95000}}}
	mem := cache.NewMemoryCache()
	defer mem.Close()
	d := newTestDashboard(m, newFakeMetrics(), WithChartCache(mem, time.Minute))

	p := ChartParams{From: fixedNow.AddDate(0, 0, -3), To: fixedNow, StepDays: 1}
	first, err := d.Chart(context.Background(), p)
	require.NoError(t, err)

	m.history = nil
	second, err := d.Chart(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, first.Historical, second.Historical)
	assert.Equal(t, first.Points[0].Price, second.Points[0].Price)
}

func TestInvalidateChartsDropsOnlyCharts(t *testing.T) {
	m := &fakeMarket{history: []models.PricePoint{{Time: fixedNow.AddDate(0, 0, -3), Price: 90000}, {Time: fixedNow, Price: 95000}}}
	mem := cache.NewMemoryCache()
	defer mem.Close()
	d := newTestDashboard(m, newFakeMetrics(), WithChartCache(mem, time.Minute))
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, "market:last_observation", models.Observation{Price: 1}, time.Minute))

	p := ChartParams{From: fixedNow.AddDate(0, 0, -3), To: fixedNow, StepDays: 1}
	first, err := d.Chart(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Historical)

	require.NoError(t, d.InvalidateCharts(ctx))

	m.history = nil
	rebuilt, err := d.Chart(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 0, rebuilt.Historical)
	assert.Zero(t, rebuilt.Points[0].Price)

	ok, err := mem.Exists(ctx, "market:last_observation")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInvalidateChartsWithoutCache(t *testing.T) {
	d := newTestDashboard(&fakeMarket{}, newFakeMetrics())
	assert.NoError(t, d.InvalidateCharts(context.Background()))
}

func TestHistory(t *testing.T) {
	d := newTestDashboard(&fakeMarket{}, newFakeMetrics())
	_, err := d.History(context.Background(), time.Time{}, time.Time{}, 10)
	require.ErrorIs(t, err, ErrHistoryDisabled)

	store := &fakeStore{query: []*models.Snapshot{{}}}
	d = newTestDashboard(&fakeMarket{}, newFakeMetrics(), WithSnapshotStore(store))
	out, err := d.History(context.Background(), time.Time{}, time.Time{}, 10)
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, fixedNow, store.to)
	assert.Equal(t, fixedNow.AddDate(0, 0, -30), store.from)
	assert.Equal(t, 10, store.limit)

	_, err = d.History(context.Background(), fixedNow, fixedNow.AddDate(0, 0, -1), 10)
	assert.ErrorIs(t, err, valuation.ErrInvalidRange)
}
