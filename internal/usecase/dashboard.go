package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
	drepo "github.com/y2kjoh23-ux/btc-compass-26/internal/domain/repository"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/services/features"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/services/indicators"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/services/valuation"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/cache"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/logger"
)

var (
	// ErrInvalidObservation is returned for observations that cannot be assessed.
	ErrInvalidObservation = errors.New("invalid observation")
	// ErrHistoryDisabled is returned by History when no snapshot store is configured.
	ErrHistoryDisabled = errors.New("snapshot history is disabled")
	// ErrPersist wraps publish/store failures. The snapshot itself is still valid.
	ErrPersist = errors.New("persist snapshot")
)

const (
	maxHistoryDays = 5000
	chartKeyPrefix = "chart"
)

// ChartParams selects the chart range. Zero From/To default to the last year up to today.
type ChartParams struct {
	From         time.Time
	To           time.Time
	StepDays     int
	ProjectYears int
}

// DashboardOption configures Dashboard.
type DashboardOption func(*Dashboard)

// WithSnapshotStore enables snapshot history.
func WithSnapshotStore(s drepo.SnapshotStore) DashboardOption {
	return func(d *Dashboard) { d.store = s }
}

// WithSnapshotPublisher publishes every assessed snapshot.
func WithSnapshotPublisher(p drepo.SnapshotPublisher) DashboardOption {
	return func(d *Dashboard) { d.pub = p }
}

// WithChartCache caches charts for ttl.
func WithChartCache(c cache.Service, ttl time.Duration) DashboardOption {
	return func(d *Dashboard) {
		d.cache = c
		d.chartTTL = ttl
	}
}

// WithWorkers bounds the series worker pool.
func WithWorkers(n int) DashboardOption {
	return func(d *Dashboard) { d.workers = n }
}

// WithTimeout bounds every operation that talks to a collaborator.
func WithTimeout(t time.Duration) DashboardOption {
	return func(d *Dashboard) { d.timeout = t }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) DashboardOption {
	return func(d *Dashboard) { d.now = now }
}

// Dashboard assembles model output, indicators and persistence for the API and CLI.
type Dashboard struct {
	engine  *valuation.Engine
	deriver *indicators.Deriver
	market  drepo.MarketSource
	metrics drepo.Metrics
	log     *logger.Logger

	store    drepo.SnapshotStore
	pub      drepo.SnapshotPublisher
	cache    cache.Service
	chartTTL time.Duration
	workers  int
	timeout  time.Duration
	now      func() time.Time
}

// NewDashboard creates a new Dashboard instance.
func NewDashboard(
	engine *valuation.Engine,
	deriver *indicators.Deriver,
	market drepo.MarketSource,
	metrics drepo.Metrics,
	log *logger.Logger,
	opts ...DashboardOption,
) *Dashboard {
	d := &Dashboard{
		engine:  engine,
		deriver: deriver,
		market:  market,
		metrics: metrics,
		log:     log,
		timeout: 15 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Engine exposes the valuation engine for read-only callers.
func (d *Dashboard) Engine() *valuation.Engine { return d.engine }

// Profile returns the active risk profile.
func (d *Dashboard) Profile() indicators.Profile { return d.deriver.Profile() }

// CheckDate rejects dates before genesis.
func (d *Dashboard) CheckDate(t time.Time) error { return d.engine.CheckDate(t) }

// Evaluate returns the model curves for date's UTC day.
func (d *Dashboard) Evaluate(date time.Time) models.CurveSet {
	return d.engine.Evaluate(date)
}

// Derive assesses obs against the curves of date. A zero date uses the observation timestamp.
func (d *Dashboard) Derive(obs models.Observation, date time.Time) models.Snapshot {
	if date.IsZero() {
		date = obs.Timestamp
	}
	cs := d.engine.Evaluate(date)
	return models.Snapshot{
		Observation: obs,
		Curves:      cs,
		Indicators:  d.deriver.Derive(obs, cs),
		CreatedAt:   d.now().UTC(),
	}
}

// Snapshot fetches the current observation and assesses it.
func (d *Dashboard) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := d.now()
	obs, err := d.market.Observation(ctx)
	d.metrics.RecordLatency("market_observation", d.now().Sub(start).Seconds())
	if err != nil {
		d.metrics.RecordError("market_observation")
		return nil, fmt.Errorf("fetch observation: %w", err)
	}
	return d.Ingest(ctx, obs)
}

// Ingest assesses a supplied observation, records it and hands it to the configured sinks.
// On a sink failure the snapshot is returned together with an error wrapping ErrPersist.
func (d *Dashboard) Ingest(ctx context.Context, obs models.Observation) (*models.Snapshot, error) {
	if obs.Price <= 0 || math.IsNaN(obs.Price) || math.IsInf(obs.Price, 0) {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidObservation)
	}
	if obs.FearGreed < 0 || obs.FearGreed > 100 {
		return nil, fmt.Errorf("%w: fear & greed %d out of range", ErrInvalidObservation, obs.FearGreed)
	}
	if obs.Timestamp.IsZero() {
		obs.Timestamp = d.now()
	}
	obs.Timestamp = obs.Timestamp.UTC()
	if err := d.engine.CheckDate(obs.Timestamp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidObservation, err)
	}

	snap := d.Derive(obs, obs.Timestamp)
	d.metrics.RecordSnapshot(snap)
	d.log.Debug("snapshot assessed",
		logger.String("source", obs.Source),
		logger.Float64("price", obs.Price),
		logger.Float64("fair_value", snap.Curves.Weighted),
		logger.Float64("risk", snap.Indicators.RiskPercent),
		logger.String("regime", string(snap.Indicators.Regime)),
	)

	if err := d.persist(ctx, &snap); err != nil {
		return &snap, err
	}
	return &snap, nil
}

func (d *Dashboard) persist(ctx context.Context, snap *models.Snapshot) error {
	var errs []error
	if d.pub != nil {
		start := d.now()
		if err := d.pub.Publish(ctx, snap); err != nil {
			d.metrics.RecordError("snapshot_publish")
			d.log.Warn("publish snapshot", logger.Error(err))
			errs = append(errs, err)
		}
		d.metrics.RecordLatency("snapshot_publish", d.now().Sub(start).Seconds())
	}
	if d.store != nil {
		start := d.now()
		if err := d.store.Store(ctx, snap); err != nil {
			d.metrics.RecordError("snapshot_store")
			d.log.Warn("store snapshot", logger.Error(err))
			errs = append(errs, err)
		}
		d.metrics.RecordLatency("snapshot_store", d.now().Sub(start).Seconds())
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrPersist, errors.Join(errs...))
	}
	return nil
}

// Chart reconstructs the model and observed oscillator over [From, To] and appends a
// model-only projection of ProjectYears after To.
func (d *Dashboard) Chart(ctx context.Context, p ChartParams) (*models.Chart, error) {
	today := features.TruncateDay(d.now())
	if p.To.IsZero() {
		p.To = today
	}
	if p.From.IsZero() {
		p.From = features.TruncateDay(p.To).AddDate(-1, 0, 0)
	}
	if p.StepDays <= 0 {
		p.StepDays = 1
	}
	p.From, p.To = features.TruncateDay(p.From), features.TruncateDay(p.To)
	if err := d.engine.CheckDate(p.From); err != nil {
		return nil, err
	}
	if p.From.After(p.To) {
		return nil, valuation.ErrInvalidRange
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	load := func(ctx context.Context) (*models.Chart, error) {
		return d.buildChart(ctx, p, today)
	}
	if d.cache == nil {
		return load(ctx)
	}

	key := cache.Key(chartKeyPrefix, p.From.Format(time.DateOnly), p.To.Format(time.DateOnly), p.StepDays, p.ProjectYears, today.Format(time.DateOnly))
	chart, hit, err := cache.GetOrLoad(ctx, d.cache, key, d.chartTTL, load)
	if err != nil {
		return nil, err
	}
	if hit {
		d.log.Debug("chart cache hit", logger.String("key", key))
	}
	return chart, nil
}

// InvalidateCharts drops every cached chart. Chart keys do not carry the model
// calibration, so this runs whenever the calibration may have changed.
func (d *Dashboard) InvalidateCharts(ctx context.Context) error {
	if d.cache == nil {
		return nil
	}
	if err := d.cache.DeleteByPattern(ctx, chartKeyPrefix+":*"); err != nil {
		return fmt.Errorf("invalidate charts: %w", err)
	}
	d.log.Info("chart cache invalidated")
	return nil
}

func (d *Dashboard) buildChart(ctx context.Context, p ChartParams, today time.Time) (*models.Chart, error) {
	start := d.now()
	defer func() { d.metrics.RecordLatency("chart", d.now().Sub(start).Seconds()) }()

	var series []models.PricePoint
	if !p.From.After(today) {
		days := int(today.Sub(p.From)/(24*time.Hour)) + 1
		if days > maxHistoryDays {
			days = maxHistoryDays
		}
		history, err := d.market.PriceHistory(ctx, days)
		if err != nil {
			// the model curves are still meaningful without observed prices
			d.metrics.RecordError("market_history")
			d.log.Warn("price history unavailable, charting model only", logger.Error(err))
		} else {
			series = features.Interpolate(history)
		}
	}

	memo := valuation.NewMemo(d.engine)
	dates, err := valuation.Dates(p.From, p.To, p.StepDays)
	if err != nil {
		return nil, err
	}
	curves, err := valuation.EvaluateAll(ctx, memo, dates, d.workers)
	if err != nil {
		return nil, err
	}

	chart := &models.Chart{
		From:     p.From,
		To:       p.To,
		StepDays: p.StepDays,
		Points:   make([]models.ChartPoint, 0, len(curves)),
	}
	leading := true
	for i, cs := range curves {
		pt := models.ChartPoint{Curves: cs}
		if price, ok := features.PriceAt(series, dates[i]); ok {
			pt.Price = price
			pt.Oscillator = indicators.Oscillator(price, cs.Weighted)
			if leading {
				chart.Historical++
			}
		} else {
			leading = false
		}
		chart.Points = append(chart.Points, pt)
	}

	projected, err := valuation.Projection(ctx, memo, p.To, p.ProjectYears, p.StepDays)
	if err != nil {
		return nil, err
	}
	for _, cs := range projected {
		chart.Points = append(chart.Points, models.ChartPoint{Curves: cs, Projected: true})
	}

	d.log.Debug("chart built",
		logger.Int("points", len(chart.Points)),
		logger.Int("historical", chart.Historical),
		logger.Int("memoized", memo.Len()),
	)
	return chart, nil
}

// History returns stored snapshots with observation time in [from, to], newest first.
func (d *Dashboard) History(ctx context.Context, from, to time.Time, limit int) ([]*models.Snapshot, error) {
	if d.store == nil {
		return nil, ErrHistoryDisabled
	}
	if to.IsZero() {
		to = d.now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if from.After(to) {
		return nil, valuation.ErrInvalidRange
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := d.now()
	out, err := d.store.Query(ctx, from.UTC(), to.UTC(), limit)
	d.metrics.RecordLatency("snapshot_query", d.now().Sub(start).Seconds())
	if err != nil {
		d.metrics.RecordError("snapshot_query")
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	return out, nil
}
