package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/repository"
	applogger "github.com/y2kjoh23-ux/btc-compass-26/pkg/logger"
)

// DefaultSnapshotTable is the ClickHouse table holding valuation snapshots.
const DefaultSnapshotTable = "valuation_snapshots"

const snapshotColumns = `ts, days, price, fng, source,
		standard, decaying, cycle, weighted, upper, lower, sigma,
		oscillator, onchain, price_risk, sentiment_risk, onchain_risk, risk_percent, regime,
		created_at`

// SnapshotSchema returns the idempotent DDL for the snapshot table.
func SnapshotSchema(table string) []string {
	return []string{fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			ts             DateTime64(3, 'UTC'),
			days           Int32,
			price          Float64,
			fng            UInt8,
			source         LowCardinality(String),
			standard       Float64,
			decaying       Float64,
			cycle          Float64,
			weighted       Float64,
			upper          Float64,
			lower          Float64,
			sigma          Float64,
			oscillator     Float64,
			onchain        Float64,
			price_risk     Float64,
			sentiment_risk Float64,
			onchain_risk   Float64,
			risk_percent   Float64,
			regime         LowCardinality(String),
			created_at     DateTime64(3, 'UTC')
		) ENGINE = ReplacingMergeTree(created_at)
		ORDER BY ts`, table)}
}

// CHSnapshotStore implements SnapshotStore backed by ClickHouse.
type CHSnapshotStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ repository.SnapshotStore = (*CHSnapshotStore)(nil)

// NewCHSnapshotStore creates a snapshot store over an open pool. The pool is owned by the caller.
func NewCHSnapshotStore(db *sql.DB, table string, l *applogger.Logger) *CHSnapshotStore {
	if table == "" {
		table = DefaultSnapshotTable
	}
	return &CHSnapshotStore{db: db, table: table, l: l}
}

func (s *CHSnapshotStore) Init(ctx context.Context) error {
	for _, stmt := range SnapshotSchema(s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init %s: %w", s.table, err)
		}
	}
	return nil
}

func (s *CHSnapshotStore) Store(ctx context.Context, snap *models.Snapshot) error {
	start := time.Now()
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table, snapshotColumns)

	o, c, i := snap.Observation, snap.Curves, snap.Indicators
	_, err := s.db.ExecContext(ctx, q,
		o.Timestamp.UTC(), int32(c.Days), o.Price, uint8(o.FearGreed), o.Source,
		c.Standard, c.Decaying, c.Cycle, c.Weighted, c.Upper, c.Lower, c.Sigma,
		i.Oscillator, i.OnChainProxy, i.PriceRisk, i.SentimentRisk, i.OnChainRisk, i.RiskPercent, string(i.Regime),
		snap.CreatedAt.UTC(),
	)
	if err != nil {
		s.l.Error("clickhouse store snapshot", applogger.String("table", s.table), applogger.Error(err))
		return fmt.Errorf("store snapshot: %w", err)
	}
	s.l.Debug("clickhouse store snapshot ok",
		applogger.String("table", s.table),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// Query returns snapshots with from <= ts <= to, newest first.
func (s *CHSnapshotStore) Query(ctx context.Context, from, to time.Time, limit int) ([]*models.Snapshot, error) {
	q := fmt.Sprintf("SELECT %s FROM %s FINAL WHERE ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", snapshotColumns, s.table)
	rows, err := s.db.QueryContext(ctx, q, from.UTC(), to.UTC(), limit)
	if err != nil {
		s.l.Error("clickhouse query snapshots", applogger.String("table", s.table), applogger.Error(err))
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Snapshot, 0, limit)
	for rows.Next() {
		var (
			snap   models.Snapshot
			days   int32
			fng    uint8
			regime string
		)
		o, c, i := &snap.Observation, &snap.Curves, &snap.Indicators
		if err := rows.Scan(
			&o.Timestamp, &days, &o.Price, &fng, &o.Source,
			&c.Standard, &c.Decaying, &c.Cycle, &c.Weighted, &c.Upper, &c.Lower, &c.Sigma,
			&i.Oscillator, &i.OnChainProxy, &i.PriceRisk, &i.SentimentRisk, &i.OnChainRisk, &i.RiskPercent, &regime,
			&snap.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		c.Days = int(days)
		c.Date = dayOf(o.Timestamp)
		o.FearGreed = int(fng)
		i.Regime = models.Regime(regime)
		out = append(out, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHSnapshotStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHSnapshotStore) Close() error {
	return nil // pool managed by pkg/clickhouse
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
