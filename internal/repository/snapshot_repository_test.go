package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
	applogger "github.com/y2kjoh23-ux/btc-compass-26/pkg/logger"
)

func sampleSnapshot() *models.Snapshot {
	ts := time.Date(2022, 9, 8, 12, 0, 0, 0, time.UTC)
	return &models.Snapshot{
		Observation: models.Observation{Price: 19000, Timestamp: ts, FearGreed: 22, Source: "live"},
		Curves: models.CurveSet{
			Date: time.Date(2022, 9, 8, 0, 0, 0, 0, time.UTC), Days: 5000,
			Standard: 20000, Decaying: 25000, Cycle: 19000, Weighted: 21700, Upper: 34000, Lower: 13800, Sigma: 0.45,
		},
		Indicators: models.IndicatorSet{
			Oscillator: -0.13, OnChainProxy: 1.6, PriceRisk: 37, SentimentRisk: 22, OnChainRisk: 26.7,
			RiskPercent: 31.9, Regime: models.RegimeAccumulate,
		},
		CreatedAt: ts.Add(time.Second),
	}
}

func TestCHSnapshotStoreInit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS valuation_snapshots").WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewCHSnapshotStore(db, "", applogger.Nop())
	require.NoError(t, s.Init(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSnapshotStoreStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	snap := sampleSnapshot()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO snaps")).
		WithArgs(snap.Observation.Timestamp, int32(5000), 19000.0, uint8(22), "live",
			20000.0, 25000.0, 19000.0, 21700.0, 34000.0, 13800.0, 0.45,
			-0.13, 1.6, 37.0, 22.0, 26.7, 31.9, "ACCUMULATE", snap.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewCHSnapshotStore(db, "snaps", applogger.Nop())
	require.NoError(t, s.Store(context.Background(), snap))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSnapshotStoreStoreError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO").WillReturnError(errors.New("connection reset"))

	s := NewCHSnapshotStore(db, "", applogger.Nop())
	require.Error(t, s.Store(context.Background(), sampleSnapshot()))
}

func TestCHSnapshotStoreQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	snap := sampleSnapshot()
	cols := []string{"ts", "days", "price", "fng", "source",
		"standard", "decaying", "cycle", "weighted", "upper", "lower", "sigma",
		"oscillator", "onchain", "price_risk", "sentiment_risk", "onchain_risk", "risk_percent", "regime",
		"created_at"}
	rows := sqlmock.NewRows(cols).AddRow(
		snap.Observation.Timestamp, int32(5000), 19000.0, uint8(22), "live",
		20000.0, 25000.0, 19000.0, 21700.0, 34000.0, 13800.0, 0.45,
		-0.13, 1.6, 37.0, 22.0, 26.7, 31.9, "ACCUMULATE", snap.CreatedAt,
	)
	from := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM valuation_snapshots FINAL WHERE ts >= ? AND ts <= ?")).
		WithArgs(from, to, 10).
		WillReturnRows(rows)

	s := NewCHSnapshotStore(db, "", applogger.Nop())
	got, err := s.Query(context.Background(), from, to, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, snap.Curves, got[0].Curves)
	assert.Equal(t, snap.Indicators, got[0].Indicators)
	assert.Equal(t, 22, got[0].Observation.FearGreed)
	require.NoError(t, mock.ExpectationsWereMet())
}

type captureProducer struct {
	topic string
	key   []byte
	value interface{}
}

func (p *captureProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.topic, p.key, p.value = topic, key, value
	return nil
}

func (p *captureProducer) Close() error { return nil }

func TestKafkaSnapshotPublisher(t *testing.T) {
	prod := &captureProducer{}
	pub := NewKafkaSnapshotPublisher(prod, "compass.snapshots")

	require.NoError(t, pub.Publish(context.Background(), sampleSnapshot()))
	assert.Equal(t, "compass.snapshots", prod.topic)
	assert.Equal(t, "5000", string(prod.key))

	b, err := json.Marshal(prod.value)
	require.NoError(t, err)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &msg))
	assert.Equal(t, "2022-09-08", msg["date"])
	assert.Equal(t, "ACCUMULATE", msg["regime"])
	assert.EqualValues(t, 22, msg["fngIndex"])
}
