package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	snapshots   *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	sources     *prometheus.CounterVec
	lastPrice   prometheus.Gauge
	fairValue   *prometheus.GaugeVec
	risk        *prometheus.GaugeVec
	oscillator  prometheus.Gauge
	regime      *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder on a custom registerer (useful for testing).
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		snapshots: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compass_snapshots_total",
				Help: "Total number of valuation snapshots produced",
			},
			[]string{"regime"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compass_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		sources: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compass_observation_source_total",
				Help: "Observations by the path that produced them (live, cache, default, ingest)",
			},
			[]string{"source"},
		),
		lastPrice: f.NewGauge(prometheus.GaugeOpts{
			Name: "compass_last_price_usd",
			Help: "Last observed spot price",
		}),
		fairValue: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "compass_model_value_usd",
				Help: "Model curves at the last snapshot",
			},
			[]string{"curve"},
		),
		risk: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "compass_risk_score",
				Help: "Risk sub-scores and composite percent at the last snapshot",
			},
			[]string{"component"},
		),
		oscillator: f.NewGauge(prometheus.GaugeOpts{
			Name: "compass_oscillator",
			Help: "Log deviation of price from the weighted fair value",
		}),
		regime: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "compass_regime",
				Help: "1 for the current regime, 0 otherwise",
			},
			[]string{"regime"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "compass_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSnapshot exports the curves and indicators of a snapshot.
func (r *Recorder) RecordSnapshot(s models.Snapshot) {
	ind := s.Indicators
	r.snapshots.WithLabelValues(string(ind.Regime)).Inc()
	r.sources.WithLabelValues(s.Observation.Source).Inc()
	r.lastPrice.Set(s.Observation.Price)

	r.fairValue.WithLabelValues("weighted").Set(s.Curves.Weighted)
	r.fairValue.WithLabelValues("upper").Set(s.Curves.Upper)
	r.fairValue.WithLabelValues("lower").Set(s.Curves.Lower)
	r.fairValue.WithLabelValues("standard").Set(s.Curves.Standard)
	r.fairValue.WithLabelValues("decaying").Set(s.Curves.Decaying)
	r.fairValue.WithLabelValues("cycle").Set(s.Curves.Cycle)

	r.risk.WithLabelValues("price").Set(ind.PriceRisk)
	r.risk.WithLabelValues("sentiment").Set(ind.SentimentRisk)
	r.risk.WithLabelValues("onchain").Set(ind.OnChainRisk)
	r.risk.WithLabelValues("percent").Set(ind.RiskPercent)
	r.oscillator.Set(ind.Oscillator)

	for _, rg := range []models.Regime{models.RegimeAccumulate, models.RegimeStable, models.RegimeSell} {
		v := 0.0
		if rg == ind.Regime {
			v = 1
		}
		r.regime.WithLabelValues(string(rg)).Set(v)
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
