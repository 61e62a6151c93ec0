package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/services/valuation"
)

func TestOscillator(t *testing.T) {
	assert.Equal(t, 0.0, Oscillator(50000, 50000))
	assert.InDelta(t, math.Ln2, Oscillator(100000, 50000), 1e-15)
	assert.InDelta(t, -math.Ln2, Oscillator(25000, 50000), 1e-15)
	assert.Equal(t, 0.0, Oscillator(0, 50000))
	assert.Equal(t, 0.0, Oscillator(-3, 50000))
	assert.Equal(t, 0.0, Oscillator(50000, 0))
	assert.Equal(t, 0.0, Oscillator(math.NaN(), 50000))
	assert.Equal(t, 0.0, Oscillator(50000, math.NaN()))
	assert.Equal(t, 0.0, Oscillator(math.Inf(1), 50000))
}

func TestOnChainProxy(t *testing.T) {
	d := Default()
	assert.Equal(t, 2.5, d.OnChainProxy(0))
	assert.InDelta(t, 9.0, d.OnChainProxy(1), 1e-12)
}

func TestRiskClamped(t *testing.T) {
	d := Default()
	tests := []struct {
		name string
		osc  float64
		fng  int
	}{
		{"price_100x", math.Log(100), 100},
		{"price_1_100th", math.Log(0.01), 0},
		{"sentiment_out_of_range_high", 0, 250},
		{"sentiment_out_of_range_low", 0, -20},
		{"nan_oscillator", math.NaN(), 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := d.Risk(tt.osc, tt.fng)
			for _, v := range []float64{r.Price, r.Sentiment, r.OnChain, r.Percent} {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 100.0)
			}
		})
	}

	top := d.Risk(math.Log(100), 100)
	assert.InDelta(t, 100.0, top.Percent, 1e-9)
	bottom := d.Risk(math.Log(0.01), 0)
	assert.Equal(t, 0.0, bottom.Percent)
}

func TestClassifyTotal(t *testing.T) {
	d := Default()
	for r := 0.0; r <= 100.0; r += 0.25 {
		got := d.Classify(r)
		var n int
		for _, want := range []models.Regime{models.RegimeAccumulate, models.RegimeStable, models.RegimeSell} {
			if got == want {
				n++
			}
		}
		require.Equal(t, 1, n, "risk=%v", r)
	}
	assert.Equal(t, models.RegimeAccumulate, d.Classify(34.999))
	assert.Equal(t, models.RegimeStable, d.Classify(35))
	assert.Equal(t, models.RegimeStable, d.Classify(70))
	assert.Equal(t, models.RegimeSell, d.Classify(70.001))
}

func TestClassifyHasNoMemory(t *testing.T) {
	d := Default()
	seq := []float64{69.9, 70.1, 69.9, 70.1}
	want := []models.Regime{models.RegimeStable, models.RegimeSell, models.RegimeStable, models.RegimeSell}
	for i, r := range seq {
		assert.Equal(t, want[i], d.Classify(r))
	}
}

func TestDeriveAtFairValueIsStable(t *testing.T) {
	e := valuation.Default()
	day := valuation.GenesisDate.AddDate(0, 0, 5000)
	cs := e.Evaluate(day)

	for _, p := range []Profile{DefaultProfile(), AggressiveProfile()} {
		d, err := New(p)
		require.NoError(t, err)
		ind := d.Derive(models.Observation{Price: cs.Weighted, Timestamp: day, FearGreed: 50}, cs)
		assert.Equal(t, 0.0, ind.Oscillator)
		assert.Equal(t, 2.5, ind.OnChainProxy)
		assert.Equal(t, 50.0, ind.PriceRisk)
		assert.Equal(t, models.RegimeStable, ind.Regime)
	}

	ind := Default().Derive(models.Observation{Price: cs.Weighted, FearGreed: 50}, cs)
	// 0.6*50 + 0.2*50 + 0.2*(2.5/6*100)
	assert.InDelta(t, 30+10+0.2*(2.5/6*100), ind.RiskPercent, 1e-9)
}

func TestDeriveExtremes(t *testing.T) {
	cs := valuation.Default().Evaluate(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	d := Default()

	hot := d.Derive(models.Observation{Price: 100 * cs.Weighted, FearGreed: 100}, cs)
	assert.Equal(t, models.RegimeSell, hot.Regime)
	assert.LessOrEqual(t, hot.RiskPercent, 100.0)

	cold := d.Derive(models.Observation{Price: cs.Weighted / 10, FearGreed: 5}, cs)
	assert.Equal(t, models.RegimeAccumulate, cold.Regime)
	assert.GreaterOrEqual(t, cold.RiskPercent, 0.0)

	zero := d.Derive(models.Observation{Price: 0, FearGreed: 50}, cs)
	assert.Equal(t, 0.0, zero.Oscillator)
}

func TestProfileValidate(t *testing.T) {
	require.NoError(t, DefaultProfile().Validate())
	require.NoError(t, AggressiveProfile().Validate())

	p := DefaultProfile()
	p.PriceWeight = 0.9
	assert.Error(t, p.Validate())

	p = DefaultProfile()
	p.AccumulateBelow, p.SellAbove = 80, 40
	assert.Error(t, p.Validate())
	_, err := New(p)
	assert.Error(t, err)
}
