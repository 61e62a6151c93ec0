package valuation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDefaultParamsValid(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Validate())
	assert.Equal(t, 0.4, p.Blend.Decaying)
	assert.Equal(t, 0.3, p.Blend.Cycle)
	assert.Equal(t, 0.3, p.Blend.Standard)
	assert.InDelta(t, 1.0, p.Blend.Sum(), 1e-12)
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"blend_not_unit", func(p *Params) { p.Blend.Standard = 0.4 }},
		{"negative_weight", func(p *Params) { p.Blend = Blend{Decaying: 1.2, Cycle: -0.2, Standard: 0} }},
		{"zero_coef", func(p *Params) { p.StandardCoef = 0 }},
		{"zero_period", func(p *Params) { p.CyclePeriodDays = 0 }},
		{"amplitude_too_large", func(p *Params) { p.CycleAmplitude = 1 }},
		{"zero_sigma", func(p *Params) { p.BaseSigma = 0 }},
		{"halving_before_genesis", func(p *Params) { p.HalvingReference = date(2008, 1, 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
			_, err := New(p)
			assert.Error(t, err)
		})
	}
}

func TestDayCount(t *testing.T) {
	e := Default()
	assert.Equal(t, 0, e.DayCount(GenesisDate))
	assert.Equal(t, 1, e.DayCount(date(2009, 1, 4)))
	// intraday time floors to the calendar day
	assert.Equal(t, 1, e.DayCount(time.Date(2009, 1, 4, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, -1, e.DayCount(date(2009, 1, 2)))
	assert.Equal(t, 5000, e.DayCount(GenesisDate.AddDate(0, 0, 5000)))
}

func TestDayCountFarFuture(t *testing.T) {
	e := Default()
	for _, y := range []int{2300, 2302, 2400, 3000} {
		d := date(y, 6, 1)
		want := int((d.Unix() - GenesisDate.Unix()) / 86400)
		assert.Equal(t, want, e.DayCount(d), "year %d", y)

		off := int((d.Unix() - HalvingReferenceDate.Unix()) / 86400)
		assert.Equal(t, off%1460, e.CycleDays(d), "year %d", y)
	}
	// the 2302 and 2400 counts must keep growing
	assert.Greater(t, e.DayCount(date(2400, 6, 1)), e.DayCount(date(2302, 6, 1)))

	far := e.Evaluate(date(2400, 6, 1))
	assert.Equal(t, e.DayCount(date(2400, 6, 1)), far.Days)
	assert.Greater(t, far.Weighted, e.Evaluate(date(2302, 6, 1)).Weighted)
}

func TestDatesFarFuture(t *testing.T) {
	ds, err := Dates(date(2399, 1, 1), date(2400, 1, 1), 30)
	require.NoError(t, err)
	assert.Len(t, ds, 13)
	assert.Equal(t, date(2399, 12, 27), ds[12])
}

func TestCheckDate(t *testing.T) {
	e := Default()
	assert.ErrorIs(t, e.CheckDate(GenesisDate), ErrBeforeGenesis)
	assert.ErrorIs(t, e.CheckDate(date(2000, 1, 1)), ErrBeforeGenesis)
	assert.NoError(t, e.CheckDate(date(2009, 1, 4)))
}

func TestEndToEndDay5000(t *testing.T) {
	e := Default()
	d := GenesisDate.AddDate(0, 0, 5000)
	cs := e.Evaluate(d)

	require.Equal(t, 5000, cs.Days)
	assert.InEpsilon(t, 1.48e-17*math.Pow(5000, 5.78), cs.Standard, 1e-12)
	assert.InEpsilon(t, 1.48e-15*math.Pow(5000, 5.25), cs.Decaying, 1e-12)
	assert.InEpsilon(t, cs.Standard*e.Wave(d), cs.Cycle, 1e-12)
	assert.InEpsilon(t, 0.4*cs.Decaying+0.3*cs.Cycle+0.3*cs.Standard, cs.Weighted, 1e-12)
	// days <= reference day keeps the base sigma
	assert.Equal(t, 0.5, cs.Sigma)
	assert.InEpsilon(t, cs.Weighted*math.Exp(0.5), cs.Upper, 1e-12)
	assert.InEpsilon(t, cs.Weighted*math.Exp(-0.5), cs.Lower, 1e-12)
}

func TestBandOrderingAndPositivity(t *testing.T) {
	e := Default()
	for d := date(2009, 1, 4); d.Before(date(2045, 1, 1)); d = d.AddDate(0, 0, 37) {
		cs := e.Evaluate(d)
		require.Greater(t, cs.Standard, 0.0, d)
		require.Greater(t, cs.Decaying, 0.0, d)
		require.Greater(t, cs.Cycle, 0.0, d)
		require.Greater(t, cs.Weighted, 0.0, d)
		require.Greater(t, cs.Lower, 0.0, d)
		require.LessOrEqual(t, cs.Lower, cs.Weighted, d)
		require.LessOrEqual(t, cs.Weighted, cs.Upper, d)
	}
}

func TestBandSymmetricInLogSpace(t *testing.T) {
	cs := Default().Evaluate(date(2030, 6, 1))
	up := math.Log(cs.Upper / cs.Weighted)
	down := math.Log(cs.Weighted / cs.Lower)
	assert.InDelta(t, up, down, 1e-12)
	assert.InDelta(t, cs.Sigma, up, 1e-12)
}

func TestWavePeriodicity(t *testing.T) {
	e := Default()
	for _, d := range []time.Time{date(2010, 3, 14), date(2017, 12, 17), date(2024, 4, 20), date(2031, 9, 1)} {
		later := d.AddDate(0, 0, 1460)
		assert.Equal(t, e.CycleDays(d), e.CycleDays(later))
		assert.Equal(t, e.Wave(d), e.Wave(later))
		// holding days fixed isolates the wave factor
		days := e.DayCount(d)
		assert.Equal(t, e.Cycle(days, d), e.Cycle(days, later))
	}
}

func TestCycleDaysBeforeReference(t *testing.T) {
	e := Default()
	assert.Equal(t, 0, e.CycleDays(HalvingReferenceDate))
	assert.Equal(t, 1459, e.CycleDays(HalvingReferenceDate.AddDate(0, 0, -1)))
	assert.Equal(t, 1, e.CycleDays(HalvingReferenceDate.AddDate(0, 0, -1459)))
	assert.Equal(t, 1.0, e.Wave(HalvingReferenceDate))
	assert.InDelta(t, 1.15, e.Wave(HalvingReferenceDate.AddDate(0, 0, 365)), 1e-12)
}

func TestSigmaMonotonicity(t *testing.T) {
	e := Default()
	for _, d := range []int{-10, 0, 1, 100, 2500, 5799, 5800} {
		assert.Equal(t, 0.5, e.Sigma(d), "days=%d", d)
	}
	prev := e.Sigma(5800)
	for d := 5801; d < 20000; d += 173 {
		s := e.Sigma(d)
		require.Less(t, s, prev, "days=%d", d)
		require.Greater(t, s, 0.0)
		prev = s
	}
}

func TestEvaluateClampsBeforeGenesis(t *testing.T) {
	e := Default()
	for _, d := range []time.Time{GenesisDate, date(2008, 10, 31), date(1990, 1, 1)} {
		cs := e.Evaluate(d)
		assert.LessOrEqual(t, cs.Days, 0)
		assert.Equal(t, 1.48e-17, cs.Standard)
		assert.Equal(t, 1.48e-15, cs.Decaying)
		assert.False(t, math.IsNaN(cs.Weighted))
		assert.Greater(t, cs.Weighted, 0.0)
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	e := Default()
	d := time.Date(2026, 10, 16, 15, 4, 5, 0, time.FixedZone("X", 3*3600))
	a, b := e.Evaluate(d), e.Evaluate(d)
	assert.Equal(t, a, b)
	assert.Equal(t, math.Float64bits(a.Weighted), math.Float64bits(b.Weighted))
}

func TestEvaluateNormalizesToUTCDay(t *testing.T) {
	e := Default()
	early := time.Date(2025, 1, 1, 0, 30, 0, 0, time.UTC)
	late := time.Date(2025, 1, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, e.Evaluate(early), e.Evaluate(late))
	assert.Equal(t, date(2025, 1, 1), e.Evaluate(late).Date)
}
