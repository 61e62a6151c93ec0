// Package indicators derives the oscillator, on-chain proxy, composite risk and
// regime of an observation against its contemporaneous model output.
package indicators

import (
	"math"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
	domsvc "github.com/y2kjoh23-ux/btc-compass-26/internal/domain/service"
)

// Deriver applies a fixed Profile.
type Deriver struct {
	p Profile
}

var _ domsvc.IndicatorDeriver = (*Deriver)(nil)

// New validates p and returns a Deriver.
func New(p Profile) (*Deriver, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Deriver{p: p}, nil
}

// Default returns a Deriver with DefaultProfile.
func Default() *Deriver {
	d, err := New(DefaultProfile())
	if err != nil {
		panic(err)
	}
	return d
}

// Profile returns a copy of the active profile.
func (d *Deriver) Profile() Profile { return d.p }

// Oscillator is ln(price/weighted), or 0 when either side is not a positive number.
func Oscillator(price, weighted float64) float64 {
	if !positive(price) || !positive(weighted) {
		return 0
	}
	return math.Log(price / weighted)
}

func positive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// OnChainProxy maps the oscillator onto the on-chain indicator scale.
func (d *Deriver) OnChainProxy(osc float64) float64 {
	return osc*d.p.OnChainScale + d.p.OnChainOffset
}

// Risk holds the clamped sub-scores and their weighted composite.
type Risk struct {
	Price     float64
	Sentiment float64
	OnChain   float64
	Percent   float64
}

// Risk computes the composite 0..100 risk from an oscillator and sentiment index.
func (d *Deriver) Risk(osc float64, fearGreed int) Risk {
	r := Risk{
		Price:     clamp((osc+d.p.OscillatorOffset)/d.p.OscillatorSpan*100, 0, 100),
		Sentiment: clamp(float64(fearGreed), 0, 100),
		OnChain:   clamp(d.OnChainProxy(osc)/d.p.OnChainCeiling*100, 0, 100),
	}
	r.Percent = clamp(r.Price*d.p.PriceWeight+r.Sentiment*d.p.SentimentWeight+r.OnChain*d.p.OnChainWeight, 0, 100)
	return r
}

// Classify maps a risk percent to its regime. It keeps no state between calls.
func (d *Deriver) Classify(risk float64) models.Regime {
	switch {
	case risk < d.p.AccumulateBelow:
		return models.RegimeAccumulate
	case risk > d.p.SellAbove:
		return models.RegimeSell
	default:
		return models.RegimeStable
	}
}

// Derive computes the full indicator set for obs against cs.
func (d *Deriver) Derive(obs models.Observation, cs models.CurveSet) models.IndicatorSet {
	osc := Oscillator(obs.Price, cs.Weighted)
	r := d.Risk(osc, obs.FearGreed)
	return models.IndicatorSet{
		Oscillator:    osc,
		OnChainProxy:  d.OnChainProxy(osc),
		PriceRisk:     r.Price,
		SentimentRisk: r.Sentiment,
		OnChainRisk:   r.OnChain,
		RiskPercent:   r.Percent,
		Regime:        d.Classify(r.Percent),
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
