// Package valuation implements the fair-value model: two power-law curves, a
// halving-cycle wave, their fixed blend, and a maturity-dependent volatility band.
// Every function is pure; an Engine holds only its immutable Params.
package valuation

import (
	"errors"
	"math"
	"time"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
	domsvc "github.com/y2kjoh23-ux/btc-compass-26/internal/domain/service"
)

// ErrBeforeGenesis is returned by CheckDate for dates at or before genesis.
var ErrBeforeGenesis = errors.New("date is at or before genesis")

const secondsPerDay = 86400

// Engine evaluates the valuation model for a fixed calibration.
type Engine struct {
	p Params
}

var _ domsvc.Valuator = (*Engine)(nil)

// New validates p and returns an Engine bound to it.
func New(p Params) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.Genesis = utcDay(p.Genesis)
	p.HalvingReference = utcDay(p.HalvingReference)
	return &Engine{p: p}, nil
}

// Default returns an Engine with DefaultParams.
func Default() *Engine {
	e, err := New(DefaultParams())
	if err != nil {
		panic(err)
	}
	return e
}

// Params returns a copy of the calibration.
func (e *Engine) Params() Params { return e.p }

// DayCount returns floor((day(t) - genesis) / 1 day). It is not clamped.
func (e *Engine) DayCount(t time.Time) int {
	return daysBetween(e.p.Genesis, t)
}

// CheckDate reports ErrBeforeGenesis when t has no positive day count.
func (e *Engine) CheckDate(t time.Time) error {
	if e.DayCount(t) < 1 {
		return ErrBeforeGenesis
	}
	return nil
}

// Standard is the slow power-law curve A_STD * days^B_STD.
func (e *Engine) Standard(days int) float64 {
	return e.p.StandardCoef * math.Pow(clampDays(days), e.p.StandardExp)
}

// Decaying is the fast-convergence power-law curve.
func (e *Engine) Decaying(days int) float64 {
	return e.p.DecayingCoef * math.Pow(clampDays(days), e.p.DecayingExp)
}

// CycleDays returns the day offset from the halving reference folded into [0, period).
func (e *Engine) CycleDays(t time.Time) int {
	period := e.p.CyclePeriodDays
	off := daysBetween(e.p.HalvingReference, t)
	return ((off % period) + period) % period
}

// Wave is the periodic multiplier 1 + amp*sin(2π*cycleDays/period).
func (e *Engine) Wave(t time.Time) float64 {
	period := float64(e.p.CyclePeriodDays)
	return 1 + e.p.CycleAmplitude*math.Sin(2*math.Pi*float64(e.CycleDays(t))/period)
}

// Cycle is the standard curve modulated by the halving wave.
func (e *Engine) Cycle(days int, t time.Time) float64 {
	return e.Standard(days) * e.Wave(t)
}

// Sigma is the band half-width in log space. It equals BaseSigma up to the
// reference day and decays as a power law afterwards.
func (e *Engine) Sigma(days int) float64 {
	ref := e.p.SigmaReferenceDay
	return e.p.BaseSigma * math.Pow(ref/math.Max(ref, float64(days)), e.p.SigmaDecay)
}

// Evaluate computes the full curve set for the UTC calendar day containing t.
// Dates at or before genesis are clamped to day 1 for the power-law terms.
func (e *Engine) Evaluate(t time.Time) models.CurveSet {
	d := utcDay(t)
	days := e.DayCount(d)

	std := e.Standard(days)
	dec := e.Decaying(days)
	cyc := std * e.Wave(d)

	b := e.p.Blend
	weighted := b.Decaying*dec + b.Cycle*cyc + b.Standard*std
	sigma := e.Sigma(days)

	return models.CurveSet{
		Date:     d,
		Days:     days,
		Standard: std,
		Decaying: dec,
		Cycle:    cyc,
		Weighted: weighted,
		Upper:    weighted * math.Exp(sigma),
		Lower:    weighted * math.Exp(-sigma),
		Sigma:    sigma,
	}
}

func clampDays(days int) float64 {
	if days < 1 {
		return 1
	}
	return float64(days)
}

func utcDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from origin to t, flooring toward -inf.
// It works on Unix seconds because time.Duration saturates after ~292 years.
func daysBetween(origin, t time.Time) int {
	secs := utcDay(t).Unix() - utcDay(origin).Unix()
	return int(floorDiv(secs, secondsPerDay))
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
