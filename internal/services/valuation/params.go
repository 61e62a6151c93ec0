package valuation

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Blend holds the convex weights of the fair-value blend.
type Blend struct {
	Decaying float64
	Cycle    float64
	Standard float64
}

// Sum returns the total weight.
func (b Blend) Sum() float64 { return b.Decaying + b.Cycle + b.Standard }

// Params is the immutable calibration of the valuation model.
type Params struct {
	Genesis          time.Time
	HalvingReference time.Time

	StandardCoef float64
	StandardExp  float64
	DecayingCoef float64
	DecayingExp  float64

	CyclePeriodDays int
	CycleAmplitude  float64

	Blend Blend

	BaseSigma         float64
	SigmaDecay        float64
	SigmaReferenceDay float64
}

var (
	// GenesisDate is the origin of the day count.
	GenesisDate = time.Date(2009, time.January, 3, 0, 0, 0, 0, time.UTC)
	// HalvingReferenceDate phase-locks the cycle wave.
	HalvingReferenceDate = time.Date(2024, time.April, 20, 0, 0, 0, 0, time.UTC)
)

// DefaultParams returns the canonical calibration.
func DefaultParams() Params {
	return Params{
		Genesis:           GenesisDate,
		HalvingReference:  HalvingReferenceDate,
		StandardCoef:      1.48e-17,
		StandardExp:       5.78,
		DecayingCoef:      1.48e-15,
		DecayingExp:       5.25,
		CyclePeriodDays:   1460,
		CycleAmplitude:    0.15,
		Blend:             Blend{Decaying: 0.4, Cycle: 0.3, Standard: 0.3},
		BaseSigma:         0.5,
		SigmaDecay:        0.12,
		SigmaReferenceDay: 5800,
	}
}

const weightTolerance = 1e-9

// Validate checks the calibration for values that would break the model invariants.
func (p Params) Validate() error {
	var errs []error
	if p.Genesis.IsZero() {
		errs = append(errs, errors.New("genesis is required"))
	}
	if p.HalvingReference.Before(p.Genesis) {
		errs = append(errs, errors.New("halving reference must not precede genesis"))
	}
	if p.StandardCoef <= 0 || p.DecayingCoef <= 0 {
		errs = append(errs, errors.New("power-law coefficients must be positive"))
	}
	if p.StandardExp <= 0 || p.DecayingExp <= 0 {
		errs = append(errs, errors.New("power-law exponents must be positive"))
	}
	if p.CyclePeriodDays <= 0 {
		errs = append(errs, fmt.Errorf("cycle period must be positive, got %d", p.CyclePeriodDays))
	}
	// amplitude >= 1 lets the wave reach zero and breaks positivity
	if p.CycleAmplitude < 0 || p.CycleAmplitude >= 1 {
		errs = append(errs, fmt.Errorf("cycle amplitude must be in [0,1), got %g", p.CycleAmplitude))
	}
	if p.Blend.Decaying < 0 || p.Blend.Cycle < 0 || p.Blend.Standard < 0 {
		errs = append(errs, errors.New("blend weights must be non-negative"))
	}
	if math.Abs(p.Blend.Sum()-1) > weightTolerance {
		errs = append(errs, fmt.Errorf("blend weights must sum to 1, got %g", p.Blend.Sum()))
	}
	if p.BaseSigma <= 0 || p.SigmaDecay <= 0 || p.SigmaReferenceDay <= 0 {
		errs = append(errs, errors.New("sigma parameters must be positive"))
	}
	return errors.Join(errs...)
}
