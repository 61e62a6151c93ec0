package indicators

import (
	"errors"
	"fmt"
	"math"
)

// Profile is the immutable risk weighting and regime thresholding.
type Profile struct {
	PriceWeight     float64
	SentimentWeight float64
	OnChainWeight   float64

	AccumulateBelow float64
	SellAbove       float64

	OscillatorOffset float64
	OscillatorSpan   float64

	OnChainScale   float64
	OnChainOffset  float64
	OnChainCeiling float64
}

// DefaultProfile is the canonical 0.6/0.2/0.2 weighting with 35/70 thresholds.
func DefaultProfile() Profile {
	return Profile{
		PriceWeight:      0.6,
		SentimentWeight:  0.2,
		OnChainWeight:    0.2,
		AccumulateBelow:  35,
		SellAbove:        70,
		OscillatorOffset: 0.5,
		OscillatorSpan:   1.0,
		OnChainScale:     6.5,
		OnChainOffset:    2.5,
		OnChainCeiling:   6,
	}
}

// AggressiveProfile is the historical 0.7/0.15/0.15 weighting with a lower sell threshold.
func AggressiveProfile() Profile {
	p := DefaultProfile()
	p.PriceWeight, p.SentimentWeight, p.OnChainWeight = 0.7, 0.15, 0.15
	p.SellAbove = 65
	return p
}

// Validate checks weights and thresholds.
func (p Profile) Validate() error {
	var errs []error
	if p.PriceWeight < 0 || p.SentimentWeight < 0 || p.OnChainWeight < 0 {
		errs = append(errs, errors.New("risk weights must be non-negative"))
	}
	if sum := p.PriceWeight + p.SentimentWeight + p.OnChainWeight; math.Abs(sum-1) > 1e-9 {
		errs = append(errs, fmt.Errorf("risk weights must sum to 1, got %g", sum))
	}
	if p.AccumulateBelow < 0 || p.SellAbove > 100 || p.AccumulateBelow > p.SellAbove {
		errs = append(errs, fmt.Errorf("thresholds must satisfy 0 <= %g <= %g <= 100", p.AccumulateBelow, p.SellAbove))
	}
	if p.OscillatorSpan <= 0 || p.OnChainCeiling <= 0 {
		errs = append(errs, errors.New("oscillator span and on-chain ceiling must be positive"))
	}
	return errors.Join(errs...)
}
