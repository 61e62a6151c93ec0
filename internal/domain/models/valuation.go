package models

import "time"

// Regime is the discrete market state derived from the composite risk score.
type Regime string

const (
	RegimeAccumulate Regime = "ACCUMULATE"
	RegimeStable     Regime = "STABLE"
	RegimeSell       Regime = "SELL"
)

// CurveSet is the valuation model output for one calendar day.
// Lower <= Weighted <= Upper holds for every evaluated day.
type CurveSet struct {
	Date     time.Time // UTC calendar day evaluated
	Days     int       // raw day count since genesis, may be <= 0
	Standard float64
	Decaying float64
	Cycle    float64
	Weighted float64 // fair value
	Upper    float64
	Lower    float64
	Sigma    float64
}

// Observation is an external market snapshot. The engine never mutates it.
type Observation struct {
	Price     float64
	Timestamp time.Time
	FearGreed int    // sentiment index, 0..100
	Source    string // "live", "cache", "default", "kafka", "request"
}

// IndicatorSet is the risk assessment of an Observation against its CurveSet.
type IndicatorSet struct {
	Oscillator    float64 // ln(price / fair value)
	OnChainProxy  float64
	PriceRisk     float64
	SentimentRisk float64
	OnChainRisk   float64
	RiskPercent   float64 // 0..100
	Regime        Regime
}

// PricePoint is a single close in an upstream price history.
type PricePoint struct {
	Time  time.Time
	Price float64
}
