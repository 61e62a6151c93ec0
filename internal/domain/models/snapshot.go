package models

import "time"

// Snapshot ties an observation to its contemporaneous model output and indicators.
// Note: no transport (json/http) concerns here.
type Snapshot struct {
	Observation Observation
	Curves      CurveSet
	Indicators  IndicatorSet
	CreatedAt   time.Time
}

// ChartPoint is one day of the dashboard chart. Price is zero for projected days.
type ChartPoint struct {
	Curves     CurveSet
	Price      float64
	Oscillator float64
	Projected  bool
}

// Chart is a historical reconstruction followed by a forward projection.
type Chart struct {
	From       time.Time
	To         time.Time
	StepDays   int
	Points     []ChartPoint
	Historical int // number of leading points backed by observed prices
}
