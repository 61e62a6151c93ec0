package service

import (
	"time"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
)

// Valuator evaluates the fair-value curves for a calendar day.
type Valuator interface {
	Evaluate(t time.Time) models.CurveSet
	CheckDate(t time.Time) error
}

// IndicatorDeriver turns an observation and its curves into indicators and a regime.
type IndicatorDeriver interface {
	Derive(obs models.Observation, cs models.CurveSet) models.IndicatorSet
}
