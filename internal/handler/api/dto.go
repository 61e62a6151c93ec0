package api

import (
	"time"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/services/indicators"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/services/valuation"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/util"
)

type curvesResponse struct {
	Date     string  `json:"date"`
	Days     int     `json:"days"`
	Standard float64 `json:"standard"`
	Decaying float64 `json:"decaying"`
	Cycle    float64 `json:"cycle"`
	Weighted float64 `json:"weighted"`
	Upper    float64 `json:"upper"`
	Lower    float64 `json:"lower"`
	Sigma    float64 `json:"sigma"`
}

func toCurves(cs models.CurveSet) curvesResponse {
	return curvesResponse{
		Date:     util.FormatDay(cs.Date),
		Days:     cs.Days,
		Standard: cs.Standard,
		Decaying: cs.Decaying,
		Cycle:    cs.Cycle,
		Weighted: cs.Weighted,
		Upper:    cs.Upper,
		Lower:    cs.Lower,
		Sigma:    cs.Sigma,
	}
}

type indicatorsResponse struct {
	Oscillator    float64 `json:"oscillator"`
	OnChainProxy  float64 `json:"onChainProxy"`
	PriceRisk     float64 `json:"priceRisk"`
	SentimentRisk float64 `json:"sentimentRisk"`
	OnChainRisk   float64 `json:"onChainRisk"`
	RiskPercent   float64 `json:"riskPercent"`
	Regime        string  `json:"regime"`
}

func toIndicators(is models.IndicatorSet) indicatorsResponse {
	return indicatorsResponse{
		Oscillator:    is.Oscillator,
		OnChainProxy:  is.OnChainProxy,
		PriceRisk:     is.PriceRisk,
		SentimentRisk: is.SentimentRisk,
		OnChainRisk:   is.OnChainRisk,
		RiskPercent:   is.RiskPercent,
		Regime:        string(is.Regime),
	}
}

type observationResponse struct {
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	FNGIndex  int       `json:"fngIndex"`
	Source    string    `json:"source"`
}

type snapshotResponse struct {
	Observation observationResponse `json:"observation"`
	Model       curvesResponse      `json:"model"`
	Indicators  indicatorsResponse  `json:"indicators"`
	CreatedAt   time.Time           `json:"createdAt"`
}

func toSnapshot(s *models.Snapshot) snapshotResponse {
	return snapshotResponse{
		Observation: observationResponse{
			Price:     s.Observation.Price,
			Timestamp: s.Observation.Timestamp,
			FNGIndex:  s.Observation.FearGreed,
			Source:    s.Observation.Source,
		},
		Model:      toCurves(s.Curves),
		Indicators: toIndicators(s.Indicators),
		CreatedAt:  s.CreatedAt,
	}
}

type chartPointResponse struct {
	curvesResponse
	Price      float64 `json:"price,omitempty"`
	Oscillator float64 `json:"oscillator,omitempty"`
	Projected  bool    `json:"projected"`
}

type chartResponse struct {
	From       string               `json:"from"`
	To         string               `json:"to"`
	Step       int                  `json:"step"`
	Historical int                  `json:"historical"`
	Points     []chartPointResponse `json:"points"`
}

func toChart(c *models.Chart) chartResponse {
	out := chartResponse{
		From:       util.FormatDay(c.From),
		To:         util.FormatDay(c.To),
		Step:       c.StepDays,
		Historical: c.Historical,
		Points:     make([]chartPointResponse, 0, len(c.Points)),
	}
	for _, p := range c.Points {
		out.Points = append(out.Points, chartPointResponse{
			curvesResponse: toCurves(p.Curves),
			Price:          p.Price,
			Oscillator:     p.Oscillator,
			Projected:      p.Projected,
		})
	}
	return out
}

type modelConfigResponse struct {
	Genesis          string     `json:"genesis"`
	HalvingReference string     `json:"halvingReference"`
	StandardCoef     float64    `json:"standardCoef"`
	StandardExp      float64    `json:"standardExp"`
	DecayingCoef     float64    `json:"decayingCoef"`
	DecayingExp      float64    `json:"decayingExp"`
	CyclePeriodDays  int        `json:"cyclePeriodDays"`
	CycleAmplitude   float64    `json:"cycleAmplitude"`
	Blend            [3]float64 `json:"blend"` // decaying, cycle, standard
	BaseSigma        float64    `json:"baseSigma"`
	SigmaDecay       float64    `json:"sigmaDecay"`
	SigmaReference   float64    `json:"sigmaReferenceDay"`
}

type riskConfigResponse struct {
	PriceWeight     float64 `json:"priceWeight"`
	SentimentWeight float64 `json:"sentimentWeight"`
	OnChainWeight   float64 `json:"onChainWeight"`
	AccumulateBelow float64 `json:"accumulateBelow"`
	SellAbove       float64 `json:"sellAbove"`
}

type configResponse struct {
	Model modelConfigResponse `json:"model"`
	Risk  riskConfigResponse  `json:"risk"`
}

func toConfig(p valuation.Params, r indicators.Profile) configResponse {
	return configResponse{
		Model: modelConfigResponse{
			Genesis:          util.FormatDay(p.Genesis),
			HalvingReference: util.FormatDay(p.HalvingReference),
			StandardCoef:     p.StandardCoef,
			StandardExp:      p.StandardExp,
			DecayingCoef:     p.DecayingCoef,
			DecayingExp:      p.DecayingExp,
			CyclePeriodDays:  p.CyclePeriodDays,
			CycleAmplitude:   p.CycleAmplitude,
			Blend:            [3]float64{p.Blend.Decaying, p.Blend.Cycle, p.Blend.Standard},
			BaseSigma:        p.BaseSigma,
			SigmaDecay:       p.SigmaDecay,
			SigmaReference:   p.SigmaReferenceDay,
		},
		Risk: riskConfigResponse{
			PriceWeight:     r.PriceWeight,
			SentimentWeight: r.SentimentWeight,
			OnChainWeight:   r.OnChainWeight,
			AccumulateBelow: r.AccumulateBelow,
			SellAbove:       r.SellAbove,
		},
	}
}
