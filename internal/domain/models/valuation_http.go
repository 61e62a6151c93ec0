package models

// Requests for valuation HTTP endpoints. Defined in domain for consistency and reuse.

type ModelRequest struct {
	Date string `query:"date" json:"date"`
}

type IndicatorsRequest struct {
	Date  string  `query:"date" json:"date"`
	Price float64 `query:"price" json:"price" validate:"gt=0"`
	FNG   string  `query:"fng" json:"fng" validate:"omitempty,numeric"` // parsed by handler, absent means neutral
}

type IngestRequest struct {
	Price     float64 `json:"price" validate:"gt=0"`
	Timestamp string  `json:"timestamp"`
	FNGIndex  int     `json:"fngIndex" validate:"gte=0,lte=100"`
}

type ChartRequest struct {
	From         string `query:"from" json:"from"`
	To           string `query:"to" json:"to"`
	Step         int    `query:"step" json:"step" default:"7" validate:"gte=1,lte=365"`
	ProjectYears int    `query:"project_years" json:"project_years" default:"4" validate:"gte=0,lte=20"`
}

type HistoryRequest struct {
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
	Limit int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=10000"`
}
