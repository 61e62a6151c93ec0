package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/services/indicators"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/services/valuation"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/config"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/util"
)

type evalOptions struct {
	date  string
	price float64
	fng   int
	json  bool
}

func newEvalCmd() *cobra.Command {
	opts := &evalOptions{}
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate the model for a day and optionally assess a price",
		Long: `Evaluate the fair-value curves for one UTC day. With --price the observation
is also assessed into oscillator, risk components and regime.

Example usage:
  compass eval                                  # today
  compass eval --date 2024-04-20
  compass eval --price 64000 --fng 72 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, deriver, err := loadModel(configPath)
			if err != nil {
				return err
			}
			return runEval(cmd.OutOrStdout(), engine, deriver, opts, time.Now())
		},
	}
	cmd.Flags().StringVar(&opts.date, "date", "", "day to evaluate (YYYY-MM-DD, RFC3339 or unix seconds), default today")
	cmd.Flags().Float64Var(&opts.price, "price", 0, "observed price in USD to assess")
	cmd.Flags().IntVar(&opts.fng, "fng", 50, "fear & greed index 0..100")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print JSON instead of panels")
	return cmd
}

// loadModel builds the engine and deriver from the config file, falling back to defaults
// when the file does not exist.
func loadModel(path string) (*valuation.Engine, *indicators.Deriver, error) {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, nil, fmt.Errorf("config load failed: %w", err)
	}
	params, err := cfg.ModelParams()
	if err != nil {
		return nil, nil, err
	}
	engine, err := valuation.New(params)
	if err != nil {
		return nil, nil, err
	}
	profile, err := cfg.RiskProfile()
	if err != nil {
		return nil, nil, err
	}
	deriver, err := indicators.New(profile)
	if err != nil {
		return nil, nil, err
	}
	return engine, deriver, nil
}

type evalOutput struct {
	Date       string                `json:"date"`
	Days       int                   `json:"days"`
	Curves     map[string]float64    `json:"curves"`
	Indicators *evalIndicatorsOutput `json:"indicators,omitempty"`
}

type evalIndicatorsOutput struct {
	Price         float64 `json:"price"`
	FNGIndex      int     `json:"fngIndex"`
	Oscillator    float64 `json:"oscillator"`
	OnChainProxy  float64 `json:"onChainProxy"`
	PriceRisk     float64 `json:"priceRisk"`
	SentimentRisk float64 `json:"sentimentRisk"`
	OnChainRisk   float64 `json:"onChainRisk"`
	RiskPercent   float64 `json:"riskPercent"`
	Regime        string  `json:"regime"`
}

func runEval(w io.Writer, engine *valuation.Engine, deriver *indicators.Deriver, opts *evalOptions, now time.Time) error {
	date := now
	if opts.date != "" {
		t, ok := util.ParseTime(opts.date)
		if !ok {
			return fmt.Errorf("invalid --date %q", opts.date)
		}
		date = t
	}
	if err := engine.CheckDate(date); err != nil {
		return fmt.Errorf("--date %s: %w", util.FormatDay(date), err)
	}
	if opts.price < 0 {
		return fmt.Errorf("--price must be positive")
	}
	if opts.fng < 0 || opts.fng > 100 {
		return fmt.Errorf("--fng must be between 0 and 100")
	}

	cs := engine.Evaluate(date)
	var snap *models.Snapshot
	if opts.price > 0 {
		obs := models.Observation{Price: opts.price, Timestamp: date, FearGreed: opts.fng, Source: "cli"}
		snap = &models.Snapshot{Observation: obs, Curves: cs, Indicators: deriver.Derive(obs, cs), CreatedAt: now}
	}

	if opts.json {
		out := evalOutput{
			Date: util.FormatDay(cs.Date),
			Days: cs.Days,
			Curves: map[string]float64{
				"standard": cs.Standard,
				"decaying": cs.Decaying,
				"cycle":    cs.Cycle,
				"weighted": cs.Weighted,
				"upper":    cs.Upper,
				"lower":    cs.Lower,
				"sigma":    cs.Sigma,
			},
		}
		if snap != nil {
			is := snap.Indicators
			out.Indicators = &evalIndicatorsOutput{
				Price:         opts.price,
				FNGIndex:      opts.fng,
				Oscillator:    is.Oscillator,
				OnChainProxy:  is.OnChainProxy,
				PriceRisk:     is.PriceRisk,
				SentimentRisk: is.SentimentRisk,
				OnChainRisk:   is.OnChainRisk,
				RiskPercent:   is.RiskPercent,
				Regime:        string(is.Regime),
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	renderCurves(w, cs)
	if snap != nil {
		renderIndicators(w, *snap)
	}
	return nil
}
