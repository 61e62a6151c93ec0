package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/services/valuation"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/util"
)

type seriesOptions struct {
	from    string
	to      string
	step    int
	project int
	format  string
	workers int
}

func newSeriesCmd() *cobra.Command {
	opts := &seriesOptions{}
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Print the model curves over a date range",
		Long: `Evaluate the model for every --step days between --from and --to, optionally
followed by a projection of --project years.

Example usage:
  compass series --from 2020-01-01 --to 2025-01-01 --step 30
  compass series --from 2024-01-01 --project 4 --format csv > curves.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := loadModel(configPath)
			if err != nil {
				return err
			}
			return runSeries(cmd.Context(), cmd.OutOrStdout(), engine, opts, time.Now())
		},
	}
	cmd.Flags().StringVar(&opts.from, "from", "", "first day (default one year before --to)")
	cmd.Flags().StringVar(&opts.to, "to", "", "last day (default today)")
	cmd.Flags().IntVar(&opts.step, "step", 7, "days between points")
	cmd.Flags().IntVar(&opts.project, "project", 0, "years to project after --to")
	cmd.Flags().StringVar(&opts.format, "format", "table", "output format: table, csv, json")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "evaluation workers (0 = GOMAXPROCS)")
	return cmd
}

type seriesRow struct {
	Date      string  `json:"date"`
	Days      int     `json:"days"`
	Standard  float64 `json:"standard"`
	Decaying  float64 `json:"decaying"`
	Cycle     float64 `json:"cycle"`
	Weighted  float64 `json:"weighted"`
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
	Projected bool    `json:"projected"`
}

func runSeries(ctx context.Context, w io.Writer, engine *valuation.Engine, opts *seriesOptions, now time.Time) error {
	to := util.Day(now)
	if opts.to != "" {
		t, ok := util.ParseTime(opts.to)
		if !ok {
			return fmt.Errorf("invalid --to %q", opts.to)
		}
		to = t
	}
	from := util.AddYears(util.Day(to), -1)
	if opts.from != "" {
		t, ok := util.ParseTime(opts.from)
		if !ok {
			return fmt.Errorf("invalid --from %q", opts.from)
		}
		from = t
	}
	if err := engine.CheckDate(from); err != nil {
		return fmt.Errorf("--from %s: %w", util.FormatDay(from), err)
	}

	memo := valuation.NewMemo(engine)
	hist, err := valuation.Series(ctx, memo, from, to, valuation.SeriesOptions{StepDays: opts.step, Workers: opts.workers})
	if err != nil {
		return err
	}
	proj, err := valuation.Projection(ctx, memo, to, opts.project, opts.step)
	if err != nil {
		return err
	}

	rows := make([]seriesRow, 0, len(hist)+len(proj))
	add := func(cs models.CurveSet, projected bool) {
		rows = append(rows, seriesRow{
			Date:      util.FormatDay(cs.Date),
			Days:      cs.Days,
			Standard:  cs.Standard,
			Decaying:  cs.Decaying,
			Cycle:     cs.Cycle,
			Weighted:  cs.Weighted,
			Lower:     cs.Lower,
			Upper:     cs.Upper,
			Projected: projected,
		})
	}
	for _, cs := range hist {
		add(cs, false)
	}
	for _, cs := range proj {
		add(cs, true)
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "csv":
		return writeSeriesCSV(w, rows)
	case "table", "":
		return writeSeriesTable(w, rows)
	default:
		return fmt.Errorf("unknown --format %q", opts.format)
	}
}

func writeSeriesCSV(w io.Writer, rows []seriesRow) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"date", "days", "standard", "decaying", "cycle", "weighted", "lower", "upper", "projected"})
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	for _, r := range rows {
		if err := cw.Write([]string{
			r.Date, strconv.Itoa(r.Days), f(r.Standard), f(r.Decaying), f(r.Cycle), f(r.Weighted), f(r.Lower), f(r.Upper),
			strconv.FormatBool(r.Projected),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeSeriesTable(w io.Writer, rows []seriesRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DATE\tDAYS\tLOWER\tFAIR VALUE\tUPPER\t")
	for _, r := range rows {
		date := r.Date
		if r.Projected {
			date += "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t\n", date, r.Days, usd(r.Lower), usd(r.Weighted), usd(r.Upper))
	}
	return tw.Flush()
}
