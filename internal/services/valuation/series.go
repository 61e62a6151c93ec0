package valuation

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
)

// ErrInvalidRange is returned for empty or inverted series ranges.
var ErrInvalidRange = errors.New("invalid series range")

// Evaluator is satisfied by both *Engine and *Memo.
type Evaluator interface {
	Evaluate(t time.Time) models.CurveSet
}

// SeriesOptions controls dense series evaluation.
type SeriesOptions struct {
	StepDays int
	Workers  int // 0 means GOMAXPROCS
}

// Dates returns the UTC days from..to inclusive, stepping stepDays.
func Dates(from, to time.Time, stepDays int) ([]time.Time, error) {
	from, to = utcDay(from), utcDay(to)
	if stepDays < 1 || from.After(to) {
		return nil, ErrInvalidRange
	}
	n := daysBetween(from, to)/stepDays + 1
	out := make([]time.Time, 0, n)
	for d := from; !d.After(to); d = d.AddDate(0, 0, stepDays) {
		out = append(out, d)
	}
	return out, nil
}

// Series evaluates every date of the range. Iterations are independent, so they are
// spread over a worker pool and written to their own index.
func Series(ctx context.Context, ev Evaluator, from, to time.Time, opts SeriesOptions) ([]models.CurveSet, error) {
	dates, err := Dates(from, to, opts.StepDays)
	if err != nil {
		return nil, err
	}
	return EvaluateAll(ctx, ev, dates, opts.Workers)
}

// Projection evaluates years forward from the day after from.
func Projection(ctx context.Context, ev Evaluator, from time.Time, years, stepDays int) ([]models.CurveSet, error) {
	if years <= 0 {
		return nil, nil
	}
	start := utcDay(from).AddDate(0, 0, stepDays)
	end := utcDay(from).AddDate(years, 0, 0)
	if start.After(end) {
		return nil, nil
	}
	return Series(ctx, ev, start, end, SeriesOptions{StepDays: stepDays})
}

// EvaluateAll evaluates the given dates in parallel, preserving order.
func EvaluateAll(ctx context.Context, ev Evaluator, dates []time.Time, workers int) ([]models.CurveSet, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(dates) {
		workers = len(dates)
	}
	out := make([]models.CurveSet, len(dates))
	if len(dates) == 0 {
		return out, nil
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				out[i] = ev.Evaluate(dates[i])
			}
		}()
	}

	var cerr error
feed:
	for i := range dates {
		select {
		case <-ctx.Done():
			cerr = ctx.Err()
			break feed
		case idx <- i:
		}
	}
	close(idx)
	wg.Wait()
	if cerr != nil {
		return nil, cerr
	}
	return out, nil
}
