package features

import (
	"math"
	"sort"
	"time"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
)

const day = 24 * time.Hour

// DailyCloses buckets points to UTC days, keeping the latest positive
// price per day, and returns them in ascending order.
func DailyCloses(points []models.PricePoint) []models.PricePoint {
	byDay := make(map[int64]models.PricePoint, len(points))
	for _, p := range points {
		if p.Price <= 0 || math.IsNaN(p.Price) {
			continue
		}
		d := TruncateDay(p.Time)
		k := d.Unix()
		if prev, ok := byDay[k]; ok && prev.Time.After(p.Time) {
			continue
		}
		byDay[k] = models.PricePoint{Time: p.Time, Price: p.Price}
	}
	out := make([]models.PricePoint, 0, len(byDay))
	for k, p := range byDay {
		out = append(out, models.PricePoint{Time: time.Unix(k, 0).UTC(), Price: p.Price})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// Interpolate returns one point per UTC day between the first and last closes.
// Missing days are filled log-linearly between their neighbours.
func Interpolate(points []models.PricePoint) []models.PricePoint {
	closes := DailyCloses(points)
	if len(closes) < 2 {
		return closes
	}
	first, last := closes[0].Time, closes[len(closes)-1].Time
	out := make([]models.PricePoint, 0, int(last.Sub(first)/day)+1)
	out = append(out, closes[0])
	for i := 1; i < len(closes); i++ {
		a, b := closes[i-1], closes[i]
		gap := int(b.Time.Sub(a.Time) / day)
		la, lb := math.Log(a.Price), math.Log(b.Price)
		for k := 1; k < gap; k++ {
			f := float64(k) / float64(gap)
			out = append(out, models.PricePoint{
				Time:  a.Time.AddDate(0, 0, k),
				Price: math.Exp(la + (lb-la)*f),
			})
		}
		out = append(out, b)
	}
	return out
}

// PriceAt returns the close for t's UTC day from a dense daily series.
func PriceAt(series []models.PricePoint, t time.Time) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	d := TruncateDay(t)
	i := sort.Search(len(series), func(i int) bool { return !series[i].Time.Before(d) })
	if i < len(series) && series[i].Time.Equal(d) {
		return series[i].Price, true
	}
	return 0, false
}

// TruncateDay rounds t down to its UTC day boundary.
func TruncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
