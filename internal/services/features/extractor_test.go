package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
)

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestDailyClosesKeepsLatestPerDay(t *testing.T) {
	out := DailyCloses([]models.PricePoint{
		{Time: at(2024, 1, 2, 10), Price: 110},
		{Time: at(2024, 1, 1, 8), Price: 90},
		{Time: at(2024, 1, 1, 20), Price: 100},
		{Time: at(2024, 1, 2, 1), Price: 105},
		{Time: at(2024, 1, 3, 1), Price: -1},
	})
	require.Len(t, out, 2)
	assert.Equal(t, at(2024, 1, 1, 0), out[0].Time)
	assert.Equal(t, 100.0, out[0].Price)
	assert.Equal(t, 110.0, out[1].Price)
}

func TestInterpolateFillsGapsLogLinearly(t *testing.T) {
	out := Interpolate([]models.PricePoint{
		{Time: at(2024, 1, 1, 0), Price: 100},
		{Time: at(2024, 1, 3, 0), Price: 400},
		{Time: at(2024, 1, 4, 0), Price: 500},
	})
	require.Len(t, out, 4)
	assert.Equal(t, at(2024, 1, 2, 0), out[1].Time)
	assert.InDelta(t, 200.0, out[1].Price, 1e-9)
	assert.Equal(t, 500.0, out[3].Price)

	p, ok := PriceAt(out, at(2024, 1, 2, 17))
	assert.True(t, ok)
	assert.InDelta(t, 200.0, p, 1e-9)
	_, ok = PriceAt(out, at(2024, 2, 1, 0))
	assert.False(t, ok)
}

func TestInterpolateShortInput(t *testing.T) {
	assert.Empty(t, Interpolate(nil))
	one := Interpolate([]models.PricePoint{{Time: at(2024, 1, 1, 5), Price: 1}})
	require.Len(t, one, 1)
	assert.Equal(t, at(2024, 1, 1, 0), one[0].Time)
}
