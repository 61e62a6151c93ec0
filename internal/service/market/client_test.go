package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/y2kjoh23-ux/btc-compass-26/pkg/cache"
	xhttp "github.com/y2kjoh23-ux/btc-compass-26/pkg/http"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/logger"
)

type upstream struct {
	priceDown atomic.Bool
	fngDown   atomic.Bool
	srv       *httptest.Server
}

func newUpstream(t *testing.T) *upstream {
	u := &upstream{}
	mux := http.NewServeMux()
	mux.HandleFunc("/price", func(w http.ResponseWriter, r *http.Request) {
		if u.priceDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":64000,"last_updated_at":1713571200}}`))
	})
	mux.HandleFunc("/fng", func(w http.ResponseWriter, r *http.Request) {
		if u.fngDown.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"value":"72","value_classification":"Greed","timestamp":"1713571200"}]}`))
	})
	mux.HandleFunc("/history", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("days"))
		_, _ = w.Write([]byte(`{"prices":[[1713398400000,63000],[1713484800000,0],[1713571200000,64000]]}`))
	})
	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

func newTestClient(u *upstream, c cache.Service, opts ...Option) *Client {
	opts = append([]Option{
		WithEndpoints(u.srv.URL+"/price", u.srv.URL+"/history", u.srv.URL+"/fng"),
		WithRate(1000),
		WithBreaker(100, time.Second),
	}, opts...)
	return New(xhttp.NewClient(xhttp.WithTimeout(2*time.Second)), c, logger.Nop(), opts...)
}

func TestObservationLive(t *testing.T) {
	u := newUpstream(t)
	mc := cache.NewMemoryCache()
	defer mc.Close()

	obs, err := newTestClient(u, mc).Observation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 64000.0, obs.Price)
	assert.Equal(t, 72, obs.FearGreed)
	assert.Equal(t, SourceLive, obs.Source)
	assert.Equal(t, time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC), obs.Timestamp)

	ok, _ := mc.Exists(context.Background(), lastObservationKey)
	assert.True(t, ok)
}

func TestObservationFallsBackToCache(t *testing.T) {
	u := newUpstream(t)
	mc := cache.NewMemoryCache()
	defer mc.Close()
	c := newTestClient(u, mc)

	_, err := c.Observation(context.Background())
	require.NoError(t, err)

	u.priceDown.Store(true)
	u.fngDown.Store(true)
	obs, err := c.Observation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceCache, obs.Source)
	assert.Equal(t, 64000.0, obs.Price)
	assert.Equal(t, 72, obs.FearGreed, "sentiment comes from the cached observation")
}

func TestObservationFallsBackToDefault(t *testing.T) {
	u := newUpstream(t)
	u.priceDown.Store(true)
	u.fngDown.Store(true)

	obs, err := newTestClient(u, nil, WithFallback(50000, 50)).Observation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, obs.Source)
	assert.Equal(t, 50000.0, obs.Price)
	assert.Equal(t, 50, obs.FearGreed)
}

func TestObservationUnavailable(t *testing.T) {
	u := newUpstream(t)
	u.priceDown.Store(true)

	_, err := newTestClient(u, nil).Observation(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestObservationNeutralSentimentWhenFNGDown(t *testing.T) {
	u := newUpstream(t)
	u.fngDown.Store(true)

	obs, err := newTestClient(u, nil).Observation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceLive, obs.Source)
	assert.Equal(t, 50, obs.FearGreed)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	u := newUpstream(t)
	u.priceDown.Store(true)
	c := newTestClient(u, nil, WithBreaker(2, time.Minute))

	for i := 0; i < 2; i++ {
		_, _, err := c.fetchPrice(context.Background())
		require.Error(t, err)
	}
	u.priceDown.Store(false)
	_, _, err := c.fetchPrice(context.Background())
	require.Error(t, err, "breaker stays open until its timeout")
}

func TestPriceHistorySkipsNonPositive(t *testing.T) {
	u := newUpstream(t)
	mc := cache.NewMemoryCache()
	defer mc.Close()

	points, err := newTestClient(u, mc).PriceHistory(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 63000.0, points[0].Price)
	assert.Equal(t, time.Date(2024, 4, 18, 0, 0, 0, 0, time.UTC), points[0].Time)

	_, err = newTestClient(u, mc).PriceHistory(context.Background(), 0)
	require.Error(t, err)
}

type staticFeed struct {
	price float64
	at    time.Time
}

func (f staticFeed) Last() (float64, time.Time, bool) { return f.price, f.at, f.price > 0 }

func TestObservationPrefersFreshStream(t *testing.T) {
	u := newUpstream(t)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	c := newTestClient(u, nil, WithPriceFeed(staticFeed{price: 65500, at: now.Add(-10 * time.Second)}, 30*time.Second))
	c.now = func() time.Time { return now }
	obs, err := c.Observation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 65500.0, obs.Price)
	assert.Equal(t, SourceStream, obs.Source)
	assert.Equal(t, 72, obs.FearGreed)

	stale := newTestClient(u, nil, WithPriceFeed(staticFeed{price: 65500, at: now.Add(-time.Minute)}, 30*time.Second))
	stale.now = func() time.Time { return now }
	obs, err = stale.Observation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 64000.0, obs.Price)
	assert.Equal(t, SourceLive, obs.Source)
}
