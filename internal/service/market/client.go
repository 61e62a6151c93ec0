package market

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/models"
	drepo "github.com/y2kjoh23-ux/btc-compass-26/internal/domain/repository"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/cache"
	xhttp "github.com/y2kjoh23-ux/btc-compass-26/pkg/http"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/logger"
)

// ErrUnavailable is returned when neither the live feed, the cache nor a configured
// fallback can produce a price.
var ErrUnavailable = errors.New("market data unavailable")

// Observation sources.
const (
	SourceLive    = "live"
	SourceCache   = "cache"
	SourceDefault = "default"
	SourceStream  = "stream"
)

// PriceFeed supplies a streamed last trade price.
type PriceFeed interface {
	Last() (price float64, at time.Time, ok bool)
}

const lastObservationKey = "market:last_observation"

// Client implements a MarketSource backed by CoinGecko (price, history) and
// alternative.me (Fear & Greed).
type Client struct {
	cfg     *Config
	http    *xhttp.Client
	cache   cache.Service
	log     *logger.Logger
	limiter *rate.Limiter

	priceCB   *gobreaker.CircuitBreaker
	fngCB     *gobreaker.CircuitBreaker
	historyCB *gobreaker.CircuitBreaker

	now func() time.Time
}

var _ drepo.MarketSource = (*Client)(nil)

// New creates a market client. A nil cache disables the last-observation fallback.
func New(httpClient *xhttp.Client, c cache.Service, log *logger.Logger, opts ...Option) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	cl := &Client{
		cfg:     cfg,
		http:    httpClient,
		cache:   c,
		log:     log.With(logger.String("component", "market")),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		now:     time.Now,
	}
	cl.priceCB = cl.newBreaker("market.price")
	cl.fngCB = cl.newBreaker("market.fng")
	cl.historyCB = cl.newBreaker("market.history")
	return cl
}

func (c *Client) newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: c.cfg.BreakerInterval,
		Timeout:  c.cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state change",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
}

// Observation returns the latest spot price and sentiment index. Failures fall back to
// the last cached observation, then to the configured default price.
func (c *Client) Observation(ctx context.Context) (models.Observation, error) {
	var last *models.Observation
	if c.cache != nil {
		var cached models.Observation
		if err := c.cache.Get(ctx, lastObservationKey, &cached); err == nil {
			last = &cached
		}
	}

	fng, ferr := c.fetchFearGreed(ctx)
	if ferr != nil {
		c.log.Warn("fear & greed fetch failed", logger.Error(ferr))
		fng = c.cfg.FallbackFNG
		if last != nil {
			fng = last.FearGreed
		}
	}

	source := SourceStream
	price, ts, ok := c.streamPrice()
	var perr error
	if !ok {
		source = SourceLive
		price, ts, perr = c.fetchPrice(ctx)
	}
	if perr == nil {
		obs := models.Observation{Price: price, Timestamp: ts, FearGreed: fng, Source: source}
		if c.cache != nil {
			if err := c.cache.Set(ctx, lastObservationKey, obs, c.cfg.CacheTTL); err != nil {
				c.log.Warn("cache last observation", logger.Error(err))
			}
		}
		return obs, nil
	}

	c.log.Warn("price fetch failed", logger.Error(perr))
	if last != nil && last.Price > 0 {
		obs := *last
		obs.FearGreed = fng
		obs.Source = SourceCache
		return obs, nil
	}
	if c.cfg.FallbackPrice > 0 {
		return models.Observation{
			Price:     c.cfg.FallbackPrice,
			Timestamp: c.now().UTC(),
			FearGreed: fng,
			Source:    SourceDefault,
		}, nil
	}
	return models.Observation{}, fmt.Errorf("%w: %v", ErrUnavailable, perr)
}

// PriceHistory returns daily prices for the last days days, oldest first.
func (c *Client) PriceHistory(ctx context.Context, days int) ([]models.PricePoint, error) {
	if days < 1 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}

	load := func(ctx context.Context) ([]models.PricePoint, error) {
		return c.fetchHistory(ctx, days)
	}
	if c.cache == nil {
		return load(ctx)
	}
	points, _, err := cache.GetOrLoad(ctx, c.cache, cache.Key("market:history", days), c.cfg.HistoryTTL, load)
	return points, err
}

type priceResponse map[string]struct {
	USD           float64 `json:"usd"`
	LastUpdatedAt int64   `json:"last_updated_at"`
}

// streamPrice returns the feed's last trade when it is fresh enough.
func (c *Client) streamPrice() (float64, time.Time, bool) {
	if c.cfg.Feed == nil {
		return 0, time.Time{}, false
	}
	price, at, ok := c.cfg.Feed.Last()
	if !ok || c.now().Sub(at) > c.cfg.FeedMaxAge {
		return 0, time.Time{}, false
	}
	return price, at, true
}

func (c *Client) fetchPrice(ctx context.Context) (float64, time.Time, error) {
	var resp priceResponse
	if err := c.call(ctx, c.priceCB, c.cfg.PriceURL, nil, &resp); err != nil {
		return 0, time.Time{}, err
	}
	btc, ok := resp["bitcoin"]
	if !ok || btc.USD <= 0 {
		return 0, time.Time{}, fmt.Errorf("price response has no positive bitcoin.usd")
	}
	ts := c.now().UTC()
	if btc.LastUpdatedAt > 0 {
		ts = time.Unix(btc.LastUpdatedAt, 0).UTC()
	}
	return btc.USD, ts, nil
}

type fngResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
		Timestamp      string `json:"timestamp"`
	} `json:"data"`
}

func (c *Client) fetchFearGreed(ctx context.Context) (int, error) {
	var resp fngResponse
	if err := c.call(ctx, c.fngCB, c.cfg.FearGreedURL, nil, &resp); err != nil {
		return 0, err
	}
	if len(resp.Data) == 0 {
		return 0, fmt.Errorf("fear & greed response is empty")
	}
	v, err := strconv.Atoi(resp.Data[0].Value)
	if err != nil {
		return 0, fmt.Errorf("fear & greed value %q: %w", resp.Data[0].Value, err)
	}
	if v < 0 || v > 100 {
		return 0, fmt.Errorf("fear & greed value %d out of range", v)
	}
	return v, nil
}

type historyResponse struct {
	Prices [][2]float64 `json:"prices"`
}

func (c *Client) fetchHistory(ctx context.Context, days int) ([]models.PricePoint, error) {
	var resp historyResponse
	q := map[string][]string{"days": {strconv.Itoa(days)}}
	if err := c.call(ctx, c.historyCB, c.cfg.HistoryURL, q, &resp); err != nil {
		return nil, err
	}
	points := make([]models.PricePoint, 0, len(resp.Prices))
	for _, p := range resp.Prices {
		if p[1] <= 0 {
			continue
		}
		points = append(points, models.PricePoint{
			Time:  time.UnixMilli(int64(p[0])).UTC(),
			Price: p[1],
		})
	}
	return points, nil
}

func (c *Client) call(ctx context.Context, cb *gobreaker.CircuitBreaker, url string, query map[string][]string, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	_, err := cb.Execute(func() (interface{}, error) {
		return nil, c.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         url,
			QueryParams: query,
		}, dest)
	})
	return err
}
