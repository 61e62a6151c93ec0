package market

import "time"

// Option configures Client.
type Option func(*Config)

// Config holds endpoints and resilience settings.
type Config struct {
	PriceURL        string
	HistoryURL      string
	FearGreedURL    string
	RatePerSecond   float64
	FallbackPrice   float64
	FallbackFNG     int
	CacheTTL        time.Duration
	HistoryTTL      time.Duration
	BreakerFailures uint32
	BreakerInterval time.Duration
	BreakerTimeout  time.Duration
	FeedMaxAge      time.Duration
	Feed            PriceFeed
}

func defaultConfig() *Config {
	return &Config{
		PriceURL:        "https://api.coingecko.com/api/v3/simple/price?ids=bitcoin&vs_currencies=usd&include_last_updated_at=true",
		HistoryURL:      "https://api.coingecko.com/api/v3/coins/bitcoin/market_chart?vs_currency=usd&interval=daily",
		FearGreedURL:    "https://api.alternative.me/fng/?limit=1",
		RatePerSecond:   2,
		FallbackFNG:     50,
		CacheTTL:        24 * time.Hour,
		HistoryTTL:      time.Hour,
		BreakerFailures: 3,
		BreakerInterval: time.Minute,
		BreakerTimeout:  30 * time.Second,
		FeedMaxAge:      time.Minute,
	}
}

// WithEndpoints overrides the upstream URLs. Empty values keep the default.
func WithEndpoints(price, history, fearGreed string) Option {
	return func(c *Config) {
		if price != "" {
			c.PriceURL = price
		}
		if history != "" {
			c.HistoryURL = history
		}
		if fearGreed != "" {
			c.FearGreedURL = fearGreed
		}
	}
}

// WithRate limits outbound requests per second across all endpoints.
func WithRate(perSecond float64) Option {
	return func(c *Config) {
		if perSecond > 0 {
			c.RatePerSecond = perSecond
		}
	}
}

// WithFallback sets the price used when live and cached data are both unavailable
// (0 disables it) and the neutral sentiment index.
func WithFallback(price float64, fng int) Option {
	return func(c *Config) {
		c.FallbackPrice = price
		c.FallbackFNG = fng
	}
}

// WithCacheTTL sets how long the last observation is retained for fallback.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.CacheTTL = ttl
	}
}

// WithBreaker sets consecutive failures before opening and the open-state timeout.
func WithBreaker(failures uint32, timeout time.Duration) Option {
	return func(c *Config) {
		c.BreakerFailures = failures
		c.BreakerTimeout = timeout
	}
}

// WithPriceFeed consults feed before the REST price endpoint. Trades older than
// maxAge are ignored.
func WithPriceFeed(feed PriceFeed, maxAge time.Duration) Option {
	return func(c *Config) {
		c.Feed = feed
		if maxAge > 0 {
			c.FeedMaxAge = maxAge
		}
	}
}
