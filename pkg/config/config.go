package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/services/indicators"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/services/valuation"
)

const dateLayout = "2006-01-02"

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       float64       `yaml:"rate_limit" default:"10"`
		RateBurst       int           `yaml:"rate_burst" default:"20"`
		CORS            bool          `yaml:"cors" default:"true"`
		SeriesWorkers   int           `yaml:"series_workers" validate:"gte=0"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Model Model `yaml:"model"`
	Risk  Risk  `yaml:"risk"`
	Market struct {
		PriceURL        string        `yaml:"price_url" default:"https://api.coingecko.com/api/v3/simple/price?ids=bitcoin&vs_currencies=usd&include_last_updated_at=true"`
		HistoryURL      string        `yaml:"history_url" default:"https://api.coingecko.com/api/v3/coins/bitcoin/market_chart?vs_currency=usd&interval=daily"`
		FearGreedURL    string        `yaml:"fear_greed_url" default:"https://api.alternative.me/fng/?limit=1"`
		Timeout         time.Duration `yaml:"timeout" default:"5s"`
		RatePerSecond   float64       `yaml:"rate_per_second" default:"2"`
		MaxRetryTime    time.Duration `yaml:"max_retry_time" default:"10s"`
		FallbackPrice   float64       `yaml:"fallback_price" default:"0" validate:"gte=0"`
		FallbackFNG     int           `yaml:"fallback_fng" default:"50" validate:"gte=0,lte=100"`
		CacheTTL        time.Duration `yaml:"cache_ttl" default:"24h"`
		BreakerFailures uint32        `yaml:"breaker_failures" default:"3" validate:"gte=1"`
		BreakerTimeout  time.Duration `yaml:"breaker_timeout" default:"30s"`
		RefreshInterval time.Duration `yaml:"refresh_interval" default:"5m"`
		Stream          struct {
			Enabled      bool          `yaml:"enabled"`
			URL          string        `yaml:"url" default:"wss://stream.binance.com:9443/ws/btcusdt@trade"`
			MaxAge       time.Duration `yaml:"max_age" default:"1m"`
			ReconnectMin time.Duration `yaml:"reconnect_min" default:"1s"`
			ReconnectMax time.Duration `yaml:"reconnect_max" default:"1m"`
			PingInterval time.Duration `yaml:"ping_interval" default:"30s"`
		} `yaml:"stream"`
	} `yaml:"market"`
	Cache struct {
		ChartTTL      time.Duration `yaml:"chart_ttl" default:"10m"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"1000"`
		Redis         struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"compass"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"compass.snapshots"`
		LogTopic     string   `yaml:"log_topic"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576" validate:"gt=0"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			Topic      string        `yaml:"topic" default:"compass.observations"`
			GroupID    string        `yaml:"group_id" default:"compass"`
			Workers    int           `yaml:"workers" default:"2"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"compass"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
		AsyncInsert      bool          `yaml:"async_insert"`
	} `yaml:"clickhouse"`
}

// Model mirrors valuation.Params in YAML form.
type Model struct {
	Genesis           string  `yaml:"genesis" default:"2009-01-03" validate:"datetime=2006-01-02"`
	HalvingReference  string  `yaml:"halving_reference" default:"2024-04-20" validate:"datetime=2006-01-02"`
	StandardCoef      float64 `yaml:"standard_coef" default:"1.48e-17" validate:"gt=0"`
	StandardExp       float64 `yaml:"standard_exp" default:"5.78" validate:"gt=0"`
	DecayingCoef      float64 `yaml:"decaying_coef" default:"1.48e-15" validate:"gt=0"`
	DecayingExp       float64 `yaml:"decaying_exp" default:"5.25" validate:"gt=0"`
	CyclePeriodDays   int     `yaml:"cycle_period_days" default:"1460" validate:"gt=0"`
	CycleAmplitude    float64 `yaml:"cycle_amplitude" default:"0.15" validate:"gte=0,lt=1"`
	BlendDecaying     float64 `yaml:"blend_decaying" default:"0.4"`
	BlendCycle        float64 `yaml:"blend_cycle" default:"0.3"`
	BlendStandard     float64 `yaml:"blend_standard" default:"0.3"`
	BaseSigma         float64 `yaml:"base_sigma" default:"0.5" validate:"gt=0"`
	SigmaDecay        float64 `yaml:"sigma_decay" default:"0.12" validate:"gt=0"`
	SigmaReferenceDay float64 `yaml:"sigma_reference_day" default:"5800" validate:"gt=0"`
}

// Risk mirrors indicators.Profile weights and thresholds.
type Risk struct {
	PriceWeight     float64 `yaml:"price_weight" default:"0.6"`
	SentimentWeight float64 `yaml:"sentiment_weight" default:"0.2"`
	OnChainWeight   float64 `yaml:"on_chain_weight" default:"0.2"`
	AccumulateBelow float64 `yaml:"accumulate_below" default:"35"`
	SellAbove       float64 `yaml:"sell_above" default:"70"`
}

var validate = validator.New()

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the struct defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads .env (if present), then config from YAML, then overrides with
// environment variables. A missing YAML file falls back to defaults.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	var c *Config
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		c = Default()
	} else {
		c, err = Load(path)
		if err != nil {
			return nil, err
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := os.Getenv("FALLBACK_PRICE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FALLBACK_PRICE: %w", err)
		}
		c.Market.FallbackPrice = f
	}
	if v := os.Getenv("PRICE_STREAM_URL"); v != "" {
		c.Market.Stream.Enabled = true
		c.Market.Stream.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Redis.Enabled = true
		c.Cache.Redis.Host = host
		if ok {
			p, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("REDIS_ADDR: %w", err)
			}
			c.Cache.Redis.Port = p
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Enabled = true
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if _, err := c.ModelParams(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if _, err := c.RiskProfile(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	return nil
}

// ModelParams converts the model section into engine calibration.
func (c *Config) ModelParams() (valuation.Params, error) {
	m := c.Model
	genesis, err := time.Parse(dateLayout, m.Genesis)
	if err != nil {
		return valuation.Params{}, fmt.Errorf("genesis: %w", err)
	}
	halving, err := time.Parse(dateLayout, m.HalvingReference)
	if err != nil {
		return valuation.Params{}, fmt.Errorf("halving_reference: %w", err)
	}
	p := valuation.Params{
		Genesis:           genesis,
		HalvingReference:  halving,
		StandardCoef:      m.StandardCoef,
		StandardExp:       m.StandardExp,
		DecayingCoef:      m.DecayingCoef,
		DecayingExp:       m.DecayingExp,
		CyclePeriodDays:   m.CyclePeriodDays,
		CycleAmplitude:    m.CycleAmplitude,
		Blend:             valuation.Blend{Decaying: m.BlendDecaying, Cycle: m.BlendCycle, Standard: m.BlendStandard},
		BaseSigma:         m.BaseSigma,
		SigmaDecay:        m.SigmaDecay,
		SigmaReferenceDay: m.SigmaReferenceDay,
	}
	return p, p.Validate()
}

// RiskProfile converts the risk section into an indicator profile.
func (c *Config) RiskProfile() (indicators.Profile, error) {
	p := indicators.DefaultProfile()
	p.PriceWeight = c.Risk.PriceWeight
	p.SentimentWeight = c.Risk.SentimentWeight
	p.OnChainWeight = c.Risk.OnChainWeight
	p.AccumulateBelow = c.Risk.AccumulateBelow
	p.SellAbove = c.Risk.SellAbove
	return p, p.Validate()
}
