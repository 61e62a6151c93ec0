package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/services/indicators"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/services/valuation"
)

func TestDefaultMatchesModelDefaults(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	p, err := c.ModelParams()
	require.NoError(t, err)
	assert.Equal(t, valuation.DefaultParams(), p)

	r, err := c.RiskProfile()
	require.NoError(t, err)
	assert.Equal(t, indicators.DefaultProfile(), r)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 10*time.Minute, c.Cache.ChartTTL)
	assert.Equal(t, 50, c.Market.FallbackFNG)
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: production
log:
  level: debug
server:
  port: 9090
risk:
  price_weight: 0.7
  sentiment_weight: 0.15
  on_chain_weight: 0.15
  sell_above: 65
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
`))
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "compass.snapshots", c.Kafka.Topic, "untouched keys keep defaults")

	r, err := c.RiskProfile()
	require.NoError(t, err)
	assert.Equal(t, indicators.AggressiveProfile(), r)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"blend does not sum to one": "model:\n  blend_decaying: 0.5\n",
		"bad genesis":               "model:\n  genesis: 2009/01/03\n",
		"thresholds inverted":       "risk:\n  accumulate_below: 80\n",
		"kafka without brokers":     "kafka:\n  enabled: true\n",
		"bad log level":             "log:\n  level: loud\n",
		"fng out of range":          "market:\n  fallback_fng: 101\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0o600))

	t.Setenv("PORT", "7100")
	t.Setenv("FALLBACK_PRICE", "42000")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("REDIS_ADDR", "redis:6380")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, 7100, c.Server.Port)
	assert.Equal(t, 42000.0, c.Market.FallbackPrice)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Cache.Redis.Enabled)
	assert.Equal(t, "redis", c.Cache.Redis.Host)
	assert.Equal(t, 6380, c.Cache.Redis.Port)
}

func TestLoadWithEnvMissingFileUsesDefaults(t *testing.T) {
	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Server.Port)
}

func TestLoadWithEnvBadPort(t *testing.T) {
	t.Setenv("PORT", "eighty")
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestSampleConfigLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Server.Port)
	assert.False(t, c.Market.Stream.Enabled)
	assert.Equal(t, time.Minute, c.Market.Stream.MaxAge)
	assert.Equal(t, "compass.observations.dlq", c.Kafka.Consumer.DLQTopic)
	assert.Equal(t, 1048576, c.Kafka.Producer.BatchBytes)
}

func TestLoadWithEnvPriceStream(t *testing.T) {
	t.Setenv("PRICE_STREAM_URL", "wss://example.test/ws")

	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.True(t, c.Market.Stream.Enabled)
	assert.Equal(t, "wss://example.test/ws", c.Market.Stream.URL)
	assert.Equal(t, 30*time.Second, c.Market.Stream.PingInterval)
}
