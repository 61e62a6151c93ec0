package di

import (
	"context"
	"fmt"
	"time"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/domain/repository"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/handler/api"
	internalrepo "github.com/y2kjoh23-ux/btc-compass-26/internal/repository"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/service/market"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/service/ratelimit"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/service/stream"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/services/indicators"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/services/valuation"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/usecase"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/cache"
	pkgch "github.com/y2kjoh23-ux/btc-compass-26/pkg/clickhouse"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/config"
	xhttp "github.com/y2kjoh23-ux/btc-compass-26/pkg/http"
	pkgkafka "github.com/y2kjoh23-ux/btc-compass-26/pkg/kafka"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/logger"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/metrics"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/server"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideEngine builds the valuation engine from the model section.
func ProvideEngine(cfg *config.Config) (*valuation.Engine, error) {
	p, err := cfg.ModelParams()
	if err != nil {
		return nil, fmt.Errorf("model params: %w", err)
	}
	return valuation.New(p)
}

// ProvideDeriver builds the indicator deriver from the risk section.
func ProvideDeriver(cfg *config.Config) (*indicators.Deriver, error) {
	p, err := cfg.RiskProfile()
	if err != nil {
		return nil, fmt.Errorf("risk profile: %w", err)
	}
	return indicators.New(p)
}

// ProvideCache creates the cache. With redis enabled, a small memory L1 sits in front of it.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize)), nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		cache.WithLayeredMemoryTTL(time.Minute),
	), nil
}

// ProvideHTTPClient creates the outbound HTTP client used for market data.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(
		xhttp.WithTimeout(cfg.Market.Timeout),
		xhttp.WithRetry(cfg.Market.MaxRetryTime, 3),
		xhttp.WithUserAgent("btc-compass/"+cfg.Environment),
	)
}

// ProvidePriceStream creates the websocket trade ticker, or nil when streaming is disabled.
func ProvidePriceStream(cfg *config.Config, log *logger.Logger) *stream.Ticker {
	if !cfg.Market.Stream.Enabled {
		return nil
	}
	return stream.New(log,
		stream.WithURL(cfg.Market.Stream.URL),
		stream.WithReconnect(cfg.Market.Stream.ReconnectMin, cfg.Market.Stream.ReconnectMax),
		stream.WithPingInterval(cfg.Market.Stream.PingInterval),
	)
}

// ProvideMarketClient creates the market data source.
func ProvideMarketClient(cfg *config.Config, httpClient *xhttp.Client, c cache.Service, ticker *stream.Ticker, log *logger.Logger) *market.Client {
	opts := []market.Option{
		market.WithEndpoints(cfg.Market.PriceURL, cfg.Market.HistoryURL, cfg.Market.FearGreedURL),
		market.WithRate(cfg.Market.RatePerSecond),
		market.WithFallback(cfg.Market.FallbackPrice, cfg.Market.FallbackFNG),
		market.WithCacheTTL(cfg.Market.CacheTTL),
		market.WithBreaker(cfg.Market.BreakerFailures, cfg.Market.BreakerTimeout),
	}
	if ticker != nil {
		opts = append(opts, market.WithPriceFeed(ticker, cfg.Market.Stream.MaxAge))
	}
	return market.New(httpClient, c, log, opts...)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when history is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, true),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, []string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database}); err != nil {
		_ = client.Close() // no logger in this layer; propagate
		return nil, fmt.Errorf("clickhouse database: %w", err)
	}
	return client, nil
}

// ProvideSnapshotStore creates the ClickHouse snapshot store and ensures its table.
func ProvideSnapshotStore(chClient *pkgch.Client, log *logger.Logger) (repository.SnapshotStore, error) {
	if chClient == nil {
		return nil, nil
	}
	store := internalrepo.NewCHSnapshotStore(chClient.DB(), chClient.Database()+"."+internalrepo.DefaultSnapshotTable, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = chClient.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSnapshotPublisher creates the Kafka snapshot publisher, or nil without a producer.
func ProvideSnapshotPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SnapshotPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.Topic)
}

// ProvideDashboard creates the dashboard use case.
func ProvideDashboard(
	cfg *config.Config,
	engine *valuation.Engine,
	deriver *indicators.Deriver,
	source *market.Client,
	rec *metrics.Recorder,
	store repository.SnapshotStore,
	pub repository.SnapshotPublisher,
	c cache.Service,
	log *logger.Logger,
) *usecase.Dashboard {
	opts := []usecase.DashboardOption{
		usecase.WithChartCache(c, cfg.Cache.ChartTTL),
		usecase.WithTimeout(cfg.Market.Timeout + cfg.Market.MaxRetryTime),
		usecase.WithWorkers(cfg.Server.SeriesWorkers),
	}
	if store != nil {
		opts = append(opts, usecase.WithSnapshotStore(store))
	}
	if pub != nil {
		opts = append(opts, usecase.WithSnapshotPublisher(pub))
	}
	return usecase.NewDashboard(engine, deriver, source, rec, log.With(logger.String("component", "dashboard")), opts...)
}

// ProvideSnapshotCollector creates the periodic snapshot collector.
func ProvideSnapshotCollector(cfg *config.Config, dash *usecase.Dashboard, c cache.Service, rec *metrics.Recorder, log *logger.Logger) *usecase.SnapshotCollector {
	return usecase.NewSnapshotCollector(dash, c, rec, log, cfg.Market.RefreshInterval)
}

// ProvideKafkaConsumer creates the observation consumer, or nil when it is disabled.
func ProvideKafkaConsumer(cfg *config.Config, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideObservationHandler registers the handler for the observation topic.
func ProvideObservationHandler(cfg *config.Config, dash *usecase.Dashboard, rec *metrics.Recorder) *usecase.KafkaObservationHandler {
	return usecase.NewKafkaObservationHandler(cfg.Kafka.Consumer.Topic, dash, rec)
}

// ProvideRateLimiter creates the per-client API limiter.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateBurst)
}

// ProvideDashboardHandler creates the echo handler for /api.
func ProvideDashboardHandler(log *logger.Logger, dash *usecase.Dashboard, collector *usecase.SnapshotCollector) *api.DashboardEchoHandler {
	return api.NewDashboardEchoHandler(log, dash, collector)
}

// ProvideHTTPServer creates the HTTP server with health checks for enabled dependencies.
func ProvideHTTPServer(
	cfg *config.Config,
	log *logger.Logger,
	handler *api.DashboardEchoHandler,
	limiter *ratelimit.Limiter,
	store repository.SnapshotStore,
	c cache.Service,
) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithRateLimiter(limiter),
		xhttp.WithHealthCheck("cache", func(ctx context.Context) error {
			_, err := c.Exists(ctx, "healthz")
			return err
		}),
	}
	if store != nil {
		opts = append(opts, xhttp.WithHealthCheck("clickhouse", store.Health))
	}
	return xhttp.NewServer(log, handler, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	httpServer *xhttp.Server,
	dash *usecase.Dashboard,
	collector *usecase.SnapshotCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaObservationHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	ticker *stream.Ticker,
	limiter *ratelimit.Limiter,
	c cache.Service,
) *server.App {
	app := server.New(cfg, log, httpServer, dash, collector, limiter, c)
	if consumer != nil {
		app.WithConsumer(consumer, kh)
	}
	if producer != nil {
		app.WithProducer(producer)
	}
	if chClient != nil {
		app.WithClickHouse(chClient)
	}
	if ticker != nil {
		app.WithPriceStream(ticker)
	}
	return app
}
