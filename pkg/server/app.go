package server

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/y2kjoh23-ux/btc-compass-26/internal/service/ratelimit"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/service/stream"
	"github.com/y2kjoh23-ux/btc-compass-26/internal/usecase"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/cache"
	pkgch "github.com/y2kjoh23-ux/btc-compass-26/pkg/clickhouse"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/config"
	xhttp "github.com/y2kjoh23-ux/btc-compass-26/pkg/http"
	pkgkafka "github.com/y2kjoh23-ux/btc-compass-26/pkg/kafka"
	applogger "github.com/y2kjoh23-ux/btc-compass-26/pkg/logger"
)

const sweepInterval = time.Minute

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	dash       *usecase.Dashboard
	collector  *usecase.SnapshotCollector
	limiter    *ratelimit.Limiter
	cache      cache.Service

	consumer *pkgkafka.Consumer
	kh       pkgkafka.MessageHandler
	producer *pkgkafka.Producer
	chClient *pkgch.Client
	ticker   *stream.Ticker
}

// New creates a new App instance with its required dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	dash *usecase.Dashboard,
	collector *usecase.SnapshotCollector,
	limiter *ratelimit.Limiter,
	c cache.Service,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		dash:       dash,
		collector:  collector,
		limiter:    limiter,
		cache:      c,
	}
}

// WithConsumer enables the observation consumer.
func (a *App) WithConsumer(consumer *pkgkafka.Consumer, kh pkgkafka.MessageHandler) {
	a.consumer = consumer
	a.kh = kh
}

// WithProducer hands the Kafka producer to the app for log digests and shutdown.
func (a *App) WithProducer(p *pkgkafka.Producer) { a.producer = p }

// WithClickHouse hands the ClickHouse pool to the app for shutdown.
func (a *App) WithClickHouse(c *pkgch.Client) { a.chClient = c }

// WithPriceStream runs the websocket trade ticker for the app's lifetime.
func (a *App) WithPriceStream(t *stream.Ticker) { a.ticker = t }

// Run starts the application and blocks until ctx is cancelled or a signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.producer != nil && a.cfg.Kafka.LogTopic != "" {
		a.log.AttachDigest(&applogger.DigestConfig{
			Interval:  30 * time.Second,
			MaxUnique: 100,
			Topic:     a.cfg.Kafka.LogTopic,
			Publisher: a.producer,
		})
		a.log.Info("log digest enabled", applogger.String("topic", a.cfg.Kafka.LogTopic))
	}

	// a shared cache may hold charts computed under a previous calibration
	if err := a.dash.InvalidateCharts(ctx); err != nil {
		a.log.Warn("chart cache invalidation failed", applogger.Error(err))
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer error", applogger.Error(err))
			a.shutdown()
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		a.shutdown()
		return err
	}

	if a.ticker != nil {
		go a.ticker.Run(ctx)
		a.log.Info("price stream started")
	}

	a.collector.Start(ctx)
	a.log.Info("snapshot collector started", applogger.Duration("interval_ms", a.collector.Interval()))

	go a.sweep(ctx)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	a.shutdown()
	return nil
}

func (a *App) sweep(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.limiter.Sweep(); n > 0 {
				a.log.Debug("rate limiter swept", applogger.Int("removed", n))
			}
		}
	}
}

// shutdown stops intake first, then drains sinks and closes clients.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.log.Warn("collector stop error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// digest publishes through the producer, so it goes before it
	a.log.DetachDigest()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.log.Warn("cache close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
}
