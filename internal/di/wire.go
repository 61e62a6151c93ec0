//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/y2kjoh23-ux/btc-compass-26/pkg/config"
	"github.com/y2kjoh23-ux/btc-compass-26/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Domain services
		ProvideEngine,
		ProvideDeriver,

		// Infrastructure clients
		ProvideHTTPClient,
		ProvidePriceStream,
		ProvideMarketClient,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideSnapshotStore,
		ProvideSnapshotPublisher,

		// Use cases
		ProvideDashboard,
		ProvideSnapshotCollector,
		ProvideObservationHandler,

		// HTTP
		ProvideRateLimiter,
		ProvideDashboardHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
