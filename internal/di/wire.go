//go:build wireinject
// +build wireinject

package di

import (
	"LPRange/pkg/config"
	"LPRange/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application
// together with a cleanup that closes the infrastructure clients.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,

		// Metrics
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideRedisCache,
		ProvideBytesCache,

		// Repositories and adapters
		ProvideEvaluationStore,
		ProvideEvaluationPublisher,
		ProvidePriceOracle,

		// Core
		ProvideRangeModel,
		ProvideDecisionEngine,

		// Use cases
		ProvideEvaluator,

		// Application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return nil, nil, nil
}
