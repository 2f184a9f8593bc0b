//go:build wireinject
// +build wireinject

package di

import (
	"ToxicTide/pkg/config"
	"ToxicTide/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient infrastructure
		ProvideLogger,
		ProvideBus,
		ProvideMetrics,

		// Market data and execution venue
		ProvideMarketFeed,
		ProvideExecutionAdapter,

		// Decision stages and position book
		ProvidePipeline,
		ProvidePositionManager,
		ProvidePositionMonitor,

		// Persistence and fan-out
		ProvideLedger,
		ProvideClickHouseClient,
		ProvideRecordStorage,
		ProvideRecordPublisher,
		ProvideRedisBridge,

		// Tick loop and operator surface
		ProvideOrchestrator,
		ProvideControlHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
