//go:build wireinject
// +build wireinject

package di

import (
	"X402/internal/usecase"
	"X402/pkg/config"
	"X402/pkg/server"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideRegistry,
	ProvideMetrics,
	ProvideRedis,
	ProvideCache,
	ProvideLogStore,
	ProvideNode,
	ProvideDecisionSink,
)

var domainSet = wire.NewSet(
	ProvideLedger,
	wire.Bind(new(usecase.TradeLedger), new(*usecase.Ledger)),
	ProvideSettings,
	ProvideMarket,
	ProvideFleet,
	ProvideNews,
	ProvideOracle,
	ProvideVerifier,
	ProvideChallenge,
	ProvideRecorder,
	usecase.NewAuditLog,
	usecase.NewDecisionEngine,
	usecase.NewSignalService,
)

var agentSet = wire.NewSet(
	ProvideAgent,
	ProvideRunner,
)

var httpSet = wire.NewSet(
	ProvideRateLimit,
	ProvideHandlers,
	ProvideHTTPServer,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		infraSet,
		domainSet,
		agentSet,
		httpSet,
		ProvideApp,
	)
	return nil, nil, nil
}
