//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
)

var CoreInfraSet = wire.NewSet(
	NewMetricsRegistry,
	NewMetrics,
	NewHealthTracker,
	NewConfigProvider,
)

var DirectorySet = wire.NewSet(
	NewStore,
	NewMerger,
	NewGuard,
	NewOrchestrator,
	NewSynchronizer,
	NewDirectoryService,
	NewAPIServer,
)

var AppSet = wire.NewSet(
	CoreInfraSet,
	DirectorySet,
	wire.Struct(new(ApplicationOptions), "*"),
	NewApplication,
)
