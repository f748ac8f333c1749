//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/tmdt-buw/plasma-sub002/application/ports"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/config"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/persistence/memory"
)

// InfrastructureSet provides logging, AWS clients, storage and events
var InfrastructureSet = wire.NewSet(
	ProvideLogLevel,
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideStorage,
	ProvideSnapshotArchive,
	ProvideEventPublisher,
	ProvideDataSourceRepository,
	ProvideSessionRepository,
	wire.Bind(new(ports.SessionRepository), new(*memory.SessionRepository)),
	ProvideCollector,
	ProvideMetrics,
	ProvideTracerProvider,
)

// ApplicationSet provides the services and the buses
var ApplicationSet = wire.NewSet(
	ProvideRegistry,
	ProvideAnalysisService,
	ProvideModelingService,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideRecipeRunner,
)

// InterfaceSet provides the HTTP surface
var InterfaceSet = wire.NewSet(
	ProvideJWTService,
	ProvideHandler,
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	InfrastructureSet,
	ApplicationSet,
	InterfaceSet,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The cleanup function
// closes storage, flushes traces and syncs the logger.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
