package di

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tmdt-buw/plasma-sub002/application/commands"
	"github.com/tmdt-buw/plasma-sub002/application/commands/bus"
	"github.com/tmdt-buw/plasma-sub002/application/ports"
	"github.com/tmdt-buw/plasma-sub002/application/queries"
	querybus "github.com/tmdt-buw/plasma-sub002/application/queries/bus"
	"github.com/tmdt-buw/plasma-sub002/application/services"
	"github.com/tmdt-buw/plasma-sub002/domain/operations"
	"github.com/tmdt-buw/plasma-sub002/domain/operations/catalog"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/config"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/messaging"
	badgerstore "github.com/tmdt-buw/plasma-sub002/infrastructure/persistence/badger"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/persistence/dynamodb"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/persistence/memory"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/recipe"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/resilience"
	"github.com/tmdt-buw/plasma-sub002/interfaces/http/rest"
	"github.com/tmdt-buw/plasma-sub002/pkg/auth"
	"github.com/tmdt-buw/plasma-sub002/pkg/observability"
)

const tracerName = "plasma"

// ProvideLogLevel creates the level shared by every logger. Reloading the
// configuration adjusts it in place.
func ProvideLogLevel(cfg *config.Config) (zap.AtomicLevel, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("log level: %w", err)
	}
	return zap.NewAtomicLevelAt(level), nil
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, func(), error) {
	var zc zap.Config
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level

	logger, err := zc.Build(zap.Fields(zap.String("environment", string(cfg.Environment))))
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideAWSConfig creates AWS configuration. Loading does not contact AWS,
// so it is safe when no AWS driver is selected.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWS.Region),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// Storage is the snapshot archive selected by configuration together with
// its maintenance loop.
type Storage struct {
	Archive ports.SnapshotArchive
	Driver  string
	gc      func(ctx context.Context)
}

// RunMaintenance blocks running background maintenance of the archive until
// ctx is done. Drivers without maintenance return immediately.
func (s *Storage) RunMaintenance(ctx context.Context) {
	if s.gc != nil {
		s.gc(ctx)
	}
}

// ProvideStorage opens the archive of the configured driver. Remote and disk
// archives are guarded by a circuit breaker.
func ProvideStorage(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) (*Storage, func(), error) {
	driver := cfg.Storage.Driver
	switch driver {
	case config.StorageMemory:
		return &Storage{Archive: memory.NewSnapshotArchive(), Driver: driver}, func() {}, nil

	case config.StorageBadger:
		archive, err := badgerstore.Open(badgerstore.DefaultConfig(cfg.Storage.BadgerPath), logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := archive.Close(); err != nil {
				logger.Error("Failed to close snapshot archive", zap.Error(err))
			}
		}
		breaker := resilience.NewBreaker("archive-badger", resilience.DefaultConfig(), logger)
		return &Storage{
			Archive: resilience.NewArchive(archive, breaker),
			Driver:  driver,
			gc:      archive.RunGC,
		}, cleanup, nil

	case config.StorageDynamoDB:
		archive := dynamodb.NewSnapshotArchive(client, cfg.Storage.DynamoDBTable, logger)
		breaker := resilience.NewBreaker("archive-dynamodb", resilience.DefaultConfig(), logger)
		return &Storage{Archive: resilience.NewArchive(archive, breaker), Driver: driver}, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", driver)
}

// ProvideSnapshotArchive exposes the archive of the selected storage
func ProvideSnapshotArchive(s *Storage) ports.SnapshotArchive {
	return s.Archive
}

// ProvideEventPublisher creates the publisher of the configured events driver
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) (ports.EventPublisher, error) {
	switch cfg.Events.Driver {
	case config.EventsLog:
		return messaging.NewLogPublisher(logger), nil
	case config.EventsEventBridge:
		publisher := messaging.NewEventBridgePublisher(client, cfg.Events.BusName, cfg.Events.Source, logger)
		breaker := resilience.NewBreaker("eventbridge", resilience.DefaultConfig(), logger)
		return resilience.NewPublisher(publisher, breaker), nil
	}
	return nil, fmt.Errorf("unknown events driver %q", cfg.Events.Driver)
}

// ProvideDataSourceRepository creates the data source store
func ProvideDataSourceRepository() ports.DataSourceRepository {
	return memory.NewDataSourceRepository()
}

// ProvideSessionRepository creates the session store
func ProvideSessionRepository(cfg *config.Config, logger *zap.Logger) *memory.SessionRepository {
	return memory.NewSessionRepository(cfg.Sessions.TTL, logger)
}

// ProvideCollector creates the Prometheus collector
func ProvideCollector() *observability.Collector {
	return observability.NewCollector(tracerName)
}

// ProvideMetrics exposes the collector to the services
func ProvideMetrics(c *observability.Collector) ports.Metrics {
	return c
}

// ProvideRegistry creates the operation registry with the built-in catalog
func ProvideRegistry(logger *zap.Logger) (*operations.Registry, error) {
	registry := operations.NewRegistry(nil)
	if err := catalog.Register(registry); err != nil {
		return nil, err
	}
	registry.Use(operations.LoggingMiddleware(logger))
	return registry, nil
}

// AnalysisConfig converts the configuration section to service settings
func AnalysisConfig(cfg *config.Config) services.AnalysisConfig {
	return services.AnalysisConfig{
		SampleLimit:         cfg.Analysis.SampleThreshold,
		AggregatorThreshold: cfg.Analysis.AggregatorThreshold,
	}
}

// ProvideAnalysisService creates the analysis service
func ProvideAnalysisService(
	cfg *config.Config,
	repo ports.DataSourceRepository,
	archive ports.SnapshotArchive,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	logger *zap.Logger,
) *services.AnalysisService {
	return services.NewAnalysisService(repo, archive, publisher, metrics, AnalysisConfig(cfg), logger)
}

// ProvideModelingService creates the modeling service
func ProvideModelingService(
	dataSources ports.DataSourceRepository,
	sessions *memory.SessionRepository,
	registry *operations.Registry,
	archive ports.SnapshotArchive,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	logger *zap.Logger,
) *services.ModelingService {
	return services.NewModelingService(dataSources, sessions, registry, archive, publisher, metrics, logger)
}

// ProvideCommandBus creates the command bus with all handlers registered
func ProvideCommandBus(
	cfg *config.Config,
	analysis *services.AnalysisService,
	modeling *services.ModelingService,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	middleware := []bus.Middleware{bus.LoggingMiddleware(logger)}
	if cfg.Tracing.Enabled {
		middleware = append(middleware, bus.TracingMiddleware(tracerName))
	}
	b := bus.NewCommandBus(middleware...)
	if err := commands.Register(b, analysis, modeling); err != nil {
		return nil, err
	}
	return b, nil
}

// ProvideQueryBus creates the query bus with all handlers registered
func ProvideQueryBus(
	cfg *config.Config,
	analysis *services.AnalysisService,
	modeling *services.ModelingService,
	collector *observability.Collector,
) (*querybus.QueryBus, error) {
	middleware := []querybus.Middleware{querybus.MetricsMiddleware(collector)}
	if cfg.Tracing.Enabled {
		middleware = append(middleware, querybus.TracingMiddleware(tracerName))
	}
	b := querybus.NewQueryBus(middleware...)
	if err := queries.Register(b, analysis, modeling); err != nil {
		return nil, err
	}
	return b, nil
}

// ProvideJWTService creates the token service, or nil when auth is disabled
func ProvideJWTService(cfg *config.Config) (*auth.JWTService, error) {
	if !cfg.Auth.Enabled {
		return nil, nil
	}
	return auth.NewJWTService(auth.Config{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
	})
}

// ProvideRecipeRunner creates the runner of HCL modeling recipes
func ProvideRecipeRunner(modeling *services.ModelingService, logger *zap.Logger) *recipe.Runner {
	return recipe.NewRunner(modeling, logger)
}

// ProvideTracerProvider starts the OTLP exporter when tracing is enabled
func ProvideTracerProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	if !cfg.Tracing.Enabled {
		return nil, func() {}, nil
	}
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.Tracing.ServiceName,
		Environment: string(cfg.Environment),
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideHandler creates the HTTP handler of the REST API
func ProvideHandler(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	collector *observability.Collector,
	jwtService *auth.JWTService,
	runner *recipe.Runner,
	logger *zap.Logger,
) http.Handler {
	opts := rest.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxRequestSize: cfg.Server.MaxRequestSize,
		Recipes:        runner,
	}
	if cfg.Metrics.Enabled {
		opts.Collector = collector
	}
	if cfg.Tracing.Enabled {
		opts.TracingService = cfg.Tracing.ServiceName
	}
	// a nil *JWTService must not become a non-nil interface
	if jwtService != nil {
		opts.Auth = jwtService
	}
	logger.Info("HTTP routes configured",
		zap.Bool("auth", opts.Auth != nil),
		zap.Bool("metrics", opts.Collector != nil),
		zap.String("origins", strings.Join(opts.AllowedOrigins, ",")),
	)
	return rest.NewRouter(commandBus, queryBus, opts, logger).Setup()
}
