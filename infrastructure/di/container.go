// Package di wires the application together.
package di

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tmdt-buw/plasma-sub002/application/commands/bus"
	querybus "github.com/tmdt-buw/plasma-sub002/application/queries/bus"
	"github.com/tmdt-buw/plasma-sub002/application/services"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/config"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/persistence/memory"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/recipe"
	"github.com/tmdt-buw/plasma-sub002/pkg/auth"
	"github.com/tmdt-buw/plasma-sub002/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	LogLevel   zap.AtomicLevel
	Storage    *Storage
	Sessions   *memory.SessionRepository
	Analysis   *services.AnalysisService
	Modeling   *services.ModelingService
	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
	Collector  *observability.Collector
	JWT        *auth.JWTService
	Recipes    *recipe.Runner
	Tracer     *observability.TracerProvider
	Handler    http.Handler
}

// RunBackground evicts idle sessions and maintains the archive until ctx is
// done.
func (c *Container) RunBackground(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if interval := c.Config.Sessions.CleanupInterval; interval > 0 {
		g.Go(func() error {
			c.Sessions.Run(ctx, interval)
			return nil
		})
	}
	g.Go(func() error {
		c.Storage.RunMaintenance(ctx)
		return nil
	})
	return g.Wait()
}

// Reconfigure applies the settings that can change without a restart
func (c *Container) Reconfigure(cfg *config.Config) {
	if level, err := ProvideLogLevel(cfg); err == nil {
		c.LogLevel.SetLevel(level.Level())
	} else {
		c.Logger.Warn("Ignoring log level", zap.String("level", cfg.LogLevel), zap.Error(err))
	}
	c.Analysis.Reconfigure(AnalysisConfig(cfg))
	c.Config = cfg
}
