package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tmdt-buw/plasma-sub002/infrastructure/config"
	"github.com/tmdt-buw/plasma-sub002/infrastructure/di"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configDir := os.Getenv("PLASMA_CONFIG_DIR")
	loader := config.NewLoader(configDir, config.CurrentEnvironment())
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer cleanup()
	logger := container.Logger
	logger.Info("Configuration loaded", zap.Strings("sources", cfg.LoadedFrom))

	if _, err := os.Stat(loader.Dir()); err == nil {
		watcher, err := config.NewWatcher(loader, cfg, logger)
		if err != nil {
			logger.Warn("Configuration watcher unavailable", zap.Error(err))
		} else {
			watcher.OnChange(container.Reconfigure)
			defer watcher.Stop()
		}
	}

	go func() {
		if err := container.RunBackground(ctx); err != nil {
			logger.Error("Background tasks stopped", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      container.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  2 * cfg.Server.ReadTimeout,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.Server.Address),
			zap.String("environment", string(cfg.Environment)),
			zap.String("storage", cfg.Storage.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	logger.Info("Server stopped")
}
