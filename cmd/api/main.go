package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ferrywatch/ferries_core/internal/api"
	"github.com/ferrywatch/ferries_core/internal/bootstrap"
	"github.com/ferrywatch/ferries_core/internal/config"
	"github.com/ferrywatch/ferries_core/internal/logging"
	"github.com/rs/zerolog/log"

	_ "time/tzdata"
)

func main() {
	logging.Setup()
	log.Info().Msg("Starting Ferries API server")

	if err := run(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server stopped")
		os.Exit(1)
	}
}

// run serves the API until shutdown. Dependencies are closed on every return path.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	deps, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	log.Info().
		Str("store", cfg.Store.Backend).
		Bool("cache", cfg.CacheEnabled).
		Str("timezone", cfg.Timezone).
		Msg("Dependencies ready")

	handlers := api.NewHandlers(deps.Service, deps.Preferences, deps.Redis, deps.Postgres)
	app := api.NewApp(handlers, deps.Redis, cfg.Server.RateLimitPerMin)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()

		log.Info().Msg("Shutting down gracefully")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Error during shutdown")
		}
	}()

	log.Info().Str("addr", addr).Msg("Server listening")
	log.Info().Msgf("Sailings: http://localhost%s/v1/sailings?from=TSA&to=SWB", addr)

	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
