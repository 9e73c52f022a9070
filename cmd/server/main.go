// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/courtside/internal/api/auth"
	apisessions "github.com/codr1/courtside/internal/api/sessions"
	"github.com/codr1/courtside/internal/config"
	"github.com/codr1/courtside/internal/db"
	"github.com/codr1/courtside/internal/events"
	"github.com/codr1/courtside/internal/ratelimit"
	"github.com/codr1/courtside/internal/scheduler"
	"github.com/codr1/courtside/internal/sessions"
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.Events.NATSURL == "" {
		log.Info().Msg("No NATS URL configured; result events are logged only")
		return events.NoopPublisher{}, nil
	}
	publisher, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject)
	if err != nil {
		return nil, err
	}
	return publisher, nil
}

func main() {
	configPath := getEnv("CONFIG_PATH", "config.yaml")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config_path", configPath).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to open database")
	}
	defer database.Close()

	store, err := sessions.NewSQLStore(database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session store")
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect event publisher")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event publisher")
		}
	}()

	clock := clockwork.NewRealClock()
	service, err := sessions.NewService(store, sessions.Options{
		Clock:        clock,
		Publisher:    publisher,
		QueryTimeout: cfg.QueryTimeout(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session service")
	}

	limiter := ratelimit.New(ratelimit.Config{MaxPerMinute: cfg.Mutations.MaxPerMinute, Clock: clock})
	defer limiter.Close()

	auth.Init(cfg)
	apisessions.InitHandlers(service, limiter)

	jobs, err := scheduler.New(scheduler.Options{Clock: clock})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	if _, err := scheduler.RegisterAuditJob(jobs, service, cfg.Audit.Interval); err != nil {
		log.Fatal().Err(err).Msg("Failed to register integrity audit")
	}
	jobs.Start()
	defer func() {
		if err := jobs.Stop(); err != nil {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
	}()

	server := newServer(cfg)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Str("environment", cfg.App.Environment).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
