package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"lol-tracker/internal/config"
	"lol-tracker/internal/constants"
	"lol-tracker/internal/content"
	fxmodules "lol-tracker/internal/fx"
	"lol-tracker/internal/middleware"
	"lol-tracker/internal/poller"
	"lol-tracker/internal/server"
	"lol-tracker/internal/service"
	"lol-tracker/internal/trackerv1"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		// hooks stop in reverse order: the server goes down before the tracker
		fx.Invoke(runTracker),
		fx.Invoke(runServer),
	).Run()
}

func runTracker(
	lc fx.Lifecycle,
	cfg *config.Config,
	registration *service.RegistrationService,
	p *poller.Poller,
	summary *service.SummaryService,
	lookup *content.Lookup,
	db *sql.DB,
	logger zerolog.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			cfg.Log(logger)

			if _, err := registration.LoadTracked(ctx); err != nil {
				return err
			}

			go func() {
				if err := lookup.Refresh(context.Background()); err != nil {
					logger.Warn().Err(err).Msg("initial content bundle download failed, will retry on demand")
				}
			}()

			if err := p.Start(); err != nil {
				return err
			}
			if cfg.SummaryEnabled {
				return summary.Start()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
			defer cancel()

			// the poller may still record a session while draining
			err := errors.Join(p.Stop(stopCtx), summary.Stop(stopCtx))
			if cerr := db.Close(); cerr != nil {
				logger.Warn().Err(cerr).Msg("error closing database connection")
			}
			return err
		},
	})
}

func runServer(
	lc fx.Lifecycle,
	trackerServer *server.TrackerServer,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	mux := http.NewServeMux()

	path, handler := trackerv1.NewTrackerHandler(trackerServer)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	requestIDMiddleware := middleware.RequestID(logger)

	mux.Handle(path, requestIDMiddleware(middleware.Recover(c.Handler(handler))))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: mux,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
