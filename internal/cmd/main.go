package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/kyisaiah47/deep-cut-sub000/internal/gameclock"
	"github.com/kyisaiah47/deep-cut-sub000/internal/outbox"
	"github.com/kyisaiah47/deep-cut-sub000/internal/resilience"
)

func main() {
	if err := godotenv.Load(); err != nil {
		zlog.Warn().Err(err).Msg("could not load .env file")
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	slogger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := loadConfig()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}

	database, dbConfig, err := setupDatabase()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to setup database")
	}
	defer database.Close()

	services, err := setupServices(cfg, database, dbConfig.DSN(), slogger)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to setup services")
	}
	defer services.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := outbox.EnsureStream(ctx, services.js); err != nil {
		zlog.Fatal().Err(err).Msg("failed to ensure event stream")
	}

	// Outbox relay: NOTIFY fast path plus the poll safety net.
	if err := services.Worker.Start(ctx); err != nil {
		zlog.Fatal().Err(err).Msg("failed to start outbox worker")
	}
	defer func() {
		if err := services.Worker.Stop(); err != nil {
			zlog.Warn().Err(err).Msg("outbox worker stop")
		}
	}()
	go func() {
		if err := services.Listener.Start(ctx); err != nil {
			zlog.Error().Err(err).Msg("outbox listener exited")
		}
	}()

	go services.Gateway.Start(ctx)

	// The consume loop reconnects with bounded backoff; exhausting the
	// budget is fatal because sockets would silently stop receiving events.
	consumerRecovery := resilience.NewRecovery(gameclock.New(), resilience.DefaultRecoveryConfig(), func() {
		zlog.Error().Msg("event consumer reconnect budget exhausted")
		stop()
	})
	go func() {
		if err := consumerRecovery.Run(ctx, services.Consumer.Start); err != nil {
			zlog.Error().Err(err).Msg("event consumer exited")
		}
	}()

	server := setupServer(cfg, services)
	go func() {
		zlog.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	zlog.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("server shutdown")
	}
}
