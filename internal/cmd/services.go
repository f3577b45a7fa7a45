package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/kyisaiah47/deep-cut-sub000/internal/api"
	"github.com/kyisaiah47/deep-cut-sub000/internal/cards"
	"github.com/kyisaiah47/deep-cut-sub000/internal/gameclock"
	"github.com/kyisaiah47/deep-cut-sub000/internal/gateway"
	"github.com/kyisaiah47/deep-cut-sub000/internal/outbox"
	"github.com/kyisaiah47/deep-cut-sub000/internal/runtime"
)

// Services holds every wired component of the server.
type Services struct {
	Registry *runtime.Registry
	Gateway  *gateway.ConnectionManager
	Consumer *gateway.EventConsumer
	Handler  *api.Handler
	Worker   *outbox.Worker
	Listener *outbox.Listener

	natsConn *natsgo.Conn
	js       jetstream.JetStream
}

// setupServices wires the dependency chain: storage, clock, card
// generation, session runtimes, outbox relay, and the WebSocket gateway.
func setupServices(cfg *Config, database *sql.DB, databaseURL string, slogger *slog.Logger) (*Services, error) {
	clock := gameclock.New()

	fallback, err := cards.NewFallbackGenerator()
	if err != nil {
		return nil, fmt.Errorf("load fallback deck: %w", err)
	}

	st := runtime.NewSQLStore(database)
	registry := runtime.NewRegistry(st, fallback, clock, runtime.Config{
		TickInterval: runtime.DefaultConfig().TickInterval,
		ResultsDelay: runtime.DefaultConfig().ResultsDelay,
		Defaults:     cfg.DefaultSettings(runtime.DefaultSettings()),
	})

	// NATS + JetStream
	natsConn, js, err := outbox.SetupNATS(cfg.NATSURL, slogger)
	if err != nil {
		return nil, err
	}

	publisher := outbox.NewNATSPublisher(js, slogger)

	workerCfg := outbox.DefaultConfig()
	workerCfg.PollInterval = cfg.OutboxPollInterval
	worker := outbox.NewWorker(database, publisher, workerCfg, slogger)

	listenerCfg := outbox.DefaultListenerConfig()
	listenerCfg.DatabaseURL = databaseURL
	listenerCfg.NotifyChannel = cfg.ListenerChannel
	listener, err := outbox.NewListener(outbox.NewRepository(database), publisher, listenerCfg)
	if err != nil {
		return nil, fmt.Errorf("setup outbox listener: %w", err)
	}

	// WebSocket gateway fed by JetStream
	connManager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig(), registry, registry)
	consumerCfg := gateway.DefaultJetStreamConsumerConfig()
	consumerCfg.URL = cfg.NATSURL
	consumer, err := gateway.NewEventConsumer(connManager, consumerCfg)
	if err != nil {
		return nil, fmt.Errorf("setup event consumer: %w", err)
	}

	handler := api.NewHandler(registry, connManager, clock)

	return &Services{
		Registry: registry,
		Gateway:  connManager,
		Consumer: consumer,
		Handler:  handler,
		Worker:   worker,
		Listener: listener,
		natsConn: natsConn,
		js:       js,
	}, nil
}

// Close releases broker connections and stops session runtimes.
func (s *Services) Close() {
	s.Registry.Shutdown()
	s.Consumer.Close()
	if s.natsConn != nil {
		s.natsConn.Close()
	}
}
