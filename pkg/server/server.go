// Package server provides the public entry point for initializing the
// event gateway server.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/lightsaway/event-gateway/internal/api"
	"github.com/lightsaway/event-gateway/internal/api/handlers"
	gwauth "github.com/lightsaway/event-gateway/internal/auth"
	"github.com/lightsaway/event-gateway/internal/config"
	"github.com/lightsaway/event-gateway/internal/gateway"
	"github.com/lightsaway/event-gateway/internal/publisher"
	"github.com/lightsaway/event-gateway/internal/router"
	"github.com/lightsaway/event-gateway/internal/store"
	"github.com/lightsaway/event-gateway/internal/telemetry"
	"github.com/lightsaway/event-gateway/internal/validator"
)

// Server holds the initialized event gateway.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the data store backing routing rules and topic validations.
	Store store.Store

	// Gateway is the route → validate → publish pipeline.
	Gateway *gateway.Gateway

	// Publisher is the downstream broker the gateway publishes to.
	Publisher publisher.Publisher

	// AuthChain is the pluggable authentication provider chain.
	AuthChain *gwauth.ProviderChain

	// Config is the resolved configuration the server was built from.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes the event gateway from environment configuration.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the event gateway with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	dataStore, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	log.Info().Str("backend", cfg.Storage.Backend).Msg("store initialized")

	return buildServer(cfg, dataStore, shutdown)
}

// NewWithStore initializes the event gateway with an externally-provided
// store. Server.Shutdown closes that store along with the publisher.
func NewWithStore(ctx context.Context, dataStore store.Store, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	return buildServer(cfg, dataStore, shutdown)
}

func newStore(ctx context.Context, cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Backend {
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.DatabaseURL)
	case "memory", "":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func newPublisher(cfg config.PublisherConfig) (publisher.Publisher, error) {
	switch cfg.Backend {
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("kafka publisher requires at least one broker")
		}
		return publisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.MetadataFieldAsKey), nil
	case "noop", "":
		return publisher.NewNoopPublisher(), nil
	default:
		return nil, fmt.Errorf("unknown publisher backend %q", cfg.Backend)
	}
}

func buildServer(cfg *config.Config, dataStore store.Store, shutdown func(context.Context) error) (*Server, error) {
	rt := router.NewTopicRouter(dataStore)
	val := validator.NewSchemaValidator(dataStore)

	pub, err := newPublisher(cfg.Publisher)
	if err != nil {
		return nil, fmt.Errorf("init publisher: %w", err)
	}
	log.Info().Str("backend", cfg.Publisher.Backend).Msg("publisher initialized")

	gw := gateway.New(rt, val, pub)

	authChain := gwauth.NewProviderChain()
	jwtProvider := gwauth.NewJWTProvider(cfg.Auth)
	authChain.RegisterProvider(jwtProvider)

	h := handlers.New(dataStore, gw)
	handler := api.NewRouter(cfg, h, authChain)

	return &Server{
		Handler:      handler,
		Store:        dataStore,
		Gateway:      gw,
		Publisher:    pub,
		AuthChain:    authChain,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

// Shutdown closes the publisher, the store and flushes telemetry.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing publisher")
		}
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing store")
		}
	}
	if s.ShutdownFunc != nil {
		return s.ShutdownFunc(ctx)
	}
	return nil
}
