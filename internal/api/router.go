package api

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lightsaway/event-gateway/internal/api/handlers"
	"github.com/lightsaway/event-gateway/internal/api/middleware"
	"github.com/lightsaway/event-gateway/internal/auth"
	"github.com/lightsaway/event-gateway/internal/config"
)

// NewRouter creates the HTTP router for the event gateway.
func NewRouter(cfg *config.Config, h *handlers.Handlers, authChain *auth.ProviderChain) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)

	if authChain != nil {
		authMW := middleware.NewAuthMiddleware(authChain)
		r.Use(authMW.Handler)
	}

	// CORS — configurable via EVENT_GATEWAY_CORS_ORIGINS env var.
	// Wildcard origins imply AllowCredentials=false, per the Fetch spec.
	corsOrigins := parseCORSOrigins()
	isWildcard := len(corsOrigins) == 1 && corsOrigins[0] == "*"
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowCredentials: !isWildcard,
		MaxAge:           300,
	}))

	r.Get("/health-check", healthHandler)
	r.Get("/version", versionHandler(cfg))

	r.Route(cfg.APIPrefix, func(r chi.Router) {
		r.Post("/event", h.IngestEvent)

		r.Route("/routing-rules", func(r chi.Router) {
			r.Get("/", h.ListRoutingRules)
			r.Post("/", h.CreateRoutingRule)
			r.Delete("/{id}", h.DeleteRoutingRule)
		})

		r.Route("/topic-validations", func(r chi.Router) {
			r.Get("/", h.ListTopicValidations)
			r.Post("/", h.CreateTopicValidation)
			r.Delete("/{id}", h.DeleteTopicValidation)
		})
	})

	return r
}

// parseCORSOrigins reads allowed CORS origins from the environment.
// Default: wildcard (open access, no credentials).
func parseCORSOrigins() []string {
	originsEnv := os.Getenv("EVENT_GATEWAY_CORS_ORIGINS")
	if originsEnv == "" {
		return []string{"*"}
	}

	var origins []string
	for _, o := range strings.Split(originsEnv, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
			"service": "event-gateway",
		})
	}
}
