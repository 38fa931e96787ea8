// Package handlers implements the HTTP handlers for the event gateway:
// event ingestion and admin CRUD over routing rules and topic validation
// configs.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lightsaway/event-gateway/internal/gateway"
	"github.com/lightsaway/event-gateway/internal/models"
	"github.com/lightsaway/event-gateway/internal/store"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Store   store.Store
	Gateway *gateway.Gateway
}

// New creates a new Handlers instance.
func New(s store.Store, gw *gateway.Gateway) *Handlers {
	return &Handlers{Store: s, Gateway: gw}
}

// ── Event ingestion ──────────────────────────────────────────

func (h *Handlers) IngestEvent(w http.ResponseWriter, r *http.Request) {
	var event models.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondError(w, http.StatusBadRequest, "schema validation failed")
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	_, err := h.Gateway.Handle(r.Context(), event)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrNoTopicToRoute):
			respondError(w, http.StatusNotAcceptable, "no destination found")
		case errors.Is(err, gateway.ErrSchemaInvalid):
			respondError(w, http.StatusBadRequest, "schema validation failed")
		default:
			log.Error().Err(err).Str("event_id", event.ID).Msg("failed to handle event")
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ── Routing rules ────────────────────────────────────────────

func (h *Handlers) ListRoutingRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.ListRoutingRules(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if rules == nil {
		rules = []models.TopicRoutingRule{}
	}
	respondJSON(w, http.StatusOK, rules)
}

func (h *Handlers) CreateRoutingRule(w http.ResponseWriter, r *http.Request) {
	var rule models.TopicRoutingRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if err := h.Store.AddRoutingRule(r.Context(), &rule); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) DeleteRoutingRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteRoutingRule(r.Context(), id); err != nil {
		var nf *store.ErrNotFound
		if !errors.As(err, &nf) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Topic validation configs ─────────────────────────────────

func (h *Handlers) ListTopicValidations(w http.ResponseWriter, r *http.Request) {
	byTopic, err := h.Store.ListTopicValidationsByTopic(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if byTopic == nil {
		byTopic = map[string][]models.DataSchema{}
	}
	respondJSON(w, http.StatusOK, byTopic)
}

func (h *Handlers) CreateTopicValidation(w http.ResponseWriter, r *http.Request) {
	var cfg models.TopicValidationConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if err := h.Store.AddTopicValidation(r.Context(), &cfg); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) DeleteTopicValidation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteTopicValidation(r.Context(), id); err != nil {
		var nf *store.ErrNotFound
		if !errors.As(err, &nf) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Helpers ───────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
