// Package store provides the storage interface and implementations for the
// event gateway. MemoryStore backs single-node/dev deployments; PostgresStore
// backs durable multi-instance deployments, both implementing Store.
package store

import (
	"context"
	"fmt"

	"github.com/lightsaway/event-gateway/internal/models"
)

// Store is the primary storage interface for the gateway. Both the
// pipeline (reads routing rules and topic validations on the hot path)
// and the admin HTTP handlers (CRUD) depend on this interface, so the
// backing implementation can be swapped without touching either caller.
type Store interface {
	RoutingRuleStore
	TopicValidationStore

	// Ping checks if the store is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}

// ── Routing Rule Store ──────────────────────────────────────

type RoutingRuleStore interface {
	ListRoutingRules(ctx context.Context) ([]models.TopicRoutingRule, error)
	GetRoutingRule(ctx context.Context, id string) (*models.TopicRoutingRule, error)
	AddRoutingRule(ctx context.Context, rule *models.TopicRoutingRule) error
	UpdateRoutingRule(ctx context.Context, rule *models.TopicRoutingRule) error
	DeleteRoutingRule(ctx context.Context, id string) error
}

// ── Topic Validation Store ──────────────────────────────────

type TopicValidationStore interface {
	// ListTopicValidationsByTopic groups every configured schema by the
	// topic it validates.
	ListTopicValidationsByTopic(ctx context.Context) (map[string][]models.DataSchema, error)
	// ListSchemasForTopic returns the schemas configured for topic, or an
	// empty (never nil) slice for an unknown topic.
	ListSchemasForTopic(ctx context.Context, topic string) ([]models.DataSchema, error)
	AddTopicValidation(ctx context.Context, cfg *models.TopicValidationConfig) error
	DeleteTopicValidation(ctx context.Context, id string) error
}

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}
