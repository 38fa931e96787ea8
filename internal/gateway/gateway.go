// Package gateway wires together routing, validation and publishing into
// the event gateway's single handling pipeline.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lightsaway/event-gateway/internal/models"
	"github.com/lightsaway/event-gateway/internal/publisher"
	"github.com/lightsaway/event-gateway/internal/router"
	"github.com/lightsaway/event-gateway/internal/validator"
)

var tracer = otel.Tracer("event-gateway")

// Error taxonomy surfaced by Handle. The HTTP layer maps these to status
// codes; callers should use errors.Is against these sentinels.
var (
	// ErrNoTopicToRoute means no routing rule matched the event.
	ErrNoTopicToRoute = errors.New("no topic to route event to")
	// ErrSchemaInvalid means the event's payload failed schema validation
	// for the topic it was routed to.
	ErrSchemaInvalid = errors.New("event payload failed schema validation")
)

// Gateway is the composed route → validate → publish pipeline.
type Gateway struct {
	router    *router.TopicRouter
	validator *validator.SchemaValidator
	publisher publisher.Publisher
}

// New wires a Gateway from its three components.
func New(r *router.TopicRouter, v *validator.SchemaValidator, p publisher.Publisher) *Gateway {
	return &Gateway{router: r, validator: v, publisher: p}
}

// Handle routes event to a topic, validates its payload against that
// topic's schemas, and publishes it. Returns ErrNoTopicToRoute,
// ErrSchemaInvalid (both wrapped with detail via errors.Is-compatible
// wrapping), or an opaque internal error.
func (g *Gateway) Handle(ctx context.Context, event models.Event) (topic string, err error) {
	ctx, span := tracer.Start(ctx, "gateway.Handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.id", event.ID),
		attribute.String("event.type", event.EventType),
	)

	topic, ok, err := g.router.Route(ctx, event)
	if err != nil {
		return "", fmt.Errorf("internal: routing failed: %w", err)
	}
	if !ok {
		log.Warn().Str("event_id", event.ID).Str("event_type", event.EventType).Msg("no topic matched event")
		return "", fmt.Errorf("%w: event_type=%s", ErrNoTopicToRoute, event.EventType)
	}
	span.SetAttributes(attribute.String("event.topic", topic))

	if err := g.validator.Validate(ctx, topic, event); err != nil {
		var failure *validator.SchemaFailure
		if errors.As(err, &failure) {
			return topic, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
		}
		return topic, fmt.Errorf("internal: validation failed: %w", err)
	}

	if err := g.publisher.PublishOne(ctx, topic, event); err != nil {
		return topic, fmt.Errorf("internal: publish failed: %w", err)
	}

	log.Info().Str("event_id", event.ID).Str("topic", topic).Msg("event handled")
	return topic, nil
}
