package publisher

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/lightsaway/event-gateway/internal/models"
)

// NoopPublisher logs the (topic, event) pair via the global logger instead of
// delivering it anywhere. Useful for local development and tests.
type NoopPublisher struct{}

// NewNoopPublisher creates a NoopPublisher.
func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (p *NoopPublisher) PublishOne(ctx context.Context, topic string, event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	log.Info().
		Str("topic", topic).
		Str("event_id", event.ID).
		RawJSON("event", data).
		Msg("published (noop)")
	return nil
}

func (p *NoopPublisher) Close() error { return nil }
