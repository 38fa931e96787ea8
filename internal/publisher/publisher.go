// Package publisher delivers (topic, event) pairs to a downstream broker.
package publisher

import (
	"context"

	"github.com/lightsaway/event-gateway/internal/models"
)

// Publisher delivers a routed, validated event to a topic.
type Publisher interface {
	PublishOne(ctx context.Context, topic string, event models.Event) error
	Close() error
}
