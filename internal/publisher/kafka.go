package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/lightsaway/event-gateway/internal/models"
)

// KafkaPublisher publishes events to Kafka, one kafka.Writer per topic.
// Message keys come from event.Metadata[metadataFieldAsKey] when that
// field is configured and present, otherwise the event id is used.
type KafkaPublisher struct {
	brokers            []string
	metadataFieldAsKey string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafkaPublisher creates a publisher targeting the given brokers.
// metadataFieldAsKey may be empty, in which case every message is keyed
// by the event id.
func NewKafkaPublisher(brokers []string, metadataFieldAsKey string) *KafkaPublisher {
	return &KafkaPublisher{
		brokers:            brokers,
		metadataFieldAsKey: metadataFieldAsKey,
		writers:            make(map[string]*kafka.Writer),
	}
}

func (p *KafkaPublisher) writerFor(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	p.writers[topic] = w
	return w
}

func (p *KafkaPublisher) key(event models.Event) string {
	if p.metadataFieldAsKey != "" {
		if v, ok := event.MetadataValue(p.metadataFieldAsKey); ok {
			return v
		}
	}
	return event.ID
}

func (p *KafkaPublisher) PublishOne(ctx context.Context, topic string, event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	writer := p.writerFor(topic)
	msg := kafka.Message{
		Key:   []byte(p.key(event)),
		Value: data,
		Time:  time.Now(),
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().Str("topic", topic).Str("event_id", event.ID).Err(err).Msg("failed to publish to kafka")
		return fmt.Errorf("publish to topic %s: %w", topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			lastErr = fmt.Errorf("close writer for topic %s: %w", topic, err)
		}
	}
	return lastErr
}
