package validator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lightsaway/event-gateway/internal/models"
	"github.com/lightsaway/event-gateway/internal/store"
	"github.com/lightsaway/event-gateway/internal/validator"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	t.Setenv("EVENT_GATEWAY_DATA_DIR", t.TempDir())
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	return s
}

const orderCreatedSchema = `{
	"type": "object",
	"required": ["orderId"],
	"properties": {
		"orderId": {"type": "string"},
		"total": {"type": "number"}
	}
}`

const totalRequiredSchema = `{
	"type": "object",
	"required": ["total"]
}`

func jsonEvent(eventType, version, payload string) models.Event {
	var e models.Event
	raw := []byte(`{"id":"evt-1","eventType":"` + eventType + `","eventVersion":"` + version + `","dataType":"json","data":` + payload + `}`)
	if err := e.UnmarshalJSON(raw); err != nil {
		panic(err)
	}
	return e
}

func dataSchemaConfig(id, topic, name, eventType, eventVersion, doc string) *models.TopicValidationConfig {
	return &models.TopicValidationConfig{
		ID:    id,
		Topic: topic,
		Schema: models.DataSchema{
			Name:         name,
			EventType:    eventType,
			EventVersion: eventVersion,
			Schema:       models.Schema{Kind: models.SchemaJSON, JsonSchema: models.JsonSchema{Document: []byte(doc)}},
		},
	}
}

func TestValidate_PassesValidPayload(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	cfg := dataSchemaConfig("cfg-1", "orders", "order-created", "order.created", "v1", orderCreatedSchema)
	if err := s.AddTopicValidation(ctx, cfg); err != nil {
		t.Fatal(err)
	}

	v := validator.NewSchemaValidator(s)
	event := jsonEvent("order.created", "v1", `{"orderId":"o-1","total":9.99}`)
	if err := v.Validate(ctx, "orders", event); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_RejectsInvalidPayload(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	cfg := dataSchemaConfig("cfg-1", "orders", "order-created", "order.created", "v1", orderCreatedSchema)
	if err := s.AddTopicValidation(ctx, cfg); err != nil {
		t.Fatal(err)
	}

	v := validator.NewSchemaValidator(s)
	event := jsonEvent("order.created", "v1", `{"total":9.99}`)
	err := v.Validate(ctx, "orders", event)
	var failure *validator.SchemaFailure
	if !errors.As(err, &failure) {
		t.Fatalf("Validate() error = %v, want *SchemaFailure", err)
	}
	if failure.Name != "order-created" {
		t.Errorf("SchemaFailure.Name = %q, want order-created", failure.Name)
	}
}

func TestValidate_NoSchemaConfiguredIsANoop(t *testing.T) {
	s := newStore(t)
	v := validator.NewSchemaValidator(s)
	event := jsonEvent("order.created", "v1", `{"anything": true}`)
	if err := v.Validate(context.Background(), "orders", event); err != nil {
		t.Errorf("Validate() error = %v, want nil when topic has no validation configs", err)
	}
}

func TestValidate_UnmatchedEventTypeVersionAccepts(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	cfg := dataSchemaConfig("cfg-1", "orders", "order-created", "order.created", "v1", orderCreatedSchema)
	if err := s.AddTopicValidation(ctx, cfg); err != nil {
		t.Fatal(err)
	}

	v := validator.NewSchemaValidator(s)
	event := jsonEvent("order.created", "v2", `{"orderId":"o-1"}`)
	if err := v.Validate(ctx, "orders", event); err != nil {
		t.Errorf("Validate() error = %v, want nil when no schema selects for this (type, version)", err)
	}
}

func TestValidate_ValidatesAgainstEverySelectedSchema(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if err := s.AddTopicValidation(ctx, dataSchemaConfig("cfg-1", "orders", "order-created-shape", "order.created", "v1", orderCreatedSchema)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddTopicValidation(ctx, dataSchemaConfig("cfg-2", "orders", "order-created-total", "order.created", "v1", totalRequiredSchema)); err != nil {
		t.Fatal(err)
	}

	v := validator.NewSchemaValidator(s)
	// satisfies the first schema (has orderId) but not the second (missing total)
	event := jsonEvent("order.created", "v1", `{"orderId":"o-1"}`)
	err := v.Validate(ctx, "orders", event)
	var failure *validator.SchemaFailure
	if !errors.As(err, &failure) {
		t.Fatalf("Validate() error = %v, want *SchemaFailure", err)
	}
	if failure.Name != "order-created-total" {
		t.Errorf("SchemaFailure.Name = %q, want order-created-total (the failing schema)", failure.Name)
	}
}

func TestValidate_AbsentVersionOnBothSidesMatches(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	cfg := dataSchemaConfig("cfg-1", "orders", "order-created", "order.created", "", orderCreatedSchema)
	if err := s.AddTopicValidation(ctx, cfg); err != nil {
		t.Fatal(err)
	}

	v := validator.NewSchemaValidator(s)
	event := jsonEvent("order.created", "", `{"total":9.99}`)
	err := v.Validate(ctx, "orders", event)
	var failure *validator.SchemaFailure
	if !errors.As(err, &failure) {
		t.Fatalf("Validate() error = %v, want *SchemaFailure (missing orderId, schema selected by absent-version match)", err)
	}
}
