// Package validator checks event payloads against topic-and-version-scoped
// JSON Schemas.
package validator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/lightsaway/event-gateway/internal/models"
	"github.com/lightsaway/event-gateway/internal/store"
)

// SchemaFailure reports that an event's payload did not satisfy a selected
// DataSchema. Name carries the failing schema's name so callers can surface
// which schema rejected the event.
type SchemaFailure struct {
	Name string
	Err  error
}

func (f *SchemaFailure) Error() string {
	return fmt.Sprintf("event payload does not satisfy schema %q: %v", f.Name, f.Err)
}

func (f *SchemaFailure) Unwrap() error { return f.Err }

// SchemaValidator validates event payloads against the DataSchemas
// configured for the topic an event has been routed to. Compiled schemas
// are cached by a hash of their document, since a schema document rarely
// changes but is validated against on every matching event.
type SchemaValidator struct {
	store store.TopicValidationStore

	mu     sync.RWMutex
	cached map[string]*jsonschema.Schema
}

// NewSchemaValidator creates a validator backed by the given store.
func NewSchemaValidator(s store.TopicValidationStore) *SchemaValidator {
	return &SchemaValidator{store: s, cached: make(map[string]*jsonschema.Schema)}
}

// Validate selects every DataSchema configured for topic whose event_type
// and event_version both equal event's (absent on both sides counts as a
// match), and checks the event's payload against each in turn, stopping at
// the first failure. A topic with no configured schemas, or one where none
// select for this event's (type, version), has nothing to check against and
// the event is accepted. Non-JSON payloads (string, binary) are never
// schema-checked.
func (v *SchemaValidator) Validate(ctx context.Context, topic string, event models.Event) error {
	schemas, err := v.store.ListSchemasForTopic(ctx, topic)
	if err != nil {
		return fmt.Errorf("list topic validations: %w", err)
	}

	selected := selectSchemas(schemas, event.EventType, event.EventVersion)
	if len(selected) == 0 {
		return nil
	}

	if event.Data.Kind != models.EventDataJSON {
		return nil
	}

	var instance interface{}
	if err := json.Unmarshal(event.Data.JSON, &instance); err != nil {
		return fmt.Errorf("decode event payload: %w", err)
	}

	for _, schema := range selected {
		compiled, err := v.compiled(schema.Schema.JsonSchema.Document)
		if err != nil {
			return fmt.Errorf("compile schema %q: %w", schema.Name, err)
		}
		if err := compiled.Validate(instance); err != nil {
			return &SchemaFailure{Name: schema.Name, Err: err}
		}
	}
	return nil
}

func selectSchemas(schemas []models.DataSchema, eventType, eventVersion string) []models.DataSchema {
	var selected []models.DataSchema
	for _, schema := range schemas {
		if schema.EventType != eventType {
			continue
		}
		if schema.EventVersion != eventVersion {
			continue
		}
		selected = append(selected, schema)
	}
	return selected
}

// compiled builds (or returns a cached) jsonschema.Schema from a raw
// document. The compiler defaults to Draft-07 when the document's
// $schema is absent or names an unrecognized draft; Draft-04 and
// Draft-06 documents are honored when named explicitly.
func (v *SchemaValidator) compiled(doc json.RawMessage) (*jsonschema.Schema, error) {
	key := docKey(doc)

	v.mu.RLock()
	if s, ok := v.cached[key]; ok {
		v.mu.RUnlock()
		return s, nil
	}
	v.mu.RUnlock()

	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft7)

	var parsed interface{}
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return nil, fmt.Errorf("decode schema document: %w", err)
	}

	resourceURL := "schema-" + key + ".json"
	if err := compiler.AddResource(resourceURL, parsed); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	s, err := compiler.Compile(resourceURL)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.cached[key] = s
	v.mu.Unlock()
	return s, nil
}

func docKey(doc json.RawMessage) string {
	sum := sha256.Sum256(doc)
	return hex.EncodeToString(sum[:])
}
