// Package models holds the wire types for the event gateway: events,
// routing rules, and topic validation configs.
package models

import (
	"encoding/json"
	"fmt"
)

// ── Event ────────────────────────────────────────────────────

// EventDataKind discriminates the payload carried by an Event.
type EventDataKind string

const (
	EventDataJSON   EventDataKind = "json"
	EventDataString EventDataKind = "string"
	EventDataBinary EventDataKind = "binary"
)

// EventData is the tagged-union payload of an Event. Exactly one of
// JSON, String or Binary is set, matching Kind. Wire shape is
// {"type": "json"|"string"|"binary", "content": ...}.
type EventData struct {
	Kind   EventDataKind
	JSON   json.RawMessage
	String string
	Binary []byte
}

type eventDataWire struct {
	Type    EventDataKind   `json:"type"`
	Content json.RawMessage `json:"content"`
}

func (d EventData) MarshalJSON() ([]byte, error) {
	var content json.RawMessage
	var err error
	switch d.Kind {
	case EventDataJSON:
		content = d.JSON
	case EventDataString:
		content, err = json.Marshal(d.String)
	case EventDataBinary:
		content, err = json.Marshal(d.Binary) // base64 via encoding/json
	default:
		return nil, fmt.Errorf("event data: unknown kind %q", d.Kind)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(eventDataWire{Type: d.Kind, Content: content})
}

func (d *EventData) UnmarshalJSON(b []byte) error {
	var w eventDataWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	return d.UnmarshalDataType(string(w.Type), w.Content)
}

// UnmarshalDataType populates d from raw bytes according to dataType.
// Event.UnmarshalJSON passes data's own "type" tag when it has one, and the
// event's top-level data_type otherwise, since the shape of "data" depends
// on it.
func (d *EventData) UnmarshalDataType(dataType string, raw json.RawMessage) error {
	switch EventDataKind(dataType) {
	case EventDataJSON:
		d.Kind = EventDataJSON
		d.JSON = append(json.RawMessage(nil), raw...)
		return nil
	case EventDataString:
		d.Kind = EventDataString
		return json.Unmarshal(raw, &d.String)
	case EventDataBinary:
		d.Kind = EventDataBinary
		return json.Unmarshal(raw, &d.Binary)
	default:
		return fmt.Errorf("event data: unknown data_type %q", dataType)
	}
}

// Event is the self-describing message accepted by the gateway.
type Event struct {
	ID           string            `json:"id"`
	EventType    string            `json:"eventType"`
	EventVersion string            `json:"eventVersion,omitempty"`
	DataType     EventDataKind     `json:"dataType,omitempty"`
	Data         EventData         `json:"data"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Timestamp    string            `json:"timestamp,omitempty"`
	Origin       string            `json:"origin,omitempty"`
}

// eventAlias avoids infinite recursion in Event's custom JSON methods.
type eventAlias struct {
	ID           string            `json:"id"`
	EventType    string            `json:"eventType"`
	EventVersion string            `json:"eventVersion,omitempty"`
	DataType     EventDataKind     `json:"dataType,omitempty"`
	Data         json.RawMessage   `json:"data,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Timestamp    string            `json:"timestamp,omitempty"`
	Origin       string            `json:"origin,omitempty"`
}

// MarshalJSON omits "data" for an event that carries none, mirroring
// UnmarshalJSON, which accepts an event without a "data" field.
func (e Event) MarshalJSON() ([]byte, error) {
	var dataBytes []byte
	if e.Data.Kind != "" {
		var err error
		dataBytes, err = e.Data.MarshalJSON()
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(eventAlias{
		ID:           e.ID,
		EventType:    e.EventType,
		EventVersion: e.EventVersion,
		DataType:     e.DataType,
		Data:         dataBytes,
		Metadata:     e.Metadata,
		Timestamp:    e.Timestamp,
		Origin:       e.Origin,
	})
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var a eventAlias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	e.ID = a.ID
	e.EventType = a.EventType
	e.EventVersion = a.EventVersion
	e.DataType = a.DataType
	e.Metadata = a.Metadata
	e.Timestamp = a.Timestamp
	e.Origin = a.Origin
	if len(a.Data) == 0 {
		return nil
	}
	// data's own "type" tag is canonical; data_type, when also present, must
	// agree with it. Fall back to data_type if data carries no tag of its own.
	var probe eventDataWire
	if err := json.Unmarshal(a.Data, &probe); err == nil && probe.Type != "" {
		if a.DataType != "" && a.DataType != probe.Type {
			return fmt.Errorf("event: dataType %q disagrees with data type %q", a.DataType, probe.Type)
		}
		return e.Data.UnmarshalDataType(string(probe.Type), probe.Content)
	}
	return e.Data.UnmarshalDataType(string(a.DataType), a.Data)
}

// MetadataValue returns metadata[key] and whether it was present.
func (e Event) MetadataValue(key string) (string, bool) {
	if e.Metadata == nil {
		return "", false
	}
	v, ok := e.Metadata[key]
	return v, ok
}

// ── StringExpression ─────────────────────────────────────────

// StringExpressionKind discriminates the leaf predicate kinds.
type StringExpressionKind string

const (
	ExprRegexMatch StringExpressionKind = "regexMatch"
	ExprEquals     StringExpressionKind = "equals"
	ExprStartsWith StringExpressionKind = "startsWith"
	ExprEndsWith   StringExpressionKind = "endsWith"
	ExprContains   StringExpressionKind = "contains"
)

// StringExpression is a single string predicate, serialized as
// {"type": "equals", "value": "x"}.
type StringExpression struct {
	Kind  StringExpressionKind
	Value string
}

type stringExpressionWire struct {
	Type  StringExpressionKind `json:"type"`
	Value string               `json:"value"`
}

func (s StringExpression) MarshalJSON() ([]byte, error) {
	return json.Marshal(stringExpressionWire{Type: s.Kind, Value: s.Value})
}

func (s *StringExpression) UnmarshalJSON(b []byte) error {
	var w stringExpressionWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch w.Type {
	case ExprRegexMatch, ExprEquals, ExprStartsWith, ExprEndsWith, ExprContains:
		s.Kind = w.Type
		s.Value = w.Value
		return nil
	default:
		return fmt.Errorf("string expression: unknown type %q", w.Type)
	}
}

// ── Condition ────────────────────────────────────────────────

// ConditionKind discriminates the combinator/leaf kinds of a Condition.
type ConditionKind string

const (
	CondAny ConditionKind = "any"
	CondOne ConditionKind = "one"
	CondAnd ConditionKind = "and"
	CondOr  ConditionKind = "or"
	CondNot ConditionKind = "not"
)

// Condition is the recursive predicate tree attached to a TopicRoutingRule.
// And/Or hold child conditions; Not holds exactly one; One holds a single
// StringExpression tested against the subject passed to Matches; Any
// matches unconditionally.
type Condition struct {
	Kind ConditionKind

	Children []Condition // and, or
	Child    *Condition  // not

	Expression StringExpression // one
}

// conditionWire mirrors the spec's tagged encoding: lowercase "type" tags
// for and/or/not/any, and leaf "one" conditions serialized untagged as
// the inner StringExpression object (its own "type" is one of
// regexMatch/equals/startsWith/endsWith/contains).
type conditionWire struct {
	Type       string      `json:"type"`
	Conditions []Condition `json:"conditions,omitempty"`
	Condition  *Condition  `json:"condition,omitempty"`
	Value      string      `json:"value,omitempty"`
}

func (c Condition) MarshalJSON() ([]byte, error) {
	var w conditionWire
	switch c.Kind {
	case CondAny:
		w.Type = string(CondAny)
	case CondAnd:
		w.Type = string(CondAnd)
		w.Conditions = c.Children
	case CondOr:
		w.Type = string(CondOr)
		w.Conditions = c.Children
	case CondNot:
		w.Type = string(CondNot)
		w.Condition = c.Child
	case CondOne:
		w.Type = string(c.Expression.Kind)
		w.Value = c.Expression.Value
	default:
		return nil, fmt.Errorf("condition: unknown kind %q", c.Kind)
	}
	return json.Marshal(w)
}

func (c *Condition) UnmarshalJSON(b []byte) error {
	var w conditionWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch ConditionKind(w.Type) {
	case CondAny:
		c.Kind = CondAny
	case CondAnd:
		c.Kind, c.Children = CondAnd, w.Conditions
	case CondOr:
		c.Kind, c.Children = CondOr, w.Conditions
	case CondNot:
		if w.Condition == nil {
			return fmt.Errorf("condition: \"not\" requires a condition")
		}
		c.Kind, c.Child = CondNot, w.Condition
	case ConditionKind(ExprRegexMatch), ConditionKind(ExprEquals), ConditionKind(ExprStartsWith),
		ConditionKind(ExprEndsWith), ConditionKind(ExprContains):
		c.Kind = CondOne
		c.Expression = StringExpression{Kind: StringExpressionKind(w.Type), Value: w.Value}
	default:
		return fmt.Errorf("condition: unknown type %q", w.Type)
	}
	return nil
}

// ── TopicRoutingRule ─────────────────────────────────────────

type TopicRoutingRule struct {
	ID                    string     `json:"id"`
	Order                 int        `json:"order"`
	Topic                 string     `json:"topic"`
	EventTypeCondition    Condition  `json:"eventTypeCondition"`
	EventVersionCondition *Condition `json:"eventVersionCondition,omitempty"`
	Description           string     `json:"description,omitempty"`
}

// ── Schema / JsonSchema ──────────────────────────────────────

// JsonSchema carries a raw JSON Schema document. Equality is by raw
// document; the compiled form is derived state owned by the validator.
type JsonSchema struct {
	Document json.RawMessage
}

// SchemaKind discriminates Schema variants. Only "json" exists today;
// the tag leaves room for future variants (e.g. Avro).
type SchemaKind string

const SchemaJSON SchemaKind = "json"

// Schema is a tagged union over payload-schema formats, serialized as
// {"type": "json", "data": <raw schema document>}.
type Schema struct {
	Kind       SchemaKind
	JsonSchema JsonSchema
}

type schemaWire struct {
	Type SchemaKind      `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (s Schema) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case SchemaJSON, "":
		return json.Marshal(schemaWire{Type: SchemaJSON, Data: s.JsonSchema.Document})
	default:
		return nil, fmt.Errorf("schema: unknown kind %q", s.Kind)
	}
}

func (s *Schema) UnmarshalJSON(b []byte) error {
	var w schemaWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch w.Type {
	case SchemaJSON, "":
		s.Kind = SchemaJSON
		s.JsonSchema = JsonSchema{Document: w.Data}
		return nil
	default:
		return fmt.Errorf("schema: unknown type %q", w.Type)
	}
}

// DataSchema scopes a Schema to a specific event type and optional
// version, with a name used to identify it in validation failures.
type DataSchema struct {
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	Schema       Schema            `json:"schema"`
	EventType    string            `json:"event_type"`
	EventVersion string            `json:"event_version,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// TopicValidationConfig binds a single DataSchema to the topic it
// validates events routed to. A topic may have several configs, one per
// (event_type, event_version) combination it accepts.
type TopicValidationConfig struct {
	ID     string     `json:"id"`
	Topic  string     `json:"topic"`
	Schema DataSchema `json:"schema"`
}
