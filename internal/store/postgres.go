package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/lightsaway/event-gateway/internal/models"
)

// PostgresStore implements Store against two tables, routing_rules and
// topic_validations. Every read, including the router's and validator's
// reads on the hot path, is a query against the database; there is no
// in-process cache of rules or schemas and no periodic refresh.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and ensures the schema exists.
func NewPostgresStore(ctx context.Context, connURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}

	log.Info().Msg("postgres store initialized")
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS routing_rules (
			id                      TEXT PRIMARY KEY,
			order_num               INTEGER NOT NULL,
			topic                   TEXT NOT NULL,
			description             TEXT NOT NULL DEFAULT '',
			event_type_condition    JSONB NOT NULL,
			event_version_condition JSONB,
			created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_routing_rules_order ON routing_rules (order_num, id);

		CREATE TABLE IF NOT EXISTS topic_validations (
			id         TEXT PRIMARY KEY,
			topic      TEXT NOT NULL,
			schema     JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_topic_validations_topic ON topic_validations (topic);
	`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

// ── Routing Rules ────────────────────────────────────────────

func (s *PostgresStore) ListRoutingRules(ctx context.Context) ([]models.TopicRoutingRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_num, topic, description, event_type_condition, event_version_condition
		FROM routing_rules ORDER BY order_num, id`)
	if err != nil {
		return nil, fmt.Errorf("list routing rules: %w", err)
	}
	defer rows.Close()

	var rules []models.TopicRoutingRule
	for rows.Next() {
		r, err := scanRoutingRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *PostgresStore) GetRoutingRule(ctx context.Context, id string) (*models.TopicRoutingRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_num, topic, description, event_type_condition, event_version_condition
		FROM routing_rules WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get routing rule: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, &ErrNotFound{Entity: "routing rule", Key: id}
	}
	r, err := scanRoutingRule(rows)
	if err != nil {
		return nil, err
	}
	return &r, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRoutingRule(row rowScanner) (models.TopicRoutingRule, error) {
	var r models.TopicRoutingRule
	var eventTypeCondJSON []byte
	var eventVersionCondJSON []byte
	if err := row.Scan(&r.ID, &r.Order, &r.Topic, &r.Description, &eventTypeCondJSON, &eventVersionCondJSON); err != nil {
		return r, fmt.Errorf("scan routing rule: %w", err)
	}
	if err := json.Unmarshal(eventTypeCondJSON, &r.EventTypeCondition); err != nil {
		return r, fmt.Errorf("decode event_type_condition for rule %s: %w", r.ID, err)
	}
	if eventVersionCondJSON != nil {
		var cond models.Condition
		if err := json.Unmarshal(eventVersionCondJSON, &cond); err != nil {
			return r, fmt.Errorf("decode event_version_condition for rule %s: %w", r.ID, err)
		}
		r.EventVersionCondition = &cond
	}
	return r, nil
}

func (s *PostgresStore) AddRoutingRule(ctx context.Context, rule *models.TopicRoutingRule) error {
	typeCondJSON, versionCondJSON, err := encodeRuleConditions(rule)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO routing_rules (id, order_num, topic, description, event_type_condition, event_version_condition, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (id) DO UPDATE SET
			order_num = EXCLUDED.order_num, topic = EXCLUDED.topic, description = EXCLUDED.description,
			event_type_condition = EXCLUDED.event_type_condition, event_version_condition = EXCLUDED.event_version_condition,
			updated_at = now()
	`, rule.ID, rule.Order, rule.Topic, rule.Description, typeCondJSON, versionCondJSON)
	if err != nil {
		return fmt.Errorf("add routing rule: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateRoutingRule(ctx context.Context, rule *models.TopicRoutingRule) error {
	typeCondJSON, versionCondJSON, err := encodeRuleConditions(rule)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE routing_rules SET order_num = $2, topic = $3, description = $4,
			event_type_condition = $5, event_version_condition = $6, updated_at = now()
		WHERE id = $1
	`, rule.ID, rule.Order, rule.Topic, rule.Description, typeCondJSON, versionCondJSON)
	if err != nil {
		return fmt.Errorf("update routing rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "routing rule", Key: rule.ID}
	}
	return nil
}

func encodeRuleConditions(rule *models.TopicRoutingRule) (typeCondJSON, versionCondJSON []byte, err error) {
	typeCondJSON, err = json.Marshal(rule.EventTypeCondition)
	if err != nil {
		return nil, nil, fmt.Errorf("encode event_type_condition: %w", err)
	}
	if rule.EventVersionCondition != nil {
		versionCondJSON, err = json.Marshal(rule.EventVersionCondition)
		if err != nil {
			return nil, nil, fmt.Errorf("encode event_version_condition: %w", err)
		}
	}
	return typeCondJSON, versionCondJSON, nil
}

func (s *PostgresStore) DeleteRoutingRule(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM routing_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete routing rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "routing rule", Key: id}
	}
	return nil
}

// ── Topic Validations ────────────────────────────────────────

func (s *PostgresStore) ListTopicValidationsByTopic(ctx context.Context) (map[string][]models.DataSchema, error) {
	cfgs, err := s.queryTopicValidations(ctx, `SELECT id, topic, schema FROM topic_validations ORDER BY topic, id`)
	if err != nil {
		return nil, err
	}
	byTopic := make(map[string][]models.DataSchema)
	for _, c := range cfgs {
		byTopic[c.Topic] = append(byTopic[c.Topic], c.Schema)
	}
	return byTopic, nil
}

func (s *PostgresStore) ListSchemasForTopic(ctx context.Context, topic string) ([]models.DataSchema, error) {
	cfgs, err := s.queryTopicValidations(ctx, `SELECT id, topic, schema FROM topic_validations WHERE topic = $1 ORDER BY id`, topic)
	if err != nil {
		return nil, err
	}
	schemas := make([]models.DataSchema, 0, len(cfgs))
	for _, c := range cfgs {
		schemas = append(schemas, c.Schema)
	}
	return schemas, nil
}

func (s *PostgresStore) queryTopicValidations(ctx context.Context, query string, args ...interface{}) ([]models.TopicValidationConfig, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list topic validations: %w", err)
	}
	defer rows.Close()

	var cfgs []models.TopicValidationConfig
	for rows.Next() {
		var c models.TopicValidationConfig
		var schemaJSON []byte
		if err := rows.Scan(&c.ID, &c.Topic, &schemaJSON); err != nil {
			return nil, fmt.Errorf("scan topic validation: %w", err)
		}
		if err := json.Unmarshal(schemaJSON, &c.Schema); err != nil {
			return nil, fmt.Errorf("decode schema for %s: %w", c.ID, err)
		}
		cfgs = append(cfgs, c)
	}
	return cfgs, rows.Err()
}

func (s *PostgresStore) AddTopicValidation(ctx context.Context, cfg *models.TopicValidationConfig) error {
	schemaJSON, err := json.Marshal(cfg.Schema)
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO topic_validations (id, topic, schema, updated_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET topic = EXCLUDED.topic, schema = EXCLUDED.schema, updated_at = now()
	`, cfg.ID, cfg.Topic, schemaJSON)
	if err != nil {
		return fmt.Errorf("add topic validation: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteTopicValidation(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM topic_validations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete topic validation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "topic validation", Key: id}
	}
	return nil
}

// ── Lifecycle ────────────────────────────────────────────────

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
