package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lightsaway/event-gateway/internal/models"
)

// snapshot is the JSON-serializable shape written to disk.
type snapshot struct {
	RoutingRules      map[string]*models.TopicRoutingRule      `json:"routing_rules"`
	TopicValidations  map[string]*models.TopicValidationConfig `json:"topic_validations"`
}

// MemoryStore implements Store with in-memory maps guarded by a single
// read-write lock. If configured with a snapshot path, writes are
// persisted to disk as one JSON document, debounced and written under a
// mutex to a temp file that is then renamed over the snapshot, so the whole
// state is always rewritten atomically.
type MemoryStore struct {
	mu               sync.RWMutex
	routingRules     map[string]*models.TopicRoutingRule
	topicValidations map[string]*models.TopicValidationConfig

	snapshotPath string
	saveMu       sync.Mutex
	saveCh       chan struct{}
	doneCh       chan struct{}
}

// NewMemoryStore creates an in-memory store. If EVENT_GATEWAY_DATA_DIR is
// set, state is persisted to a JSON file in that directory; otherwise it
// defaults to ~/.event-gateway/data.json.
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{
		routingRules:     make(map[string]*models.TopicRoutingRule),
		topicValidations: make(map[string]*models.TopicValidationConfig),
		saveCh:           make(chan struct{}, 1),
		doneCh:           make(chan struct{}),
	}

	dataDir := os.Getenv("EVENT_GATEWAY_DATA_DIR")
	if dataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dataDir = filepath.Join(home, ".event-gateway")
		}
	}
	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			log.Warn().Err(err).Str("dir", dataDir).Msg("cannot create data dir, persistence disabled")
		} else {
			m.snapshotPath = filepath.Join(dataDir, "data.json")
		}
	}

	if m.snapshotPath != "" {
		m.loadSnapshot()
		go m.saveLoop()
	}

	log.Info().Str("snapshot", m.snapshotPath).Msg("memory store configured")
	return m
}

// requestSave signals the background goroutine to persist data.
// Non-blocking: coalesces multiple rapid writes into one disk flush.
func (m *MemoryStore) requestSave() {
	if m.snapshotPath == "" {
		return
	}
	select {
	case m.saveCh <- struct{}{}:
	default:
	}
}

// saveLoop debounces save requests to at most one disk write per 500ms.
func (m *MemoryStore) saveLoop() {
	for {
		select {
		case <-m.doneCh:
			return
		case <-m.saveCh:
			time.Sleep(500 * time.Millisecond)
			m.saveSnapshot()
		}
	}
}

func (m *MemoryStore) saveSnapshot() {
	m.mu.RLock()
	snap := snapshot{
		RoutingRules:     m.routingRules,
		TopicValidations: m.topicValidations,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	m.mu.RUnlock()

	if err != nil {
		log.Error().Err(err).Msg("failed to marshal snapshot")
		return
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.Error().Err(err).Str("path", tmp).Msg("failed to write snapshot tmp")
		return
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("failed to rename snapshot")
		return
	}
	log.Debug().Str("path", m.snapshotPath).Msg("snapshot saved")
}

func (m *MemoryStore) loadSnapshot() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", m.snapshotPath).Msg("no snapshot file found, starting fresh")
			return
		}
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("failed to read snapshot")
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("failed to parse snapshot")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if snap.RoutingRules != nil {
		m.routingRules = snap.RoutingRules
	}
	if snap.TopicValidations != nil {
		m.topicValidations = snap.TopicValidations
	}
}

// ── Routing Rules ────────────────────────────────────────────

func (m *MemoryStore) ListRoutingRules(ctx context.Context) ([]models.TopicRoutingRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rules := make([]models.TopicRoutingRule, 0, len(m.routingRules))
	for _, r := range m.routingRules {
		rules = append(rules, *r)
	}
	return rules, nil
}

func (m *MemoryStore) GetRoutingRule(ctx context.Context, id string) (*models.TopicRoutingRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.routingRules[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "routing rule", Key: id}
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) AddRoutingRule(ctx context.Context, rule *models.TopicRoutingRule) error {
	m.mu.Lock()
	cp := *rule
	m.routingRules[rule.ID] = &cp
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) UpdateRoutingRule(ctx context.Context, rule *models.TopicRoutingRule) error {
	m.mu.Lock()
	if _, ok := m.routingRules[rule.ID]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "routing rule", Key: rule.ID}
	}
	cp := *rule
	m.routingRules[rule.ID] = &cp
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) DeleteRoutingRule(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.routingRules[id]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "routing rule", Key: id}
	}
	delete(m.routingRules, id)
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// ── Topic Validations ────────────────────────────────────────

func (m *MemoryStore) ListTopicValidationsByTopic(ctx context.Context) (map[string][]models.DataSchema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byTopic := make(map[string][]models.DataSchema)
	for _, c := range m.topicValidations {
		byTopic[c.Topic] = append(byTopic[c.Topic], c.Schema)
	}
	return byTopic, nil
}

func (m *MemoryStore) ListSchemasForTopic(ctx context.Context, topic string) ([]models.DataSchema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	schemas := []models.DataSchema{}
	for _, c := range m.topicValidations {
		if c.Topic == topic {
			schemas = append(schemas, c.Schema)
		}
	}
	return schemas, nil
}

func (m *MemoryStore) AddTopicValidation(ctx context.Context, cfg *models.TopicValidationConfig) error {
	m.mu.Lock()
	cp := *cfg
	m.topicValidations[cfg.ID] = &cp
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) DeleteTopicValidation(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.topicValidations[id]; !ok {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "topic validation", Key: id}
	}
	delete(m.topicValidations, id)
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// ── Lifecycle ────────────────────────────────────────────────

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error {
	if m.snapshotPath != "" {
		close(m.doneCh)
		m.saveSnapshot()
	}
	return nil
}
