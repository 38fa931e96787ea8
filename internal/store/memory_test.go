package store_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/lightsaway/event-gateway/internal/models"
	"github.com/lightsaway/event-gateway/internal/store"
)

// newTestStore creates a fresh in-memory store for tests, pointed at a
// temp dir so tests don't write to ~/.event-gateway/.
func newTestStore(t *testing.T) store.Store {
	t.Helper()
	dir := t.TempDir()
	os.Setenv("EVENT_GATEWAY_DATA_DIR", dir)
	defer os.Unsetenv("EVENT_GATEWAY_DATA_DIR")
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddAndGetRoutingRule(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rule := &models.TopicRoutingRule{
		ID:    "rule-1",
		Topic: "orders",
		Order: 10,
		EventTypeCondition: models.Condition{
			Kind:       models.CondOne,
			Expression: models.StringExpression{Kind: models.ExprEquals, Value: "order.created"},
		},
	}
	if err := s.AddRoutingRule(ctx, rule); err != nil {
		t.Fatalf("AddRoutingRule() error = %v", err)
	}

	got, err := s.GetRoutingRule(ctx, "rule-1")
	if err != nil {
		t.Fatalf("GetRoutingRule() error = %v", err)
	}
	if got.Topic != "orders" || got.Order != 10 {
		t.Errorf("GetRoutingRule() = %+v, want topic=orders order=10", got)
	}
}

func TestGetRoutingRule_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRoutingRule(context.Background(), "missing")
	var nf *store.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRoutingRule_RequiresExisting(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateRoutingRule(context.Background(), &models.TopicRoutingRule{ID: "nope"})
	var nf *store.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRoutingRule(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rule := &models.TopicRoutingRule{ID: "rule-1", Topic: "orders"}
	if err := s.AddRoutingRule(ctx, rule); err != nil {
		t.Fatalf("AddRoutingRule() error = %v", err)
	}
	if err := s.DeleteRoutingRule(ctx, "rule-1"); err != nil {
		t.Fatalf("DeleteRoutingRule() error = %v", err)
	}
	if _, err := s.GetRoutingRule(ctx, "rule-1"); err == nil {
		t.Fatal("expected error after delete, got nil")
	}
}

func TestListRoutingRules(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := s.AddRoutingRule(ctx, &models.TopicRoutingRule{ID: id, Topic: "t"}); err != nil {
			t.Fatalf("AddRoutingRule(%s) error = %v", id, err)
		}
	}
	rules, err := s.ListRoutingRules(ctx)
	if err != nil {
		t.Fatalf("ListRoutingRules() error = %v", err)
	}
	if len(rules) != 3 {
		t.Errorf("ListRoutingRules() len = %d, want 3", len(rules))
	}
}

func TestTopicValidation_CRUDAndFilterByTopic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cfg1 := &models.TopicValidationConfig{ID: "v1", Topic: "orders", Schema: models.DataSchema{Name: "order-created", EventType: "order.created"}}
	cfg2 := &models.TopicValidationConfig{ID: "v2", Topic: "invoices", Schema: models.DataSchema{Name: "invoice-created", EventType: "invoice.created"}}
	if err := s.AddTopicValidation(ctx, cfg1); err != nil {
		t.Fatalf("AddTopicValidation() error = %v", err)
	}
	if err := s.AddTopicValidation(ctx, cfg2); err != nil {
		t.Fatalf("AddTopicValidation() error = %v", err)
	}

	forOrders, err := s.ListSchemasForTopic(ctx, "orders")
	if err != nil {
		t.Fatalf("ListSchemasForTopic() error = %v", err)
	}
	if len(forOrders) != 1 || forOrders[0].Name != "order-created" {
		t.Errorf("ListSchemasForTopic(orders) = %+v, want [order-created]", forOrders)
	}

	unknown, err := s.ListSchemasForTopic(ctx, "unknown-topic")
	if err != nil {
		t.Fatalf("ListSchemasForTopic() error = %v", err)
	}
	if unknown == nil || len(unknown) != 0 {
		t.Errorf("ListSchemasForTopic(unknown) = %+v, want empty non-nil slice", unknown)
	}

	if err := s.DeleteTopicValidation(ctx, "v1"); err != nil {
		t.Fatalf("DeleteTopicValidation() error = %v", err)
	}
	byTopic, err := s.ListTopicValidationsByTopic(ctx)
	if err != nil {
		t.Fatalf("ListTopicValidationsByTopic() error = %v", err)
	}
	if len(byTopic) != 1 {
		t.Errorf("ListTopicValidationsByTopic() len = %d, want 1", len(byTopic))
	}
	if _, ok := byTopic["orders"]; ok {
		t.Errorf("ListTopicValidationsByTopic() still has deleted topic orders: %+v", byTopic)
	}
}

func TestMemoryStore_PersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	os.Setenv("EVENT_GATEWAY_DATA_DIR", dir)
	defer os.Unsetenv("EVENT_GATEWAY_DATA_DIR")

	s1 := store.NewMemoryStore()
	ctx := context.Background()
	if err := s1.AddRoutingRule(ctx, &models.TopicRoutingRule{ID: "persisted", Topic: "orders"}); err != nil {
		t.Fatalf("AddRoutingRule() error = %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s2 := store.NewMemoryStore()
	defer s2.Close()
	got, err := s2.GetRoutingRule(ctx, "persisted")
	if err != nil {
		t.Fatalf("GetRoutingRule() after restart error = %v", err)
	}
	if got.Topic != "orders" {
		t.Errorf("GetRoutingRule() after restart = %+v, want topic=orders", got)
	}
}
