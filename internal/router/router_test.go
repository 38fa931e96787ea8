package router_test

import (
	"context"
	"testing"

	"github.com/lightsaway/event-gateway/internal/models"
	"github.com/lightsaway/event-gateway/internal/router"
	"github.com/lightsaway/event-gateway/internal/store"
)

func newRuleStore(t *testing.T) store.Store {
	t.Helper()
	t.Setenv("EVENT_GATEWAY_DATA_DIR", t.TempDir())
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	return s
}

func alwaysTrueRule(id, topic string, order int) *models.TopicRoutingRule {
	return &models.TopicRoutingRule{
		ID: id, Topic: topic, Order: order,
		EventTypeCondition: models.Condition{Kind: models.CondAny},
	}
}

func TestRoute_FirstMatchByOrderThenID(t *testing.T) {
	s := newRuleStore(t)
	ctx := context.Background()

	if err := s.AddRoutingRule(ctx, alwaysTrueRule("b", "topic-b", 10)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddRoutingRule(ctx, alwaysTrueRule("a", "topic-a", 10)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddRoutingRule(ctx, alwaysTrueRule("c", "topic-c", 5)); err != nil {
		t.Fatal(err)
	}

	r := router.NewTopicRouter(s)
	topic, ok, err := r.Route(ctx, models.Event{ID: "evt-1", EventType: "x"})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if !ok {
		t.Fatal("Route() ok = false, want true")
	}
	if topic != "topic-c" {
		t.Errorf("Route() topic = %q, want topic-c (lowest order)", topic)
	}
}

func TestRoute_TieBrokenByID(t *testing.T) {
	s := newRuleStore(t)
	ctx := context.Background()
	if err := s.AddRoutingRule(ctx, alwaysTrueRule("z", "topic-z", 1)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddRoutingRule(ctx, alwaysTrueRule("a", "topic-a", 1)); err != nil {
		t.Fatal(err)
	}

	r := router.NewTopicRouter(s)
	topic, ok, err := r.Route(ctx, models.Event{ID: "evt-1", EventType: "x"})
	if err != nil || !ok {
		t.Fatalf("Route() = %q, %v, %v", topic, ok, err)
	}
	if topic != "topic-a" {
		t.Errorf("Route() topic = %q, want topic-a (lowest id breaks the order tie)", topic)
	}
}

func TestRoute_NoMatch(t *testing.T) {
	s := newRuleStore(t)
	ctx := context.Background()
	rule := &models.TopicRoutingRule{
		ID: "only", Topic: "orders", Order: 1,
		EventTypeCondition: models.Condition{
			Kind:       models.CondOne,
			Expression: models.StringExpression{Kind: models.ExprEquals, Value: "order.created"},
		},
	}
	if err := s.AddRoutingRule(ctx, rule); err != nil {
		t.Fatal(err)
	}

	r := router.NewTopicRouter(s)
	_, ok, err := r.Route(ctx, models.Event{ID: "evt-1", EventType: "order.shipped"})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if ok {
		t.Error("Route() ok = true, want false when no rule matches")
	}
}

func TestRoute_VersionConditionAbsentMatchesBoth(t *testing.T) {
	s := newRuleStore(t)
	ctx := context.Background()
	rule := &models.TopicRoutingRule{
		ID: "only", Topic: "orders", Order: 1,
		EventTypeCondition: models.Condition{Kind: models.CondAny},
	}
	if err := s.AddRoutingRule(ctx, rule); err != nil {
		t.Fatal(err)
	}

	r := router.NewTopicRouter(s)
	_, ok, err := r.Route(ctx, models.Event{ID: "evt-1", EventType: "x", EventVersion: "1.0"})
	if err != nil || !ok {
		t.Fatalf("Route() with event version = %v, %v, want ok=true", ok, err)
	}
	_, ok, err = r.Route(ctx, models.Event{ID: "evt-2", EventType: "x"})
	if err != nil || !ok {
		t.Fatalf("Route() without event version = %v, %v, want ok=true", ok, err)
	}
}

func TestRoute_VersionConditionPresentRequiresEventVersion(t *testing.T) {
	s := newRuleStore(t)
	ctx := context.Background()
	versionCond := models.Condition{Kind: models.CondOne, Expression: models.StringExpression{Kind: models.ExprEquals, Value: "2.0"}}
	rule := &models.TopicRoutingRule{
		ID: "only", Topic: "orders", Order: 1,
		EventTypeCondition:    models.Condition{Kind: models.CondAny},
		EventVersionCondition: &versionCond,
	}
	if err := s.AddRoutingRule(ctx, rule); err != nil {
		t.Fatal(err)
	}

	r := router.NewTopicRouter(s)
	_, ok, err := r.Route(ctx, models.Event{ID: "evt-1", EventType: "x"})
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if ok {
		t.Error("Route() ok = true, want false when event has no version but rule requires one")
	}
}
