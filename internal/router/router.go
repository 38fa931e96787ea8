// Package router selects a destination topic for an event by evaluating an
// ordered set of TopicRoutingRules.
package router

import (
	"context"
	"fmt"
	"sort"

	"github.com/lightsaway/event-gateway/internal/condition"
	"github.com/lightsaway/event-gateway/internal/models"
	"github.com/lightsaway/event-gateway/internal/store"
)

// TopicRouter picks the destination topic for an incoming event, first
// match wins, by order ascending then id ascending.
type TopicRouter struct {
	store store.RoutingRuleStore
}

// NewTopicRouter creates a router backed by the given rule store.
func NewTopicRouter(s store.RoutingRuleStore) *TopicRouter {
	return &TopicRouter{store: s}
}

// Route returns the topic of the first rule (sorted by order, then id)
// whose condition matches event. ok is false when no rule matches.
func (r *TopicRouter) Route(ctx context.Context, event models.Event) (topic string, ok bool, err error) {
	rules, err := r.store.ListRoutingRules(ctx)
	if err != nil {
		return "", false, fmt.Errorf("list routing rules: %w", err)
	}

	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Order != rules[j].Order {
			return rules[i].Order < rules[j].Order
		}
		return rules[i].ID < rules[j].ID
	})

	for _, rule := range rules {
		if !condition.Matches(rule.EventTypeCondition, event.EventType) {
			continue
		}
		if !versionMatches(rule.EventVersionCondition, event.EventVersion) {
			continue
		}
		return rule.Topic, true, nil
	}
	return "", false, nil
}

// versionMatches implements the absent-condition / absent-version rules:
// a rule with no version condition is version-agnostic; a rule with a
// version condition never matches an event with no version.
func versionMatches(cond *models.Condition, eventVersion string) bool {
	if cond == nil {
		return true
	}
	if eventVersion == "" {
		return false
	}
	return condition.Matches(*cond, eventVersion)
}
