// Package condition evaluates the recursive Condition/StringExpression
// predicate tree attached to a TopicRoutingRule against a subject string.
package condition

import (
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lightsaway/event-gateway/internal/models"
)

// regexCache memoizes compiled patterns across evaluations so that a rule
// checked against many events only pays the compile cost once.
var regexCache = struct {
	mu    sync.RWMutex
	byPat map[string]*regexp.Regexp
}{byPat: make(map[string]*regexp.Regexp)}

func compiled(pattern string) *regexp.Regexp {
	regexCache.mu.RLock()
	if re, ok := regexCache.byPat[pattern]; ok {
		regexCache.mu.RUnlock()
		return re
	}
	regexCache.mu.RUnlock()

	re, err := regexp.Compile(pattern)
	if err != nil {
		log.Warn().Str("pattern", pattern).Err(err).Msg("condition: invalid regex pattern")
		re = nil
	}

	regexCache.mu.Lock()
	regexCache.byPat[pattern] = re
	regexCache.mu.Unlock()
	return re
}

// Matches reports whether subject satisfies condition. Total: no input
// panics. An invalid regex pattern is treated as a non-match rather than
// an error, matching how the rest of the gateway degrades evaluation
// failures to "doesn't route here" instead of aborting the whole pipeline.
func Matches(c models.Condition, subject string) bool {
	switch c.Kind {
	case models.CondAny:
		return true
	case models.CondOne:
		return matchesExpression(c.Expression, subject)
	case models.CondAnd:
		for _, child := range c.Children {
			if !Matches(child, subject) {
				return false
			}
		}
		return true
	case models.CondOr:
		for _, child := range c.Children {
			if Matches(child, subject) {
				return true
			}
		}
		return false
	case models.CondNot:
		if c.Child == nil {
			return false
		}
		return !Matches(*c.Child, subject)
	default:
		return false
	}
}

func matchesExpression(expr models.StringExpression, subject string) bool {
	switch expr.Kind {
	case models.ExprEquals:
		return subject == expr.Value
	case models.ExprStartsWith:
		return strings.HasPrefix(subject, expr.Value)
	case models.ExprEndsWith:
		return strings.HasSuffix(subject, expr.Value)
	case models.ExprContains:
		return strings.Contains(subject, expr.Value)
	case models.ExprRegexMatch:
		re := compiled(expr.Value)
		if re == nil {
			return false
		}
		return re.MatchString(subject)
	default:
		return false
	}
}
