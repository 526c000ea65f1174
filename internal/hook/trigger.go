package hook

import (
	"fmt"
	"slices"
	"strings"

	"reflex.app/assistant/internal/model"
)

// PredicateKind tags the Predicate variant.
type PredicateKind int

const (
	// PredicateAlways passes unconditionally. It is the zero value, so a
	// hook without a custom condition matches on platform/event-type alone.
	PredicateAlways PredicateKind = iota
	PredicateContains
	PredicateEquals
)

// Predicate is a tagged variant evaluated against the normalized event
// payload: Contains(key, value) | Equals(key, value) | Always.
type Predicate struct {
	Kind  PredicateKind
	Key   string
	Value string
}

func Always() Predicate {
	return Predicate{Kind: PredicateAlways}
}

func Contains(key, value string) Predicate {
	return Predicate{Kind: PredicateContains, Key: key, Value: value}
}

func Equals(key, value string) Predicate {
	return Predicate{Kind: PredicateEquals, Key: key, Value: value}
}

// ParsePredicate parses the wire shape "contains:key:value" or
// "equals:key:value" used by the hook management API. Unknown shapes are an
// error rather than a silent pass.
func ParsePredicate(s string) (Predicate, error) {
	if s == "" {
		return Always(), nil
	}

	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Predicate{}, fmt.Errorf("predicate must be op:key:value, got %q", s)
	}

	switch parts[0] {
	case "contains":
		return Contains(parts[1], parts[2]), nil
	case "equals":
		return Equals(parts[1], parts[2]), nil
	default:
		return Predicate{}, fmt.Errorf("unknown predicate op %q", parts[0])
	}
}

// Evaluate checks the predicate against the event payload. Missing keys
// evaluate as the empty string.
func (p Predicate) Evaluate(data map[string]any) bool {
	switch p.Kind {
	case PredicateAlways:
		return true
	case PredicateContains:
		return strings.Contains(stringify(data[p.Key]), p.Value)
	case PredicateEquals:
		return stringify(data[p.Key]) == p.Value
	default:
		return false
	}
}

// TriggerConditions is the declarative predicate set determining whether a
// hook runs for a given event. Empty slices mean "any".
type TriggerConditions struct {
	Platforms  []model.Platform
	EventTypes []string
	Custom     Predicate
}

// Matches evaluates the hook's trigger conditions against a context.
// Evaluation is pure and short-circuits on the first failing condition.
// A disabled hook never matches.
func Matches(h Hook, c Context) bool {
	if !h.Enabled {
		return false
	}

	if len(h.Trigger.Platforms) > 0 && !slices.Contains(h.Trigger.Platforms, c.Platform) {
		return false
	}

	if len(h.Trigger.EventTypes) > 0 && !slices.Contains(h.Trigger.EventTypes, c.EventType) {
		return false
	}

	return h.Trigger.Custom.Evaluate(c.EventData)
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
