package scoring

import (
	"fmt"
	"slices"
)

// Registry is an immutable set of rules keyed by id.
type Registry struct {
	rules map[RuleID]Rule
	order []RuleID
}

// NewRegistry registers rules. A duplicate or empty id is a configuration error.
func NewRegistry(rules ...Rule) (*Registry, error) {
	r := &Registry{rules: make(map[RuleID]Rule, len(rules))}
	for _, rule := range rules {
		if rule == nil || rule.ID() == "" {
			return nil, ErrMissingRuleID
		}
		if _, exists := r.rules[rule.ID()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, rule.ID())
		}
		r.rules[rule.ID()] = rule
		r.order = append(r.order, rule.ID())
	}
	slices.Sort(r.order)
	return r, nil
}

// DefaultRegistry returns the registry of every built-in rule.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultRules()...)
	if err != nil {
		panic(fmt.Sprintf("scoring: built-in rules: %v", err))
	}
	return r
}

// All returns the registered rules ordered by id.
func (r *Registry) All() []Rule {
	out := make([]Rule, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rules[id])
	}
	return out
}

// Get returns the rule registered under id.
func (r *Registry) Get(id RuleID) (Rule, bool) {
	rule, ok := r.rules[id]
	return rule, ok
}

// IDs returns the registered ids in order.
func (r *Registry) IDs() []RuleID {
	return slices.Clone(r.order)
}

// Len returns the number of registered rules.
func (r *Registry) Len() int { return len(r.order) }

// Without returns a registry with the given ids retired. Unknown ids are ignored.
func (r *Registry) Without(ids ...RuleID) *Registry {
	out := &Registry{rules: make(map[RuleID]Rule, len(r.rules))}
	for _, id := range r.order {
		if slices.Contains(ids, id) {
			continue
		}
		out.rules[id] = r.rules[id]
		out.order = append(out.order, id)
	}
	return out
}

// ruleInfo carries the static identity shared by every built-in rule.
type ruleInfo struct {
	id       RuleID
	category string
	weight   float64
}

func (i ruleInfo) ID() RuleID       { return i.id }
func (i ruleInfo) Category() string { return i.category }
func (i ruleInfo) Weight() float64  { return i.weight }
