package disclosure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stillcare/carefront/pkg/visibility"
)

// ErrInvalidRule is wrapped by every rule table validation error.
var ErrInvalidRule = errors.New("disclosure: invalid rule")

// Rule binds a trigger checkbox to the fields it discloses.
//
// Nested rules express chained gating: each nested trigger is itself a
// checkbox that is only shown while this rule's state is true, and is forced
// unchecked (cascading its own dependents) when it is false.
type Rule struct {
	Trigger    string   `json:"trigger" yaml:"trigger"`
	Dependents []string `json:"dependents,omitempty" yaml:"dependents,omitempty"`
	// Optional dependents are shown and hidden but never become required
	// and never carry the marker.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`
	// When replaces the trigger's checked state with a boolean expression
	// over the form's values.
	When   string `json:"when,omitempty" yaml:"when,omitempty"`
	Marker string `json:"marker,omitempty" yaml:"marker,omitempty"`
	Nested []Rule `json:"nested,omitempty" yaml:"nested,omitempty"`
}

// Table is the declarative rule set for one form.
type Table struct {
	Form   string `json:"form" yaml:"form"`
	Marker string `json:"marker,omitempty" yaml:"marker,omitempty"`
	Rules  []Rule `json:"rules" yaml:"rules"`
}

// Dependent is a field governed by a rule, together with the marker its
// label carries while it is required.
type Dependent struct {
	Key      string
	Marker   string
	Optional bool
}

type compiledRule struct {
	trigger    string
	dependents []Dependent
	when       visibility.Condition
	nested     []*compiledRule
}

func compileRule(rule Rule, marker string, nested bool, compiler visibility.Compiler) (*compiledRule, error) {
	trigger := strings.TrimSpace(rule.Trigger)
	when := strings.TrimSpace(rule.When)
	name := trigger
	if name == "" {
		name = when
	}

	switch {
	case trigger == "" && nested:
		return nil, fmt.Errorf("%w: nested rule requires a trigger", ErrInvalidRule)
	case trigger == "" && when == "":
		return nil, fmt.Errorf("%w: rule requires a trigger or a when expression", ErrInvalidRule)
	case len(rule.Dependents) == 0 && len(rule.Nested) == 0:
		return nil, fmt.Errorf("%w: rule %q has no dependents", ErrInvalidRule, name)
	}

	if rule.Marker != "" {
		marker = rule.Marker
	}

	out := &compiledRule{trigger: trigger}
	for _, key := range rule.Dependents {
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%w: rule %q has an empty dependent", ErrInvalidRule, name)
		}
		if key == trigger {
			return nil, fmt.Errorf("%w: rule %q depends on its own trigger", ErrInvalidRule, name)
		}
		out.dependents = append(out.dependents, Dependent{Key: key, Marker: marker, Optional: rule.Optional})
	}

	if when != "" {
		cond, err := compiler.Compile(when)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %q: %w", ErrInvalidRule, name, err)
		}
		out.when = cond
	}

	for _, child := range rule.Nested {
		compiled, err := compileRule(child, marker, true, compiler)
		if err != nil {
			return nil, err
		}
		out.nested = append(out.nested, compiled)
	}
	return out, nil
}

// keys lists every control whose change should re-run the rule.
func (r *compiledRule) keys(into map[string]struct{}) {
	if r.trigger != "" {
		into[r.trigger] = struct{}{}
	}
	if r.when != nil {
		for _, ident := range r.when.Identifiers() {
			into[ident] = struct{}{}
		}
	}
	for _, child := range r.nested {
		child.keys(into)
	}
}

// applicable reports whether every control the rule touches is present.
func (r *compiledRule) applicable(view View) bool {
	if r.trigger != "" && !view.Has(r.trigger) {
		return false
	}
	for _, dep := range r.dependents {
		if !view.Has(dep.Key) {
			return false
		}
	}
	for _, child := range r.nested {
		if !child.applicable(view) {
			return false
		}
	}
	return true
}
