package disclosure

import (
	"fmt"
	"sort"

	"github.com/stillcare/carefront/pkg/visibility"
	"github.com/stillcare/carefront/pkg/visibility/expr"
)

// Event describes one rule evaluation. Nested rules emit their own events.
type Event struct {
	Form    string
	Trigger string
	State   bool
}

// Observer receives an Event after every rule evaluation. Observers run
// synchronously inside Init and Changed and must not touch the view.
type Observer func(Event)

// Option configures a Discloser.
type Option func(*Discloser)

// WithExtras exposes values that are not form controls, such as the role
// of the signed-in carer, to `when` expressions under the `extras.` prefix.
func WithExtras(extras map[string]any) Option {
	return func(d *Discloser) {
		d.extras = extras
	}
}

// WithObserver registers a callback for rule evaluations.
func WithObserver(observer Observer) Option {
	return func(d *Discloser) {
		d.observer = observer
	}
}

// Discloser evaluates a rule table against form views. It holds no view
// state and is safe for concurrent use once built; views are not.
type Discloser struct {
	form     string
	roots    []*compiledRule
	byKey    map[string][]int
	compiler visibility.Compiler
	extras   map[string]any
	observer Observer
}

// New validates and compiles table.
func New(table Table, opts ...Option) (*Discloser, error) {
	d := &Discloser{
		form:     table.Form,
		byKey:    make(map[string][]int),
		compiler: expr.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	marker := table.Marker
	if marker == "" {
		marker = DefaultMarker
	}

	for i, rule := range table.Rules {
		compiled, err := compileRule(rule, marker, false, d.compiler)
		if err != nil {
			return nil, fmt.Errorf("disclosure: form %q: %w", table.Form, err)
		}
		d.roots = append(d.roots, compiled)

		keys := make(map[string]struct{})
		compiled.keys(keys)
		for key := range keys {
			d.byKey[key] = append(d.byKey[key], i)
		}
	}
	return d, nil
}

// Form returns the form identifier the table was declared for.
func (d *Discloser) Form() string {
	return d.form
}

// Triggers returns every control key whose change re-runs a rule, sorted.
func (d *Discloser) Triggers() []string {
	out := make([]string, 0, len(d.byKey))
	for key := range d.byKey {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// IsTrigger reports whether a change to key re-runs any rule.
func (d *Discloser) IsTrigger(key string) bool {
	_, ok := d.byKey[key]
	return ok
}

// Init applies every rule once, establishing the initial state from the
// values the view was loaded with.
func (d *Discloser) Init(view View) {
	for _, rule := range d.roots {
		d.run(view, rule)
	}
}

// Changed re-applies the rules that read key. It reports whether any rule
// is bound to key.
func (d *Discloser) Changed(view View, key string) bool {
	indexes, ok := d.byKey[key]
	if !ok {
		return false
	}
	for _, i := range indexes {
		d.run(view, d.roots[i])
	}
	return true
}

func (d *Discloser) run(view View, rule *compiledRule) {
	if !rule.applicable(view) {
		return
	}
	d.apply(view, rule, d.state(view, rule))
}

func (d *Discloser) apply(view View, rule *compiledRule, state bool) {
	ApplyRule(view, state, rule.dependents...)
	if d.observer != nil {
		d.observer(Event{Form: d.form, Trigger: rule.trigger, State: state})
	}

	for _, child := range rule.nested {
		view.SetRequired(child.trigger, false)
		if state {
			view.SetVisible(child.trigger, true)
			d.apply(view, child, d.state(view, child))
			continue
		}
		view.SetChecked(child.trigger, false)
		view.SetVisible(child.trigger, false)
		d.apply(view, child, false)
	}
}

func (d *Discloser) state(view View, rule *compiledRule) bool {
	if rule.when == nil {
		return view.Checked(rule.trigger)
	}
	return rule.when.Eval(visibility.Context{
		Values: viewResolver{view: view},
		Extras: d.extras,
	})
}

// ApplyRule moves every dependent into the disclosed (state true) or
// concealed (state false) state. Dependents missing from the view are
// skipped.
func ApplyRule(view View, state bool, dependents ...Dependent) {
	for _, dep := range dependents {
		if !view.Has(dep.Key) {
			continue
		}
		if state {
			disclose(view, dep)
		} else {
			conceal(view, dep)
		}
	}
}

func disclose(view View, dep Dependent) {
	view.SetVisible(dep.Key, true)
	view.SetRequired(dep.Key, !dep.Optional)
	if dep.Optional {
		relabel(view, dep.Key, func(label string) string { return UnmarkLabel(label, dep.Marker) })
		return
	}
	relabel(view, dep.Key, func(label string) string { return MarkLabel(label, dep.Marker) })
}

func conceal(view View, dep Dependent) {
	view.SetVisible(dep.Key, false)
	view.SetRequired(dep.Key, false)
	view.SetValue(dep.Key, "")
	relabel(view, dep.Key, func(label string) string { return UnmarkLabel(label, dep.Marker) })
}

func relabel(view View, key string, fn func(string) string) {
	label, ok := view.Label(key)
	if !ok {
		return
	}
	if next := fn(label); next != label {
		view.SetLabel(key, next)
	}
}

// viewResolver exposes a view to `when` expressions: checked boxes resolve
// to true, everything else to its string value.
type viewResolver struct {
	view View
}

func (r viewResolver) Resolve(key string) (any, bool) {
	if !r.view.Has(key) {
		return nil, false
	}
	if r.view.Checked(key) {
		return true, true
	}
	return r.view.Value(key), true
}
