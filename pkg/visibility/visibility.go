package visibility

// Resolver returns the current value of a form control. Checkboxes resolve
// to bool, every other control to its string value. ok is false when the
// control does not exist.
type Resolver interface {
	Resolve(key string) (value any, ok bool)
}

// Context provides inputs to a compiled condition. Values wins over Extras
// when both define a key; Extras lets callers inject values that are not
// form controls (user role, feature flags) under the `extras.` prefix.
type Context struct {
	Values Resolver
	Extras map[string]any
}

// Condition is a compiled boolean expression over form values.
type Condition interface {
	Eval(ctx Context) bool
	// Identifiers lists the control keys the condition reads, excluding
	// extras, so dispatchers know which change events should re-run it.
	Identifiers() []string
}

// Compiler turns a rule string into a Condition.
type Compiler interface {
	Compile(rule string) (Condition, error)
}

// Map is a Resolver over a plain value map.
type Map map[string]any

// Resolve implements Resolver.
func (m Map) Resolve(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}
