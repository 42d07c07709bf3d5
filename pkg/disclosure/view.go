package disclosure

// View is the capability set the discloser needs from a form. It is keyed by
// stable control keys; implementations decide what a key maps to (a DOM id,
// a struct field, a prompt). Every setter is a no-op for unknown keys.
type View interface {
	// Has reports whether the form contains a control with this key.
	Has(key string) bool

	// Checked is false for controls that are not checkboxes.
	Checked(key string) bool
	SetChecked(key string, checked bool)

	Value(key string) string
	SetValue(key, value string)

	// Label returns the displayed label text. ok is false when the control
	// has no label, in which case SetLabel is never called for it.
	Label(key string) (label string, ok bool)
	SetLabel(key, label string)

	SetRequired(key string, required bool)
	SetVisible(key string, visible bool)
}
