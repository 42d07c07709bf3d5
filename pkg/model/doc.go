// Package model defines the field and form records shared by the discloser,
// the form views and the renderers. A Field carries both its static
// definition (key, kind, options, help text) and its live state (value,
// checked, required, hidden, displayed label). Forms are values; callers
// Clone a catalogue entry before handing it to a view so that per-session
// mutations stay local.
package model
