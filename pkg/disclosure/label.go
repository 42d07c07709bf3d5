package disclosure

import "strings"

// DefaultMarker is appended to the label of a disclosed required field.
const DefaultMarker = " *"

// MarkLabel returns label ending with exactly one marker. Existing trailing
// markers are collapsed first so repeated calls are stable.
func MarkLabel(label, marker string) string {
	if marker == "" {
		return label
	}
	return UnmarkLabel(label, marker) + marker
}

// UnmarkLabel strips every trailing copy of marker from label.
func UnmarkLabel(label, marker string) string {
	if marker == "" {
		return label
	}
	for strings.HasSuffix(label, marker) {
		label = strings.TrimSuffix(label, marker)
	}
	return label
}
