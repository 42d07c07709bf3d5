package model

// FieldKind is the control type a field is rendered as.
type FieldKind string

const (
	FieldKindText     FieldKind = "text"
	FieldKindTextArea FieldKind = "textarea"
	FieldKindSelect   FieldKind = "select"
	FieldKindFile     FieldKind = "file"
	FieldKindDateTime FieldKind = "datetime"
	FieldKindCheckbox FieldKind = "checkbox"
	// FieldKindMultiSelect is a group of checkboxes over Options whose
	// checked values are held in Field.Selected.
	FieldKindMultiSelect FieldKind = "multiselect"
)

// Option is a single choice offered by a select field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field is the record a form view reads and writes. Label holds the text as
// displayed, including any required-marker suffix added at runtime. Hidden
// and Required describe the current state, not the schema defaults.
type Field struct {
	Key      string    `json:"key"`
	Kind     FieldKind `json:"kind"`
	Label    string    `json:"label,omitempty"`
	Help     string    `json:"help,omitempty"`
	Value    string    `json:"value,omitempty"`
	Checked  bool      `json:"checked,omitempty"`
	Required bool      `json:"required"`
	Hidden   bool      `json:"hidden,omitempty"`
	Options  []Option  `json:"options,omitempty"`
	Selected []string  `json:"selected,omitempty"`
}

// IsCheckbox reports whether the field is a boolean control.
func (f Field) IsCheckbox() bool {
	return f.Kind == FieldKindCheckbox
}

// IsMultiSelect reports whether the field holds a list of option values.
func (f Field) IsMultiSelect() bool {
	return f.Kind == FieldKindMultiSelect
}

// IsSelected reports whether value is among the selected options.
func (f Field) IsSelected(value string) bool {
	for _, v := range f.Selected {
		if v == value {
			return true
		}
	}
	return false
}

// Form is an ordered set of fields for one record type.
type Form struct {
	ID          string  `json:"id"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Endpoint    string  `json:"endpoint,omitempty"`
	Method      string  `json:"method,omitempty"`
	Fields      []Field `json:"fields"`
}

// Field returns the field with the given key.
func (f *Form) Field(key string) (*Field, bool) {
	if f == nil {
		return nil, false
	}
	for i := range f.Fields {
		if f.Fields[i].Key == key {
			return &f.Fields[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy so per-session state never leaks into a shared
// catalogue entry.
func (f Form) Clone() Form {
	out := f
	out.Fields = make([]Field, len(f.Fields))
	for i, field := range f.Fields {
		field.Options = append([]Option(nil), field.Options...)
		field.Selected = append([]string(nil), field.Selected...)
		out.Fields[i] = field
	}
	return out
}
