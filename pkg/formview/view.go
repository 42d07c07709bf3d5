package formview

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stillcare/carefront/pkg/model"
)

// View is an in-memory form view over a model.Form. It satisfies
// disclosure.View and is what the HTTP service and the terminal front end
// hand to the discloser. A View is owned by one session and is not safe for
// concurrent use.
type View struct {
	form  *model.Form
	index map[string]int
}

// New wraps form. The view mutates form in place; pass a clone of shared
// catalogue entries.
func New(form *model.Form) *View {
	v := &View{form: form, index: make(map[string]int, len(form.Fields))}
	for i, field := range form.Fields {
		v.index[field.Key] = i
	}
	return v
}

// Form returns the underlying form.
func (v *View) Form() *model.Form {
	return v.form
}

func (v *View) field(key string) *model.Field {
	i, ok := v.index[key]
	if !ok {
		return nil
	}
	return &v.form.Fields[i]
}

func (v *View) Has(key string) bool {
	_, ok := v.index[key]
	return ok
}

func (v *View) Checked(key string) bool {
	f := v.field(key)
	return f != nil && f.IsCheckbox() && f.Checked
}

func (v *View) SetChecked(key string, checked bool) {
	if f := v.field(key); f != nil && f.IsCheckbox() {
		f.Checked = checked
	}
}

// Value returns the string value of key. Checkboxes report "on" when
// checked, matching what a browser submits.
func (v *View) Value(key string) string {
	f := v.field(key)
	switch {
	case f == nil:
		return ""
	case f.IsCheckbox():
		if f.Checked {
			return "on"
		}
		return ""
	case f.IsMultiSelect():
		return strings.Join(f.Selected, ",")
	default:
		return f.Value
	}
}

// SetValue sets the string value of key. For checkboxes any truthy string
// checks the box and "" unchecks it. Multi-selects take a comma-separated
// list.
func (v *View) SetValue(key, value string) {
	f := v.field(key)
	if f == nil {
		return
	}
	switch {
	case f.IsCheckbox():
		f.Checked = parseChecked(value)
	case f.IsMultiSelect():
		f.Selected = coerceList(value)
	default:
		f.Value = value
	}
}

// SetSelected replaces the checked options of a multi-select.
func (v *View) SetSelected(key string, values []string) {
	if f := v.field(key); f != nil && f.IsMultiSelect() {
		f.Selected = coerceList(values)
	}
}

// Selected returns the checked options of a multi-select.
func (v *View) Selected(key string) []string {
	f := v.field(key)
	if f == nil || !f.IsMultiSelect() {
		return nil
	}
	return append([]string(nil), f.Selected...)
}

func (v *View) Label(key string) (string, bool) {
	f := v.field(key)
	if f == nil || f.Label == "" {
		return "", false
	}
	return f.Label, true
}

func (v *View) SetLabel(key, label string) {
	if f := v.field(key); f != nil {
		f.Label = label
	}
}

func (v *View) SetRequired(key string, required bool) {
	if f := v.field(key); f != nil {
		f.Required = required
	}
}

func (v *View) SetVisible(key string, visible bool) {
	if f := v.field(key); f != nil {
		f.Hidden = !visible
	}
}

// Visible reports whether key exists and is shown.
func (v *View) Visible(key string) bool {
	f := v.field(key)
	return f != nil && !f.Hidden
}

// Required reports whether key currently demands a value.
func (v *View) Required(key string) bool {
	f := v.field(key)
	return f != nil && f.Required
}

// Load seeds the view with persisted values, as a form does when it is
// opened for an existing record. Unknown keys are ignored.
func (v *View) Load(values map[string]any) {
	for key, raw := range values {
		f := v.field(key)
		if f == nil {
			continue
		}
		switch {
		case f.IsCheckbox():
			f.Checked = coerceChecked(raw)
		case f.IsMultiSelect():
			f.Selected = coerceList(raw)
		default:
			f.Value = coerceString(raw)
		}
	}
}

// State is the observable state of one field.
type State struct {
	Key      string   `json:"key"`
	Visible  bool     `json:"visible"`
	Required bool     `json:"required"`
	Checked  bool     `json:"checked,omitempty"`
	Value    string   `json:"value"`
	Selected []string `json:"selected,omitempty"`
	Label    string   `json:"label"`
}

// States returns the state of every field in form order.
func (v *View) States() []State {
	out := make([]State, 0, len(v.form.Fields))
	for _, f := range v.form.Fields {
		out = append(out, State{
			Key:      f.Key,
			Visible:  !f.Hidden,
			Required: f.Required,
			Checked:  f.IsCheckbox() && f.Checked,
			Value:    stateValue(f),
			Selected: append([]string(nil), f.Selected...),
			Label:    f.Label,
		})
	}
	return out
}

// Values returns the submission payload: checkboxes as bool, multi-selects
// as string lists, other fields as strings, hidden fields as nil.
func (v *View) Values() map[string]any {
	out := make(map[string]any, len(v.form.Fields))
	for _, f := range v.form.Fields {
		switch {
		case f.IsCheckbox():
			out[f.Key] = f.Checked
		case f.Hidden:
			out[f.Key] = nil
		case f.IsMultiSelect():
			out[f.Key] = append([]string{}, f.Selected...)
		default:
			out[f.Key] = f.Value
		}
	}
	return out
}

func parseChecked(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	if parsed, err := strconv.ParseBool(trimmed); err == nil {
		return parsed
	}
	return !strings.EqualFold(trimmed, "off")
}

func coerceChecked(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return parseChecked(v)
	case []string:
		return len(v) > 0 && parseChecked(v[len(v)-1])
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return true
	}
}

func coerceString(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		if len(v) == 0 {
			return ""
		}
		return v[len(v)-1]
	default:
		return fmt.Sprint(v)
	}
}

func stateValue(f model.Field) string {
	if f.IsMultiSelect() {
		return strings.Join(f.Selected, ",")
	}
	return f.Value
}

// coerceList normalises a multi-select value. Strings are split on commas
// and empty entries dropped.
func coerceList(raw any) []string {
	var items []string
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		items = strings.Split(v, ",")
	case []string:
		items = v
	case []any:
		items = make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, coerceString(item))
		}
	default:
		items = []string{fmt.Sprint(v)}
	}

	var out []string
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
