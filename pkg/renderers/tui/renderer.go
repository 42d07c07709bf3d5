package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/stillcare/carefront/pkg/disclosure"
	"github.com/stillcare/carefront/pkg/formview"
	"github.com/stillcare/carefront/pkg/model"
	"github.com/stillcare/carefront/pkg/render"
)

const noneOption = "(none)"

// Renderer fills a form interactively in the terminal. Disclosure rules run
// after every checkbox answer, so dependents appear or vanish before the
// next prompt. Hidden fields are never prompted. A dependent placed before
// its trigger is prompted in a later pass once the trigger discloses it.
type Renderer struct {
	driver       PromptDriver
	outputFormat OutputFormat
	discloser    *disclosure.Discloser
	theme        Theme
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{outputFormat: OutputFormatJSON}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = newSurveyDriver()
	}
	switch r.outputFormat {
	case OutputFormatJSON, OutputFormatFormURLEncoded, OutputFormatPrettyText:
	default:
		return nil, fmt.Errorf("tui: unsupported output format %q", r.outputFormat)
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Render prompts for every visible field of form in order and returns the
// serialized values. Field values already on form act as defaults.
func (r *Renderer) Render(ctx context.Context, form model.Form, _ render.Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.discloser == nil {
		return nil, ErrNoDiscloser
	}

	working := form.Clone()
	view := formview.New(&working)
	r.discloser.Init(view)

	if working.Title != "" {
		if err := r.driver.Info(ctx, r.theme.InfoPrefix+working.Title); err != nil {
			return nil, err
		}
	}

	// Keys are captured up front; the view mutates fields as rules run.
	keys := make([]string, len(working.Fields))
	for i, f := range working.Fields {
		keys[i] = f.Key
	}
	prompted := make(map[string]bool, len(keys))
	for {
		pending := pendingKeys(view, keys, prompted)
		if len(pending) == 0 {
			break
		}
		for _, key := range pending {
			// An earlier answer in this pass may have concealed it.
			if !view.Visible(key) {
				continue
			}
			prompted[key] = true
			if err := r.promptField(ctx, view, key); err != nil {
				return nil, err
			}
		}
	}

	return r.serialize(view.Values())
}

// pendingKeys lists visible fields not yet prompted, in form order.
func pendingKeys(view *formview.View, keys []string, prompted map[string]bool) []string {
	var pending []string
	for _, key := range keys {
		if !prompted[key] && view.Visible(key) {
			pending = append(pending, key)
		}
	}
	return pending
}

func (r *Renderer) promptField(ctx context.Context, view *formview.View, key string) error {
	field, _ := view.Form().Field(key)
	label := r.theme.PromptPrefix + field.Label
	if field.Label == "" {
		label = r.theme.PromptPrefix + model.DefaultLabeler(key)
	}

	switch field.Kind {
	case model.FieldKindCheckbox:
		answer, err := r.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: field.Checked, Help: field.Help})
		if err != nil {
			return err
		}
		if answer != view.Checked(key) {
			view.SetChecked(key, answer)
			r.discloser.Changed(view, key)
		}
		return nil

	case model.FieldKindSelect:
		options, defaultIndex := selectOptions(*field)
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      label,
			Options:      options,
			DefaultIndex: defaultIndex,
			Help:         field.Help,
		})
		if err != nil {
			return err
		}
		view.SetValue(key, optionValue(*field, idx))

	case model.FieldKindMultiSelect:
		labels, defaults := checklistOptions(*field, view.Selected(key))
		ticked, err := r.driver.MultiSelect(ctx, SelectConfig{
			Message:  label,
			Options:  labels,
			Defaults: defaults,
			Help:     field.Help,
		})
		if err != nil {
			return err
		}
		selected := make([]string, 0, len(ticked))
		for _, idx := range ticked {
			if idx >= 0 && idx < len(field.Options) {
				selected = append(selected, field.Options[idx].Value)
			}
		}
		view.SetSelected(key, selected)

	case model.FieldKindTextArea:
		answer, err := r.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: field.Value, Help: field.Help})
		if err != nil {
			return err
		}
		view.SetValue(key, answer)

	default:
		answer, err := r.driver.Input(ctx, InputConfig{Message: label, Default: field.Value, Help: inputHelp(*field)})
		if err != nil {
			return err
		}
		view.SetValue(key, strings.TrimSpace(answer))
	}

	// Rules keyed on non-checkbox fields are expression rules.
	r.discloser.Changed(view, key)
	return nil
}

func selectOptions(field model.Field) ([]string, int) {
	options := make([]string, 0, len(field.Options)+1)
	options = append(options, noneOption)
	defaultIndex := 0
	for i, opt := range field.Options {
		options = append(options, opt.Label)
		if opt.Value == field.Value {
			defaultIndex = i + 1
		}
	}
	return options, defaultIndex
}

func checklistOptions(field model.Field, selected []string) ([]string, []int) {
	labels := make([]string, len(field.Options))
	var defaults []int
	for i, opt := range field.Options {
		labels[i] = opt.Label
		if slices.Contains(selected, opt.Value) {
			defaults = append(defaults, i)
		}
	}
	return labels, defaults
}

func optionValue(field model.Field, idx int) string {
	if idx <= 0 || idx > len(field.Options) {
		return ""
	}
	return field.Options[idx-1].Value
}

func inputHelp(field model.Field) string {
	switch field.Kind {
	case model.FieldKindDateTime:
		return strings.TrimSpace(field.Help + " (YYYY-MM-DDTHH:MM)")
	case model.FieldKindFile:
		return strings.TrimSpace(field.Help + " (path to file)")
	default:
		return field.Help
	}
}

func (r *Renderer) serialize(values map[string]any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		form := url.Values{}
		for _, key := range sortedKeys(values) {
			if list, ok := values[key].([]string); ok {
				for _, item := range list {
					form.Add(key, item)
				}
				continue
			}
			if s, ok := scalarString(values[key]); ok {
				form.Set(key, s)
			}
		}
		return []byte(form.Encode()), nil
	case OutputFormatPrettyText:
		var b strings.Builder
		for _, key := range sortedKeys(values) {
			s, ok := scalarString(values[key])
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "%s: %s\n", key, s)
		}
		return []byte(b.String()), nil
	case OutputFormatJSON:
		return json.Marshal(values)
	default:
		return nil, errors.New("tui: unknown output format")
	}
}

// scalarString drops nil values, which stand for hidden fields.
func scalarString(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case bool:
		return strconv.FormatBool(v), true
	case string:
		return v, true
	case []string:
		return strings.Join(v, ", "), true
	default:
		return fmt.Sprint(v), true
	}
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
