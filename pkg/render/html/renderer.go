package html

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/stillcare/carefront/pkg/model"
	"github.com/stillcare/carefront/pkg/render"
	"github.com/stillcare/carefront/pkg/render/template"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// TemplatesFS returns the bundled form templates.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

const formTemplate = "form"

// Option configures a Renderer.
type Option func(*Renderer)

// WithTemplatesDir lets pages in dir replace the bundled form.html and
// field.html. A replacement form.html includes field.html from dir, so both
// must be present there. An empty dir keeps the bundled markup.
func WithTemplatesDir(dir string) Option {
	return func(r *Renderer) {
		r.templatesDir = dir
	}
}

// Renderer produces a server-rendered HTML form. Concealed fields are kept in
// the markup inside a display:none container so a page can reveal them
// without a round trip.
type Renderer struct {
	engine       template.TemplateRenderer
	templatesDir string
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a Renderer backed by the bundled templates.
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	engine, err := template.New(template.WithFS(TemplatesFS()), template.WithOverrideDir(r.templatesDir))
	if err != nil {
		return nil, fmt.Errorf("html renderer: %w", err)
	}
	r.engine = engine
	return r, nil
}

func (r *Renderer) Name() string        { return "html" }
func (r *Renderer) ContentType() string { return "text/html; charset=utf-8" }

// Render executes the form template.
func (r *Renderer) Render(ctx context.Context, form model.Form, options render.Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	triggers := make(map[string]bool, len(options.Triggers))
	for _, key := range options.Triggers {
		triggers[key] = true
	}

	multipart := false
	fields := make([]fieldView, 0, len(form.Fields))
	for _, field := range form.Fields {
		if field.Kind == model.FieldKindFile {
			multipart = true
		}
		fields = append(fields, newFieldView(field, triggers[field.Key], options.Errors.For(field.Key)))
	}

	out, err := r.engine.RenderTemplate(formTemplate, map[string]any{
		"form":          formView{ID: form.ID, Title: form.Title, Description: form.Description},
		"action":        render.ActionFor(form, options),
		"state_url":     options.StateURL,
		"multipart":     multipart,
		"fields":        fields,
		"form_errors":   options.Errors.Form,
		"hidden_fields": render.SortedHiddenFields(options.Hidden),
	})
	if err != nil {
		return nil, fmt.Errorf("html renderer: form %q: %w", form.ID, err)
	}
	return []byte(out), nil
}

type formView struct {
	ID          string
	Title       string
	Description string
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

type fieldView struct {
	Key       string
	Kind      string
	InputType string
	Label     string
	Help      string
	Value     string
	Checked   bool
	Required  bool
	Hidden    bool
	Trigger   bool
	Options   []optionView
	Errors    []string
}

func newFieldView(field model.Field, trigger bool, errs []string) fieldView {
	view := fieldView{
		Key:       field.Key,
		Kind:      string(field.Kind),
		InputType: inputType(field.Kind),
		Label:     field.Label,
		Help:      SanitizeHelp(field.Help),
		Value:     field.Value,
		Checked:   field.Checked,
		Required:  field.Required,
		Hidden:    field.Hidden,
		Trigger:   trigger,
		Errors:    errs,
	}
	if view.Label == "" {
		view.Label = model.DefaultLabeler(field.Key)
	}
	if field.Kind == model.FieldKindFile {
		// Browsers refuse to prefill file inputs.
		view.Value = ""
	}
	for _, opt := range field.Options {
		view.Options = append(view.Options, optionView{
			Value:    opt.Value,
			Label:    opt.Label,
			Selected: optionSelected(field, opt.Value),
		})
	}
	return view
}

func optionSelected(field model.Field, value string) bool {
	if field.IsMultiSelect() {
		return field.IsSelected(value)
	}
	return value == field.Value
}

func inputType(kind model.FieldKind) string {
	switch kind {
	case model.FieldKindDateTime:
		return "datetime-local"
	case model.FieldKindFile:
		return "file"
	case model.FieldKindCheckbox, model.FieldKindMultiSelect:
		return "checkbox"
	default:
		return "text"
	}
}
