package forms

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/stillcare/carefront/internal/openapi/parser"
	"github.com/stillcare/carefront/pkg/model"
)

// ErrUnknownForm is returned when the catalogue has no form with an id.
var ErrUnknownForm = errors.New("forms: unknown form")

//go:embed schema/carefront.yaml
var defaultDocument []byte

// Catalogue holds immutable form templates. Callers receive clones, so a
// form may be mutated freely by a view.
type Catalogue struct {
	forms map[string]model.Form
	order []string
}

// Option configures Load.
type Option func(*parser.Options)

// WithLabeler overrides how labels are derived for untitled properties.
func WithLabeler(labeler func(string) string) Option {
	return func(o *parser.Options) {
		o.Labeler = labeler
	}
}

// WithValidation runs the OpenAPI validator before extracting forms.
func WithValidation() Option {
	return func(o *parser.Options) {
		o.Validate = true
	}
}

// Load parses an OpenAPI document into a catalogue.
func Load(ctx context.Context, document []byte, opts ...Option) (*Catalogue, error) {
	var options parser.Options
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	list, err := parser.New(options).Forms(ctx, document)
	if err != nil {
		return nil, err
	}

	catalogue := &Catalogue{forms: make(map[string]model.Form, len(list))}
	for _, form := range list {
		catalogue.forms[form.ID] = form
		catalogue.order = append(catalogue.order, form.ID)
	}
	return catalogue, nil
}

// LoadFile reads and parses the OpenAPI document at path.
func LoadFile(ctx context.Context, path string, opts ...Option) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("forms: read %s: %w", path, err)
	}
	return Load(ctx, data, opts...)
}

// Default parses the bundled document.
func Default(ctx context.Context, opts ...Option) (*Catalogue, error) {
	return Load(ctx, defaultDocument, opts...)
}

// DefaultDocument returns a copy of the bundled OpenAPI document.
func DefaultDocument() []byte {
	return append([]byte(nil), defaultDocument...)
}

// Form returns a fresh copy of the form with the given id.
func (c *Catalogue) Form(id string) (model.Form, error) {
	if c != nil {
		if form, ok := c.forms[id]; ok {
			return form.Clone(), nil
		}
	}
	return model.Form{}, fmt.Errorf("%w: %q", ErrUnknownForm, id)
}

// IDs lists the form ids, sorted.
func (c *Catalogue) IDs() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.order...)
}
